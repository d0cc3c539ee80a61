package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
)

// RasaConfig configures a RasaClient.
type RasaConfig struct {
	BaseURL string
	Timeout time.Duration
	// MaxRetries is how many times a transport error or 5xx is retried.
	MaxRetries int
	RetryDelay time.Duration
}

// RasaClient asks a Rasa server's response selector for the intent.
type RasaClient struct {
	endpoint   string
	http       *http.Client
	maxRetries int
	retryDelay time.Duration
	log        *slog.Logger
}

// NewRasaClient targets {BaseURL}/model/parse.
func NewRasaClient(cfg RasaConfig, logger *slog.Logger) (*RasaClient, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rasa base url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &RasaClient{
		endpoint:   base.JoinPath("model", "parse").String(),
		http:       &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		log:        logger.With("component", "rasa_client"),
	}, nil
}

type rasaParseResponse struct {
	ResponseSelector struct {
		Default struct {
			Response struct {
				IntentResponseKey string  `json:"intent_response_key"`
				Confidence        float64 `json:"confidence"`
			} `json:"response"`
		} `json:"default"`
	} `json:"response_selector"`
}

type rasaStatusError struct {
	Code int
	Body string
}

func (e *rasaStatusError) Error() string {
	return fmt.Sprintf("rasa returned status %d: %s", e.Code, e.Body)
}

func retryableRasaError(err error) bool {
	var statusErr *rasaStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func (c *RasaClient) Parse(ctx context.Context, text string) (Prediction, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to encode rasa request: %w", err)
	}

	var p Prediction
	err = retry.Do(
		func() error {
			var callErr error
			p, callErr = c.parse(ctx, body)
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)+1),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryableRasaError),
		retry.OnRetry(func(n uint, err error) {
			c.log.WarnContext(ctx, "Rasa call failed, retrying", "attempt", n+1, "max_retries", c.maxRetries, "error", err)
		}),
	)
	if err != nil {
		return Prediction{}, err
	}

	c.log.DebugContext(ctx, "Rasa prediction", "intent_key", p.IntentKey, "confidence", p.Confidence)
	if p.IntentKey == "" {
		return p, ErrNoPrediction
	}
	return p, nil
}

func (c *RasaClient) parse(ctx context.Context, body []byte) (Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to build rasa request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to call rasa: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Prediction{}, &rasaStatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	var parsed rasaParseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Prediction{}, fmt.Errorf("failed to decode rasa response: %w", err)
	}
	return Prediction{
		IntentKey:  parsed.ResponseSelector.Default.Response.IntentResponseKey,
		Confidence: parsed.ResponseSelector.Default.Response.Confidence,
	}, nil
}
