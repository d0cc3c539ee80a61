package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiConfig configures GeminiClient.
type GeminiConfig struct {
	APIKey          string
	ModelName       string
	Temperature     float32
	Intents         []string
	RetrievalPrefix string
	MaxRetries      int
	RetryDelay      time.Duration
}

const classifierInstruction = `You classify customer support questions. Pick the single intent from the list below that best matches the user's message, or "none" if nothing fits. Report how confident you are as a number between 0 and 1.

Intents:
%s`

var predictionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"intent":     {Type: genai.TypeString, Description: "One of the listed intents, or none."},
		"confidence": {Type: genai.TypeNumber, Description: "Confidence between 0 and 1."},
	},
	Required: []string{"intent", "confidence"},
}

// generator is the slice of genai.Models the classifier needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient classifies with a Gemini model in JSON mode. Keys are
// reported as "<retrieval prefix>/<intent>" like Rasa's response selector.
type GeminiClient struct {
	models        generator
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	modelName     string
	intents       []string
	prefix        string
	maxRetries    int
	retryDelay    time.Duration
}

// NewGeminiClient creates a classifier backed by the Gemini API.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, log *slog.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return newGeminiClient(gi.Models, cfg, log), nil
}

func newGeminiClient(models generator, cfg GeminiConfig, log *slog.Logger) *GeminiClient {
	if log == nil {
		log = slog.Default()
	}
	temperature := cfg.Temperature
	contentConfig := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   predictionSchema,
		SystemInstruction: &genai.Content{Parts: []*genai.Part{
			{Text: fmt.Sprintf(classifierInstruction, "- "+strings.Join(cfg.Intents, "\n- "))},
		}},
	}

	logger := log.With("component", "gemini_classifier")
	logger.Info("Gemini classifier initialized", "model", cfg.ModelName, "intents", len(cfg.Intents))
	return &GeminiClient{
		models:        models,
		log:           logger,
		contentConfig: contentConfig,
		modelName:     cfg.ModelName,
		intents:       slices.Clone(cfg.Intents),
		prefix:        cfg.RetrievalPrefix,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    cfg.RetryDelay,
	}
}

func (c *GeminiClient) generateContentWithRetries(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.models.GenerateContent(ctx, c.modelName, contents, c.contentConfig)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) {
			if i < c.maxRetries {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(c.retryDelay):
				}
				continue
			}
			return nil, fmt.Errorf("gemini API call failed after %d retries (APIError code %d): %w", c.maxRetries, apiErr.Code, err)
		}

		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	return nil, err
}

func (c *GeminiClient) Parse(ctx context.Context, text string) (Prediction, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	resp, err := c.generateContentWithRetries(ctx, contents)
	if err != nil {
		return Prediction{}, err
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		c.log.WarnContext(ctx, "Gemini request blocked", "reason", resp.PromptFeedback.BlockReason)
		return Prediction{}, ErrNoPrediction
	}

	raw := resp.Text()
	var out struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Prediction{}, fmt.Errorf("invalid classification JSON received: %w", err)
	}

	intent := strings.TrimPrefix(strings.TrimSpace(out.Intent), "#")
	if !slices.Contains(c.intents, intent) {
		c.log.DebugContext(ctx, "Gemini returned no known intent", "intent", out.Intent)
		return Prediction{}, ErrNoPrediction
	}

	p := Prediction{IntentKey: c.prefix + "/" + intent, Confidence: out.Confidence}
	c.log.DebugContext(ctx, "Gemini prediction", "intent_key", p.IntentKey, "confidence", p.Confidence)
	return p, nil
}
