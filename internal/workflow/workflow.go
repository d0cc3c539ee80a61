// Package workflow implements intent labeling in the admin group and
// auto-responses in the support group.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/helpdeskbot/internal/database"
	"github.com/edgard/helpdeskbot/internal/nlu"
	"github.com/edgard/helpdeskbot/internal/telegram"
)

var intentPattern = regexp.MustCompile(`^#\w+$`)

// ErrNoAdminGroup is returned when a support message cannot be announced
// because no admin group is bound.
var ErrNoAdminGroup = errors.New("no admin group bound")

// IsIntent reports whether text is a single intent token such as "#billing".
func IsIntent(text string) bool {
	return intentPattern.MatchString(strings.TrimSpace(text))
}

// GetIntent returns the intent token carried by text.
func GetIntent(text string) string {
	return strings.TrimSpace(text)
}

// responseKey maps a predicted intent onto the token admins register responses under.
func responseKey(intent string) string {
	if strings.HasPrefix(intent, "#") {
		return intent
	}
	return "#" + intent
}

// Admin commands reserved for model management. They are accepted and ignored.
var adminCommands = map[string]bool{
	"/train":   true,
	"/reset":   true,
	"/status":  true,
	"/predict": true,
}

// Criteria identifies a group by username or title. Empty fields never match.
type Criteria struct {
	Username string
	Title    string
}

// Matches reports whether chat satisfies either criterion.
func (c Criteria) Matches(chat models.Chat) bool {
	return (c.Username != "" && chat.Username == c.Username) ||
		(c.Title != "" && chat.Title == c.Title)
}

// Config tunes the workflow.
type Config struct {
	AdminGroup          Criteria
	SupportGroup        Criteria
	ConfidenceThreshold float64
	IntentPrefixLength  int
}

// Outcome describes how one support message was handled.
type Outcome struct {
	Intent         string
	Confidence     float64
	Action         Action
	SampleID       int64
	NotificationID int
}

// Workflow ties the store, the classifier and the admin bot's client together.
type Workflow struct {
	store      database.Store
	classifier nlu.Classifier
	client     telegram.Client
	cfg        Config
	log        *slog.Logger
}

// New builds a Workflow. client is the admin bot's outbound client; every
// message the workflow sends goes through it.
func New(store database.Store, classifier nlu.Classifier, client telegram.Client, cfg Config, logger *slog.Logger) *Workflow {
	if classifier == nil {
		classifier = nlu.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		store:      store,
		classifier: classifier,
		client:     client,
		cfg:        cfg,
		log:        logger.With("component", "workflow"),
	}
}

// IsAdminGroup reports whether chat is the admin group, either by matching
// the configured criteria or by being the currently bound chat.
func (w *Workflow) IsAdminGroup(ctx context.Context, chat models.Chat) bool {
	if w.cfg.AdminGroup.Matches(chat) {
		return true
	}
	bound, err := w.store.AdminGroup(ctx)
	if err != nil {
		w.log.WarnContext(ctx, "Failed to read admin group binding", "error", err)
		return false
	}
	return chat.ID == bound
}

// IsSupportGroup reports whether chat matches the support group criteria.
func (w *Workflow) IsSupportGroup(chat models.Chat) bool {
	return w.cfg.SupportGroup.Matches(chat)
}

// HandleAdminJoin binds the admin group when the joined chat matches the
// admin criteria. It reports whether the binding changed.
func (w *Workflow) HandleAdminJoin(ctx context.Context, update *models.Update) (bool, error) {
	if update == nil || update.Message == nil {
		return false, nil
	}
	chat := update.Message.Chat
	if !w.cfg.AdminGroup.Matches(chat) {
		return false, nil
	}
	if err := w.store.SetAdminGroup(ctx, chat.ID); err != nil {
		return false, fmt.Errorf("failed to bind admin group: %w", err)
	}
	w.log.InfoContext(ctx, "Admin group bound from join", "chat_id", chat.ID, "title", chat.Title)
	return true, nil
}

// HandleAdminMessage processes an admin-group message. An intent token sent
// as a reply labels the replied-to sample notification, or, when the target
// is not a sample, registers the replied-to message as that intent's response.
func (w *Workflow) HandleAdminMessage(ctx context.Context, update *models.Update) error {
	if update == nil || update.Message == nil {
		return nil
	}
	msg := update.Message

	if !IsIntent(msg.Text) {
		if adminCommands[strings.TrimSpace(msg.Text)] {
			w.log.DebugContext(ctx, "Admin command accepted", "command", strings.TrimSpace(msg.Text))
		}
		return nil
	}

	intent := GetIntent(msg.Text)
	target := msg.ReplyToMessage
	if target == nil {
		return nil
	}

	sampleID, isSample, err := w.store.SampleForMessage(ctx, target.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve replied message: %w", err)
	}

	var ack string
	if isSample {
		if err := w.store.SetLabel(ctx, sampleID, intent); err != nil {
			return err
		}
		w.log.InfoContext(ctx, "Sample labeled", "sample_id", sampleID, "intent", intent)
		ack = "Label changed to " + intent
	} else {
		if err := w.store.SetResponse(ctx, intent, target.ID); err != nil {
			return err
		}
		w.log.InfoContext(ctx, "Response registered", "intent", intent, "message_id", target.ID)
		ack = "Response added for " + intent
	}

	if _, err := w.client.SendMessage(ctx, telegram.SendParams{ChatID: msg.Chat.ID, Text: ack, ReplyTo: target.ID}); err != nil {
		return fmt.Errorf("failed to acknowledge %s: %w", intent, err)
	}
	return nil
}

// HandleSupportMessage classifies a support question, answers it when a
// confident prediction has a registered response, and always records it as
// a sample announced in the admin group.
func (w *Workflow) HandleSupportMessage(ctx context.Context, update *models.Update) (Outcome, error) {
	if update == nil || update.Message == nil {
		return Outcome{}, nil
	}
	msg := update.Message
	log := w.log.With("chat_id", msg.Chat.ID, "message_id", msg.ID)

	var errs []error

	pred, err := w.classifier.Parse(ctx, msg.Text)
	if err != nil {
		if !errors.Is(err, nlu.ErrNoPrediction) {
			log.WarnContext(ctx, "Classification failed, treating as no prediction", "error", err)
		}
		pred = nlu.Prediction{}
	}

	out := Outcome{
		Intent:     nlu.IntentFromKey(pred.IntentKey, w.cfg.IntentPrefixLength),
		Confidence: pred.Confidence,
	}

	var responseID int
	var hasResponse bool
	if out.Intent != "" && out.Confidence >= w.cfg.ConfidenceThreshold {
		responseID, hasResponse, err = w.store.Response(ctx, responseKey(out.Intent))
		if err != nil {
			errs = append(errs, err)
			hasResponse = false
		}
	}
	out.Action = Decide(out.Intent, out.Confidence, w.cfg.ConfidenceThreshold, hasResponse)

	adminGroup, groupErr := w.store.AdminGroup(ctx)
	if groupErr != nil {
		errs = append(errs, groupErr)
	}

	if out.Action == ActionAnswered && groupErr == nil {
		if _, cerr := w.client.CopyMessage(ctx, telegram.CopyParams{
			ChatID:     msg.Chat.ID,
			FromChatID: adminGroup,
			MessageID:  responseID,
			ReplyTo:    msg.ID,
		}); cerr != nil {
			log.ErrorContext(ctx, "Failed to send auto-response", "intent", out.Intent, "error", cerr)
			errs = append(errs, cerr)
		}
	}

	out.SampleID, err = w.store.AddSample(ctx, msg.Text)
	if err != nil {
		errs = append(errs, err)
		return out, errors.Join(errs...)
	}

	switch {
	case groupErr != nil:
		// Already in errs.
	case adminGroup == 0:
		log.WarnContext(ctx, "Sample recorded but not announced: no admin group bound", "sample_id", out.SampleID)
		errs = append(errs, ErrNoAdminGroup)
	default:
		out.NotificationID, err = w.client.SendMessage(ctx, telegram.SendParams{
			ChatID: adminGroup,
			Text:   notification(msg, out),
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to notify admin group", "admin_group", adminGroup, "error", err)
			errs = append(errs, err)
		} else if err := w.store.LinkSampleToMessage(ctx, out.NotificationID, out.SampleID); err != nil {
			errs = append(errs, err)
		}
	}

	log.InfoContext(ctx, "Support message handled",
		"intent", out.Intent, "confidence", out.Confidence, "action", out.Action.String(), "sample_id", out.SampleID)
	return out, errors.Join(errs...)
}

func notification(msg *models.Message, out Outcome) string {
	var from string
	if msg.From != nil {
		from = msg.From.Username
		if from == "" {
			from = msg.From.FirstName
		}
	}
	return fmt.Sprintf("New query from %s\nText: %s\nPrediction: %s\nConfidence: %s\nAction: %s",
		from, msg.Text, out.Intent, strconv.FormatFloat(out.Confidence, 'f', -1, 64), out.Action)
}
