package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store holds the admin workflow's state: samples and the notification
// messages they were announced in, labels, responses and the admin group
// binding. Lookups report absence with ok=false rather than an error.
type Store interface {
	// AddSample appends a sample and returns its id.
	AddSample(ctx context.Context, text string) (int64, error)
	// LinkSampleToMessage records that messageID announced sampleID in the admin group.
	LinkSampleToMessage(ctx context.Context, messageID int, sampleID int64) error
	SampleForMessage(ctx context.Context, messageID int) (int64, bool, error)

	// SetLabel records intent for sampleID, replacing any previous label.
	SetLabel(ctx context.Context, sampleID int64, intent string) error
	Label(ctx context.Context, sampleID int64) (string, bool, error)

	// SetResponse maps intent to an admin-group message id, replacing any previous one.
	SetResponse(ctx context.Context, intent string, messageID int) error
	Response(ctx context.Context, intent string) (int, bool, error)

	// AdminGroup returns the bound admin group, or the default when nothing was bound.
	AdminGroup(ctx context.Context) (int64, error)
	SetAdminGroup(ctx context.Context, chatID int64) error

	Stats(ctx context.Context) (Stats, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error

	Close() error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db                *sqlx.DB
	logger            *slog.Logger
	defaultAdminGroup int64
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance with migrations applied.
func NewStore(db *sqlx.DB, logger *slog.Logger, defaultAdminGroup int64) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:                db,
		logger:            logger.With("component", "store"),
		defaultAdminGroup: defaultAdminGroup,
	}
}

func (s *sqlxStore) AddSample(ctx context.Context, text string) (int64, error) {
	sample := Sample{Text: text, CreatedAt: time.Now().UTC()}
	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO samples (text, created_at) VALUES (:text, :created_at)`, sample)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to insert sample", "error", err)
		return 0, fmt.Errorf("failed to insert sample: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read sample id: %w", err)
	}
	return id, nil
}

func (s *sqlxStore) LinkSampleToMessage(ctx context.Context, messageID int, sampleID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sample_messages (message_id, sample_id) VALUES (?, ?)
		ON CONFLICT (message_id) DO UPDATE SET sample_id = excluded.sample_id`,
		messageID, sampleID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to link sample to message", "message_id", messageID, "sample_id", sampleID, "error", err)
		return fmt.Errorf("failed to link sample %d to message %d: %w", sampleID, messageID, err)
	}
	return nil
}

func (s *sqlxStore) SampleForMessage(ctx context.Context, messageID int) (int64, bool, error) {
	var sampleID int64
	err := s.db.GetContext(ctx, &sampleID, `SELECT sample_id FROM sample_messages WHERE message_id = ?`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up sample for message %d: %w", messageID, err)
	}
	return sampleID, true, nil
}

func (s *sqlxStore) SetLabel(ctx context.Context, sampleID int64, intent string) error {
	label := Label{SampleID: sampleID, Intent: intent, UpdatedAt: time.Now().UTC()}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO labels (sample_id, intent, updated_at) VALUES (:sample_id, :intent, :updated_at)
		ON CONFLICT (sample_id) DO UPDATE SET intent = excluded.intent, updated_at = excluded.updated_at`,
		label)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save label", "sample_id", sampleID, "error", err)
		return fmt.Errorf("failed to save label for sample %d: %w", sampleID, err)
	}
	return nil
}

func (s *sqlxStore) Label(ctx context.Context, sampleID int64) (string, bool, error) {
	var intent string
	err := s.db.GetContext(ctx, &intent, `SELECT intent FROM labels WHERE sample_id = ?`, sampleID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get label for sample %d: %w", sampleID, err)
	}
	return intent, true, nil
}

func (s *sqlxStore) SetResponse(ctx context.Context, intent string, messageID int) error {
	resp := Response{Intent: intent, MessageID: messageID, UpdatedAt: time.Now().UTC()}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO responses (intent, message_id, updated_at) VALUES (:intent, :message_id, :updated_at)
		ON CONFLICT (intent) DO UPDATE SET message_id = excluded.message_id, updated_at = excluded.updated_at`,
		resp)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save response", "intent", intent, "error", err)
		return fmt.Errorf("failed to save response for %s: %w", intent, err)
	}
	return nil
}

func (s *sqlxStore) Response(ctx context.Context, intent string) (int, bool, error) {
	var messageID int
	err := s.db.GetContext(ctx, &messageID, `SELECT message_id FROM responses WHERE intent = ?`, intent)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get response for %s: %w", intent, err)
	}
	return messageID, true, nil
}

func (s *sqlxStore) AdminGroup(ctx context.Context) (int64, error) {
	var chatID int64
	err := s.db.GetContext(ctx, &chatID, `SELECT chat_id FROM admin_group WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return s.defaultAdminGroup, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get admin group: %w", err)
	}
	return chatID, nil
}

func (s *sqlxStore) SetAdminGroup(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_group (id, chat_id, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET chat_id = excluded.chat_id, updated_at = excluded.updated_at`,
		chatID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to bind admin group %d: %w", chatID, err)
	}
	s.logger.InfoContext(ctx, "Admin group bound", "chat_id", chatID)
	return nil
}

func (s *sqlxStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.GetContext(ctx, &st, `
		SELECT
			(SELECT COUNT(*) FROM samples)   AS samples,
			(SELECT COUNT(*) FROM labels)    AS labels,
			(SELECT COUNT(*) FROM responses) AS responses`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count workflow state: %w", err)
	}
	if st.AdminGroupID, err = s.AdminGroup(ctx); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// RunSQLMaintenance performs database maintenance (VACUUM).
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}

// Close closes the database connection pool.
func (s *sqlxStore) Close() error {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Error closing database connection", "error", err)
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.logger.Info("Database connection closed successfully.")
	return nil
}
