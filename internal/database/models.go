package database

import "time"

// Sample is a support question kept for later labeling.
type Sample struct {
	ID        int64     `db:"id"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

// Label assigns an intent token to a sample.
type Label struct {
	SampleID  int64     `db:"sample_id"`
	Intent    string    `db:"intent"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Response points an intent at the admin-group message that answers it.
type Response struct {
	Intent    string    `db:"intent"`
	MessageID int       `db:"message_id"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Stats summarises stored workflow state.
type Stats struct {
	Samples      int   `db:"samples"`
	Labels       int   `db:"labels"`
	Responses    int   `db:"responses"`
	AdminGroupID int64 `db:"-"`
}
