// Package tasks implements the scheduled maintenance tasks.
package tasks

import (
	"log/slog"
	"time"

	"github.com/edgard/helpdeskbot/internal/database"
)

// LaneEvicter is the part of the lane manager the eviction sweep drives.
type LaneEvicter interface {
	Evict(now time.Time) int
	Len() int
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Lanes  LaneEvicter
	// Now defaults to time.Now.
	Now func() time.Time
}
