package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/helpdeskbot/internal/config"
)

// ScheduledTaskFunc defines the standard signature for all scheduled tasks.
// The context provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns the scheduled tasks keyed by the name used in the
// scheduler.tasks config section. Tasks whose dependencies are missing are left out.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	tasks := make(map[string]ScheduledTaskFunc)

	if deps.Lanes != nil {
		tasks[config.TaskLaneEviction] = newLaneEvictionTask(deps)
	}
	if deps.Store != nil {
		tasks[config.TaskSQLMaintenance] = newSQLMaintenanceTask(deps)
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
