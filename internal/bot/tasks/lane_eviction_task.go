package tasks

import (
	"context"
	"time"
)

// newLaneEvictionTask drops idle conversation lanes.
func newLaneEvictionTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "lane_eviction")
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		evicted := deps.Lanes.Evict(now())
		log.DebugContext(ctx, "Lane eviction sweep finished", "evicted", evicted, "remaining", deps.Lanes.Len())
		return nil
	}
}
