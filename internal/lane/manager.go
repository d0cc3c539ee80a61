package lane

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Authenticator checks a bot's supplied webhook secret.
type Authenticator interface {
	Authenticate(username, secret string) bool
}

// Options tunes a Manager.
type Options struct {
	// IdleTimeout is how long an idle lane is kept before Evict removes it.
	// Zero disables idle eviction.
	IdleTimeout time.Duration
	// MaxLanes caps the lane table; Evict drops the least recently active idle
	// lanes above it. Zero means no cap.
	MaxLanes int
	// TaskTimeout bounds the context handed to each task. Zero means none.
	TaskTimeout time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

// Manager owns the lane table and is its only writer.
type Manager[T any] struct {
	auth    Authenticator
	process ProcessFunc[T]
	opts    Options
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	lanes  map[Key]*Lane[T]
	closed bool
}

// NewManager creates a manager that authenticates through auth and runs
// every dequeued task through process.
func NewManager[T any](auth Authenticator, process ProcessFunc[T], opts Options) *Manager[T] {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager[T]{
		auth:    auth,
		process: process,
		opts:    opts,
		log:     opts.Logger.With("component", "lane_manager"),
		ctx:     ctx,
		cancel:  cancel,
		lanes:   make(map[Key]*Lane[T]),
	}
}

// GetLane authenticates the bot and returns the lane for (bot, chatID),
// creating it if absent. The secret is checked on every call.
func (m *Manager[T]) GetLane(bot, secret string, chatID int64) (*Lane[T], error) {
	if m.auth == nil || !m.auth.Authenticate(bot, secret) {
		return nil, ErrRefused
	}

	key := Key{Bot: bot, ChatID: chatID}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}
	if l, ok := m.lanes[key]; ok {
		return l, nil
	}
	l := &Lane[T]{
		key:         key,
		ctx:         m.ctx,
		process:     m.process,
		taskTimeout: m.opts.TaskTimeout,
		now:         m.opts.Now,
		wg:          &m.wg,
		log:         m.log,
		lastActive:  m.opts.Now(),
	}
	m.lanes[key] = l
	m.log.Debug("Created lane", "lane", key.String(), "lanes", len(m.lanes))
	return l, nil
}

// Submit enqueues task on the lane for (bot, chatID). A lane evicted between
// lookup and enqueue is replaced by a fresh one.
func (m *Manager[T]) Submit(bot, secret string, chatID int64, task T) error {
	for attempt := 0; attempt < 2; attempt++ {
		l, err := m.GetLane(bot, secret, chatID)
		if err != nil {
			return err
		}
		err = l.Enqueue(task)
		if errors.Is(err, ErrLaneClosed) {
			continue
		}
		return err
	}
	return ErrLaneClosed
}

// Len reports the number of lanes in the table.
func (m *Manager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lanes)
}

// Evict drops idle lanes inactive for at least IdleTimeout, then, if the
// table is still above MaxLanes, the least recently active idle lanes.
// Lanes with queued or running work are never evicted.
func (m *Manager[T]) Evict(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	type candidate struct {
		key        Key
		lastActive time.Time
	}
	var idle []candidate

	for key, l := range m.lanes {
		l.mu.Lock()
		if !l.idleLocked() {
			l.mu.Unlock()
			continue
		}
		if m.opts.IdleTimeout > 0 && now.Sub(l.lastActive) >= m.opts.IdleTimeout {
			l.closeLocked()
			delete(m.lanes, key)
			evicted++
		} else {
			idle = append(idle, candidate{key: key, lastActive: l.lastActive})
		}
		l.mu.Unlock()
	}

	if m.opts.MaxLanes > 0 && len(m.lanes) > m.opts.MaxLanes {
		sort.Slice(idle, func(i, j int) bool { return idle[i].lastActive.Before(idle[j].lastActive) })
		for _, c := range idle {
			if len(m.lanes) <= m.opts.MaxLanes {
				break
			}
			l := m.lanes[c.key]
			l.mu.Lock()
			if l.idleLocked() {
				l.closeLocked()
				delete(m.lanes, c.key)
				evicted++
			}
			l.mu.Unlock()
		}
	}

	if evicted > 0 {
		m.log.Info("Evicted idle lanes", "evicted", evicted, "remaining", len(m.lanes))
	}
	return evicted
}

// Close stops accepting tasks and cancels the context of running ones.
// Queued tasks that have not started are dropped.
func (m *Manager[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	dropped := 0
	for _, l := range m.lanes {
		l.mu.Lock()
		l.closeLocked()
		dropped += len(l.pending)
		l.mu.Unlock()
	}
	m.cancel()
	m.log.Info("Lane manager closed", "lanes", len(m.lanes), "pending_dropped", dropped)
}

// Wait blocks until every running task has returned or ctx is done.
func (m *Manager[T]) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
