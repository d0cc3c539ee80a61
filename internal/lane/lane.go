// Package lane serialises work per (bot, conversation). Each lane runs at
// most one task at a time, in arrival order, and lanes never block each other.
package lane

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrRefused is returned when the bot is unknown or the secret does not match.
	ErrRefused = errors.New("lane refused: unknown bot or secret mismatch")
	// ErrLaneClosed is returned when enqueueing on a lane that was evicted or shut down.
	ErrLaneClosed = errors.New("lane closed")
	// ErrManagerClosed is returned by a manager after Close.
	ErrManagerClosed = errors.New("lane manager closed")
)

// Key identifies a lane.
type Key struct {
	Bot    string
	ChatID int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Bot, k.ChatID)
}

// ProcessFunc handles one task taken off a lane.
type ProcessFunc[T any] func(ctx context.Context, task T)

// Lane is an unbounded FIFO of pending tasks with a concurrency cap of one.
// A drain goroutine exists only while the lane has work.
type Lane[T any] struct {
	key         Key
	ctx         context.Context
	process     ProcessFunc[T]
	taskTimeout time.Duration
	now         func() time.Time
	wg          *sync.WaitGroup
	log         *slog.Logger

	mu         sync.Mutex
	pending    []T
	running    bool
	closed     bool
	lastActive time.Time
}

// Key returns the lane's (bot, conversation) key.
func (l *Lane[T]) Key() Key { return l.key }

// Enqueue appends task to the lane without waiting for it to run.
func (l *Lane[T]) Enqueue(task T) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLaneClosed
	}
	l.pending = append(l.pending, task)
	l.lastActive = l.now()
	if !l.running {
		l.running = true
		l.wg.Add(1)
		go l.drain()
	}
	return nil
}

// Pending reports the number of queued tasks, excluding the running one.
func (l *Lane[T]) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Idle reports whether the lane has nothing queued or running.
func (l *Lane[T]) Idle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.idleLocked()
}

func (l *Lane[T]) idleLocked() bool {
	return !l.running && len(l.pending) == 0
}

func (l *Lane[T]) drain() {
	defer l.wg.Done()
	for {
		l.mu.Lock()
		if len(l.pending) == 0 || l.ctx.Err() != nil {
			l.running = false
			l.lastActive = l.now()
			l.mu.Unlock()
			return
		}
		task := l.pending[0]
		var zero T
		l.pending[0] = zero
		l.pending = l.pending[1:]
		l.mu.Unlock()

		l.run(task)
	}
}

func (l *Lane[T]) run(task T) {
	ctx := l.ctx
	if l.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.taskTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("Lane task panicked", "lane", l.key.String(), "panic", r)
		}
	}()
	l.process(ctx, task)
}

// closeLocked marks the lane as closed. Callers hold l.mu.
func (l *Lane[T]) closeLocked() {
	l.closed = true
}
