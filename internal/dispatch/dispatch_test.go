package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/helpdeskbot/internal/dispatch"
	"github.com/edgard/helpdeskbot/internal/event"
	"github.com/edgard/helpdeskbot/internal/lane"
	"github.com/edgard/helpdeskbot/internal/registry"
)

func groupText(chatID int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{Chat: models.Chat{ID: chatID, Type: models.ChatTypeGroup}, Text: text}}
}

func TestProcessInvokesMatchingCallback(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	var got []string
	reg.Register("worker", "s", registry.Callbacks{
		event.KindGroupMessage: func(_ context.Context, u *models.Update) error {
			got = append(got, u.Message.Text)
			return nil
		},
		event.KindPMMessage: func(context.Context, *models.Update) error {
			t.Fatal("wrong callback")
			return nil
		},
	})

	d := dispatch.New(reg, nil)
	d.Process(context.Background(), dispatch.Task{BotUsername: "worker", Update: groupText(-1, "hello")})
	assert.Equal(t, []string{"hello"}, got)
}

func TestProcessDropsUnclassifiedAndMissingCallbacks(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Register("worker", "s", registry.Callbacks{})

	var errs []error
	onErr := func(err error) { errs = append(errs, err) }

	d := dispatch.New(reg, nil)
	d.Process(context.Background(), dispatch.Task{BotUsername: "worker", Update: &models.Update{}, OnError: onErr})
	d.Process(context.Background(), dispatch.Task{BotUsername: "worker", Update: groupText(-1, "x"), OnError: onErr})
	d.Process(context.Background(), dispatch.Task{BotUsername: "ghost", Update: groupText(-1, "x"), OnError: onErr})
	assert.Empty(t, errs)
}

func TestProcessReportsFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	reg := registry.New()
	reg.Register("worker", "s", registry.Callbacks{
		event.KindGroupMessage: func(_ context.Context, u *models.Update) error {
			if u.Message.Text == "panic" {
				panic("kaboom")
			}
			return boom
		},
	})

	d := dispatch.New(reg, nil)

	var reported error
	d.Process(context.Background(), dispatch.Task{BotUsername: "worker", Update: groupText(-1, "fail"), OnError: func(err error) { reported = err }})
	assert.ErrorIs(t, reported, boom)

	reported = nil
	d.Process(context.Background(), dispatch.Task{BotUsername: "worker", Update: groupText(-1, "panic"), OnError: func(err error) { reported = err }})
	var pe *dispatch.PanicError
	require.ErrorAs(t, reported, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestMiddlewareOrder(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	var trace []string
	reg.Register("worker", "s", registry.Callbacks{
		event.KindGroupMessage: func(context.Context, *models.Update) error {
			trace = append(trace, "callback")
			return nil
		},
	})
	mw := func(name string) dispatch.Middleware {
		return func(next dispatch.Handler) dispatch.Handler {
			return func(ctx context.Context, c dispatch.Call) error {
				trace = append(trace, name+":"+c.Kind.String())
				return next(ctx, c)
			}
		}
	}

	d := dispatch.New(reg, nil, mw("outer"), mw("inner"))
	d.Process(context.Background(), dispatch.Task{BotUsername: "worker", Update: groupText(-1, "x")})
	assert.Equal(t, []string{"outer:group_message", "inner:group_message", "callback"}, trace)
}

func TestFailingTaskDoesNotStopLane(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	var mu sync.Mutex
	var seen []string
	done := make(chan struct{}, 3)
	reg.Register("worker", "s", registry.Callbacks{
		event.KindGroupMessage: func(_ context.Context, u *models.Update) error {
			mu.Lock()
			seen = append(seen, u.Message.Text)
			mu.Unlock()
			done <- struct{}{}
			if u.Message.Text == "bad" {
				return errors.New("bad update")
			}
			return nil
		},
	})

	d := dispatch.New(reg, nil)
	m := lane.NewManager[dispatch.Task](reg, d.Process, lane.Options{})
	defer m.Close()

	var failures []error
	var fmu sync.Mutex
	onErr := func(err error) {
		fmu.Lock()
		failures = append(failures, err)
		fmu.Unlock()
	}
	for _, text := range []string{"first", "bad", "third"} {
		task := dispatch.Task{BotUsername: "worker", BotSecret: "s", ChatID: -9, Update: groupText(-9, text), OnError: onErr}
		require.NoError(t, m.Submit("worker", "s", -9, task))
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out")
		}
	}

	mu.Lock()
	assert.Equal(t, []string{"first", "bad", "third"}, seen)
	mu.Unlock()

	require.Eventually(t, func() bool {
		fmu.Lock()
		defer fmu.Unlock()
		return len(failures) == 1
	}, time.Second, 5*time.Millisecond)
}
