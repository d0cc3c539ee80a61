// Package telegramtest provides an in-memory telegram.Client for tests.
package telegramtest

import (
	"context"
	"sync"

	"github.com/edgard/helpdeskbot/internal/telegram"
)

// Call records one outbound request.
type Call struct {
	Method     string
	ChatID     int64
	FromChatID int64
	MessageID  int
	ReplyTo    int
	Text       string
	URL        string
}

// Fake records calls and hands out increasing message ids starting at 1000.
// Set Err[method] to make that method fail.
type Fake struct {
	mu     sync.Mutex
	calls  []Call
	nextID int
	Err    map[string]error
}

var _ telegram.Client = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{nextID: 1000, Err: map[string]error{}}
}

func (f *Fake) record(c Call) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if err := f.Err[c.Method]; err != nil {
		return 0, err
	}
	f.nextID++
	return f.nextID, nil
}

func (f *Fake) SendMessage(_ context.Context, p telegram.SendParams) (int, error) {
	return f.record(Call{Method: "SendMessage", ChatID: p.ChatID, Text: p.Text, ReplyTo: p.ReplyTo})
}

func (f *Fake) CopyMessage(_ context.Context, p telegram.CopyParams) (int, error) {
	return f.record(Call{Method: "CopyMessage", ChatID: p.ChatID, FromChatID: p.FromChatID, MessageID: p.MessageID, ReplyTo: p.ReplyTo})
}

func (f *Fake) ForwardMessage(_ context.Context, p telegram.ForwardParams) (int, error) {
	return f.record(Call{Method: "ForwardMessage", ChatID: p.ChatID, FromChatID: p.FromChatID, MessageID: p.MessageID})
}

func (f *Fake) LeaveChat(_ context.Context, chatID int64) error {
	_, err := f.record(Call{Method: "LeaveChat", ChatID: chatID})
	return err
}

func (f *Fake) SetWebhook(_ context.Context, url string) error {
	_, err := f.record(Call{Method: "SetWebhook", URL: url})
	return err
}

// Calls returns a copy of the recorded calls, optionally filtered by method.
func (f *Fake) Calls(method ...string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if len(method) == 0 || c.Method == method[0] {
			out = append(out, c)
		}
	}
	return out
}

// LastID is the id returned by the most recent successful call.
func (f *Fake) LastID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextID
}
