// Package registry holds the bot identities served by this process: their
// shared webhook secret and the callbacks registered for each semantic event.
package registry

import (
	"context"
	"crypto/subtle"
	"sort"
	"sync"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/helpdeskbot/internal/event"
)

// Handler processes one classified update.
type Handler func(ctx context.Context, update *models.Update) error

// Callbacks maps each semantic event to the handler that processes it.
// Events without an entry are ignored for that bot.
type Callbacks map[event.Kind]Handler

type identity struct {
	secret    string
	callbacks Callbacks
}

// Registry is a table of bot identities keyed by username.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	bots map[string]identity
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{bots: make(map[string]identity)}
}

// Register associates username with its secret and callbacks. Registering
// the same username again replaces the previous entry.
func (r *Registry) Register(username, secret string, callbacks Callbacks) {
	copied := make(Callbacks, len(callbacks))
	for kind, h := range callbacks {
		if h != nil {
			copied[kind] = h
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bots[username] = identity{secret: secret, callbacks: copied}
}

// Lookup returns the callbacks of a registered bot.
func (r *Registry) Lookup(username string) (Callbacks, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bots[username]
	if !ok {
		return nil, false
	}
	return id.callbacks, true
}

// Authenticate reports whether username is registered and secret matches
// its registered secret.
func (r *Registry) Authenticate(username, secret string) bool {
	r.mu.RLock()
	id, ok := r.bots[username]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(id.secret), []byte(secret)) == 1
}

// Usernames lists registered bots in sorted order.
func (r *Registry) Usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.bots))
	for name := range r.bots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
