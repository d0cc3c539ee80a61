package registry_test

import (
	"context"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/helpdeskbot/internal/event"
	"github.com/edgard/helpdeskbot/internal/registry"
)

func noop(context.Context, *models.Update) error { return nil }

func TestLookupUnknownBot(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	cbs, ok := reg.Lookup("ghost")
	assert.False(t, ok)
	assert.Nil(t, cbs)
	assert.False(t, reg.Authenticate("ghost", ""))
}

func TestRegisterLastWins(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	reg.Register("worker", "s1", registry.Callbacks{event.KindPMJoin: noop})
	reg.Register("worker", "s2", registry.Callbacks{event.KindGroupMessage: noop})

	assert.False(t, reg.Authenticate("worker", "s1"))
	assert.True(t, reg.Authenticate("worker", "s2"))

	cbs, ok := reg.Lookup("worker")
	require.True(t, ok)
	_, hasJoin := cbs[event.KindPMJoin]
	_, hasMsg := cbs[event.KindGroupMessage]
	assert.False(t, hasJoin)
	assert.True(t, hasMsg)
}

func TestRegisterDropsNilHandlers(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	reg.Register("worker", "s", registry.Callbacks{event.KindPMJoin: nil, event.KindPMMessage: noop})
	cbs, ok := reg.Lookup("worker")
	require.True(t, ok)
	assert.Len(t, cbs, 1)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	reg.Register("admin", "secret", nil)

	assert.True(t, reg.Authenticate("admin", "secret"))
	assert.False(t, reg.Authenticate("admin", "Secret"))
	assert.False(t, reg.Authenticate("admin", ""))
	assert.False(t, reg.Authenticate("worker", "secret"))
}

func TestUsernamesSorted(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	reg.Register("zeta", "", nil)
	reg.Register("alpha", "", nil)
	assert.Equal(t, []string{"alpha", "zeta"}, reg.Usernames())
}
