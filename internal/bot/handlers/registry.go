// Package handlers contains the callback sets bound to each bot identity,
// keyed by the semantic event they react to.
package handlers

import (
	"fmt"

	"github.com/edgard/helpdeskbot/internal/config"
	"github.com/edgard/helpdeskbot/internal/registry"
)

// CallbacksFor returns the callback set for a configured role.
func CallbacksFor(role string, deps HandlerDeps) (registry.Callbacks, error) {
	switch role {
	case config.RoleWorker:
		return WorkerCallbacks(deps), nil
	case config.RoleAdmin:
		if deps.Workflow == nil {
			return nil, fmt.Errorf("admin bot %s needs a workflow", deps.Username)
		}
		return AdminCallbacks(deps), nil
	case config.RoleSupport:
		if deps.Workflow == nil {
			return nil, fmt.Errorf("support bot %s needs a workflow", deps.Username)
		}
		return SupportCallbacks(deps), nil
	default:
		return nil, fmt.Errorf("unknown bot role %q", role)
	}
}

// RegisterAll registers every bot with its role's callbacks.
func RegisterAll(reg *registry.Registry, bots []config.BotConfig, depsFor func(config.BotConfig) HandlerDeps) error {
	for _, b := range bots {
		callbacks, err := CallbacksFor(b.Role, depsFor(b))
		if err != nil {
			return err
		}
		reg.Register(b.Username, b.Secret, callbacks)
	}
	return nil
}
