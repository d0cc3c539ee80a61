package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks struct tags and the rules that span several sections.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	var errs []error

	seen := make(map[string]bool, len(c.Bots))
	admins := 0
	for _, b := range c.Bots {
		if seen[b.Username] {
			errs = append(errs, fmt.Errorf("duplicate bot username %q", b.Username))
		}
		seen[b.Username] = true
		if b.Role == RoleAdmin {
			admins++
		}
	}
	if admins > 1 {
		errs = append(errs, fmt.Errorf("at most one admin bot is allowed, got %d", admins))
	}
	if admins == 0 && len(c.BotsByRole(RoleSupport)) > 0 {
		errs = append(errs, errors.New("support bots require an admin bot"))
	}
	if admins > 0 && c.Workflow.AdminGroupID == 0 {
		errs = append(errs, errors.New("workflow.admin_group_id must be a chat id, not 0"))
	}

	switch c.NLU.Backend {
	case "rasa":
		if c.NLU.Rasa.BaseURL == "" {
			errs = append(errs, errors.New("nlu.rasa.base_url is required for the rasa backend"))
		}
	case "gemini":
		if c.NLU.Gemini.APIKey == "" {
			errs = append(errs, errors.New("nlu.gemini.api_key is required for the gemini backend"))
		}
		if len(c.NLU.Gemini.Intents) == 0 {
			errs = append(errs, errors.New("nlu.gemini.intents must list at least one intent"))
		}
	}

	if c.Store.Backend == "sqlite" && c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required for the sqlite store"))
	}

	if c.HTTP.SetWebhooksOnStart && c.HTTP.PublicURL == "" {
		errs = append(errs, errors.New("http.public_url is required when set_webhooks_on_start is enabled"))
	}

	for name, task := range c.Scheduler.Tasks {
		if task.Enabled && task.Schedule == "" {
			errs = append(errs, fmt.Errorf("scheduler task %q is enabled without a schedule", name))
		}
	}

	return errors.Join(errs...)
}
