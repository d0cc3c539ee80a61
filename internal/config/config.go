package config

// BotsByRole returns the configured bots with the given role, in config order.
func (c *Config) BotsByRole(role string) []BotConfig {
	var out []BotConfig
	for _, b := range c.Bots {
		if b.Role == role {
			out = append(out, b)
		}
	}
	return out
}

// AdminBot returns the admin bot, if one is configured.
func (c *Config) AdminBot() (BotConfig, bool) {
	bots := c.BotsByRole(RoleAdmin)
	if len(bots) == 0 {
		return BotConfig{}, false
	}
	return bots[0], true
}
