package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateAuth()
}

func (c *Config) validateRemote() error {
	if !c.Remote.Enabled {
		return nil
	}
	base := strings.TrimSpace(c.Remote.BaseURL)
	if base == "" {
		return errors.New("remote.base_url must be set when remote.enabled is true")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("remote.base_url %q is not a valid URL", base)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateAuth() error {
	seen := make(map[string]struct{}, len(c.Auth))
	for _, user := range c.Auth {
		if _, dup := seen[user.Username]; dup {
			return fmt.Errorf("auth: duplicate username %q", user.Username)
		}
		seen[user.Username] = struct{}{}
	}
	return nil
}
