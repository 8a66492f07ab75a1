package config

import (
	"fmt"
	"strings"

	"github.com/bricoler/bricoler/engine/core"
)

// AddOverride parses one <task>/<param>=<value> token into the override
// pool. Tokens that do not match that shape are rejected here, before any
// schedule is built.
func (c *Config) AddOverride(token string) error {
	key, val, found := strings.Cut(token, "=")
	if !found {
		return malformedOverride(token)
	}
	taskName, param, found := strings.Cut(key, "/")
	if !found || taskName == "" || param == "" {
		return malformedOverride(token)
	}
	if c.Overrides == nil {
		c.Overrides = make(map[string]map[string]string)
	}
	if _, ok := c.Overrides[taskName]; !ok {
		c.Overrides[taskName] = make(map[string]string)
	}
	c.Overrides[taskName][param] = val
	c.OverrideTokens = append(c.OverrideTokens, token)
	return nil
}

func malformedOverride(token string) error {
	return core.NewError(
		fmt.Errorf("task parameters must be of the form <task>/<param>=<value>: %s", token),
		"MALFORMED_PARAMETER",
		map[string]any{"token": token},
	)
}
