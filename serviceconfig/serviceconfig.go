// Package serviceconfig provides per-command default Timeout/Retry
// configuration, so Rpc.Cmd can pre-populate a Request's builder
// defaults without every call site repeating them. See SPEC_FULL.md §4.13.
package serviceconfig

import "strings"

// MethodConfig configures a matched command's Request defaults.
type MethodConfig struct {
	// TimeoutMs is the default timeout in milliseconds. Zero means "leave
	// Request's own 3000ms default in place".
	TimeoutMs uint32
	// Retry is the default retry count (-1 infinite, 0 none, n>0 bounded).
	Retry int32
}

// Config maps command patterns to MethodConfig, matched in order of
// specificity:
//  1. "cmd" — exact match
//  2. "prefix/*" — commands whose part before the last "/" is prefix
//     ("users/*" matches "users/get" but not "users/a/get")
//  3. "*" — global default
type Config struct {
	methods map[string]MethodConfig
}

// New creates an empty Config.
func New() *Config {
	return &Config{methods: make(map[string]MethodConfig)}
}

// Set assigns cfg to pattern.
func (c *Config) Set(pattern string, cfg MethodConfig) *Config {
	c.methods[pattern] = cfg
	return c
}

// SetTimeout is a convenience setter for just the timeout on pattern.
func (c *Config) SetTimeout(pattern string, timeoutMs uint32) *Config {
	cfg := c.methods[pattern]
	cfg.TimeoutMs = timeoutMs
	c.methods[pattern] = cfg
	return c
}

// SetRetry is a convenience setter for just the retry count on pattern.
func (c *Config) SetRetry(pattern string, retry int32) *Config {
	cfg := c.methods[pattern]
	cfg.Retry = retry
	c.methods[pattern] = cfg
	return c
}

// Lookup finds the most specific MethodConfig matching cmd.
func (c *Config) Lookup(cmd string) (MethodConfig, bool) {
	if c == nil || len(c.methods) == 0 {
		return MethodConfig{}, false
	}
	if cfg, ok := c.methods[cmd]; ok {
		return cfg, true
	}
	if i := strings.LastIndex(cmd, "/"); i >= 0 {
		prefixPattern := cmd[:i] + "/*"
		if cfg, ok := c.methods[prefixPattern]; ok {
			return cfg, true
		}
	}
	if cfg, ok := c.methods["*"]; ok {
		return cfg, true
	}
	return MethodConfig{}, false
}
