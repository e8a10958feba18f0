package config

import (
	"fmt"
	"os"

	"github.com/subosito/gotenv"
)

// Credential name aliases in priority order. An env-file value always beats
// the process environment; within a source the first matching alias wins.
var (
	PushoverUserAliases  = []string{"PUSHOVER_USER_KEY", "PUSHOVER_USER"}
	PushoverTokenAliases = []string{"PUSHOVER_API_TOKEN", "PUSHOVER_TOKEN"}
	GeminiKeyAliases     = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
)

// LoadEnvFile parses a key=value env file. A missing file is not an error;
// callers fall back to the process environment.
func LoadEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open env file: %w", err)
	}
	defer f.Close()

	env, err := gotenv.StrictParse(f)
	if err != nil {
		return nil, fmt.Errorf("parse env file %s: %w", path, err)
	}
	return env, nil
}

// ResolveCredential scans candidate variable names in priority order,
// preferring the env-file map over the process environment. Returns the
// empty string when no candidate resolves.
func ResolveCredential(fileEnv map[string]string, candidates ...string) string {
	for _, name := range candidates {
		if v, ok := fileEnv[name]; ok && v != "" {
			return v
		}
	}
	for _, name := range candidates {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ResolveCredentials fills empty Pushover/Gemini settings from the env file
// and process environment. Explicit config values take precedence.
func (c *Config) ResolveCredentials() error {
	fileEnv, err := LoadEnvFile(c.EnvFile)
	if err != nil {
		return err
	}

	if c.Pushover.UserKey == "" {
		c.Pushover.UserKey = ResolveCredential(fileEnv, PushoverUserAliases...)
	}
	if c.Pushover.APIToken == "" {
		c.Pushover.APIToken = ResolveCredential(fileEnv, PushoverTokenAliases...)
	}
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = ResolveCredential(fileEnv, GeminiKeyAliases...)
	}
	return nil
}
