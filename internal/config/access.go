package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const redacted = "[redacted]"

// Redacted returns a copy of c with token secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.API.Auth.Tokens = make([]APIToken, len(c.API.Auth.Tokens))
	for i, tok := range c.API.Auth.Tokens {
		tok.Token = redacted
		out.API.Auth.Tokens[i] = tok
	}
	out.Engine.Languages = append([]string(nil), c.Engine.Languages...)
	return &out
}

// ResolvePath makes a relative p relative to the directory of the loaded
// file. Configs built from defaults resolve against the working directory.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.SourcePath == "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.SourcePath), p)
}

// GetPath retrieves a value using a dot-notation path such as
// "engine.workers". An empty path returns the whole (redacted) config.
func (c *Config) GetPath(path string) (any, error) {
	data, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return getValue(m, path)
}

func getValue(m map[string]any, path string) (any, error) {
	var current any = m
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}

		node, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path %q breaks at %q (not a map)", path, part)
		}
		val, exists := node[part]
		if !exists {
			return nil, fmt.Errorf("path %q: key %q not found", path, part)
		}
		current = val
	}
	return current, nil
}
