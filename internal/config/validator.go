package config

import (
	"errors"
	"fmt"

	"github.com/mattjoyce/lingua/internal/auth"
	"github.com/mattjoyce/lingua/internal/command"
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var knownLanguages = map[string]bool{
	command.Relational.String(): true,
	command.Graph.String():      true,
}

// Validate reports every problem found in cfg.
func Validate(cfg *Config) error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if !validLogLevels[cfg.Service.LogLevel] {
		add("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if cfg.Dataset.Name == "" {
		add("dataset.name is required")
	}
	if cfg.Dataset.Path == "" {
		add("dataset.path is required")
	}

	if cfg.API.Listen == "" {
		add("api.listen is required")
	}
	if cfg.API.ReadTimeout < 0 || cfg.API.WriteTimeout < 0 || cfg.API.ShutdownTimeout < 0 {
		add("api timeouts must not be negative")
	}
	if cfg.API.MaxBodyBytes <= 0 {
		add("api.max_body_bytes must be positive")
	}
	if !auth.KnownRole(cfg.API.Auth.AnonymousRole) {
		add("api.auth.anonymous_role: unknown role %q", cfg.API.Auth.AnonymousRole)
	}
	seen := make(map[string]int, len(cfg.API.Auth.Tokens))
	for i, tok := range cfg.API.Auth.Tokens {
		switch {
		case tok.Token == "":
			add("api.auth.tokens[%d].token is required", i)
		case envVarPattern.MatchString(tok.Token):
			add("api.auth.tokens[%d].token: environment variable ${%s} is not set", i, envVarPattern.FindStringSubmatch(tok.Token)[1])
		}
		if !auth.KnownRole(tok.Role) {
			add("api.auth.tokens[%d].role: unknown role %q", i, tok.Role)
		}
		if j, dup := seen[tok.Token]; dup && tok.Token != "" {
			add("api.auth.tokens[%d] duplicates tokens[%d]", i, j)
		}
		seen[tok.Token] = i
	}
	if cfg.API.RateLimit.RPS < 0 {
		add("api.rate_limit.rps must not be negative")
	}
	if cfg.API.RateLimit.RPS > 0 && cfg.API.RateLimit.Burst < 1 {
		add("api.rate_limit.burst must be at least 1 when rps is set")
	}

	if cfg.Engine.Workers < 1 {
		add("engine.workers must be at least 1")
	}
	if cfg.Engine.Queue < 0 {
		add("engine.queue must not be negative")
	}
	if cfg.Engine.Timeout < 0 {
		add("engine.timeout must not be negative")
	}
	if len(cfg.Engine.Languages) == 0 {
		add("engine.languages must name at least one language")
	}
	for _, lang := range cfg.Engine.Languages {
		if !knownLanguages[lang] {
			add("engine.languages: unknown language %q", lang)
		}
	}

	if cfg.Events.Buffer < 1 {
		add("events.buffer must be at least 1")
	}
	if cfg.Events.History < 0 {
		add("events.history must not be negative")
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		add("tracing.endpoint is required when tracing is enabled")
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		add("tracing.sample_ratio must be between 0 and 1")
	}

	return errors.Join(errs...)
}
