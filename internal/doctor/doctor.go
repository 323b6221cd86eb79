// Package doctor reviews a loaded lingua configuration for problems that
// validation accepts but an operator should know about.
package doctor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattjoyce/lingua/internal/auth"
	"github.com/mattjoyce/lingua/internal/config"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor checks a configuration against the host it will run on.
type Doctor struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateDataset(r)
	d.validateIntegrity(r)
	d.warnAnonymousAccess(r)
	d.warnAdminAccess(r)
	d.warnAdmission(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) validateDataset(r *Result) {
	if seed := d.cfg.Dataset.Seed; seed != "" {
		if _, err := os.Stat(d.cfg.ResolvePath(seed)); err != nil {
			d.addError(r, "dataset", "dataset.seed", fmt.Sprintf("seed script not readable: %v", err))
		}
	}

	dir := filepath.Dir(d.cfg.ResolvePath(d.cfg.Dataset.Path))
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		d.addWarning(r, "dataset", "dataset.path", fmt.Sprintf("directory %s does not exist yet; it will be created", dir))
	case err != nil:
		d.addError(r, "dataset", "dataset.path", err.Error())
	case !info.IsDir():
		d.addError(r, "dataset", "dataset.path", fmt.Sprintf("%s is not a directory", dir))
	}
}

func (d *Doctor) validateIntegrity(r *Result) {
	if d.cfg.SourcePath == "" {
		return
	}
	_, err := config.LoadChecksums(filepath.Dir(d.cfg.SourcePath))
	switch {
	case errors.Is(err, config.ErrNoChecksums):
		d.addWarning(r, "integrity", "", "no .checksums manifest; run 'lingua config lock' to pin the configuration")
	case err != nil:
		d.addError(r, "integrity", "", err.Error())
	}
}

// warnAnonymousAccess flags anonymous roles that can change data, and open
// listeners without a rate limit.
func (d *Doctor) warnAnonymousAccess(r *Result) {
	role := auth.RoleFromString(d.cfg.API.Auth.AnonymousRole)
	if role.Grants(auth.PermissionInvokeUpdate) {
		d.addWarning(r, "auth", "api.auth.anonymous_role",
			fmt.Sprintf("anonymous callers hold role %s and may run updates", role.Name()))
	}
	if role.Grants(auth.PermissionInvokeQuery) && !isLoopback(d.cfg.API.Listen) && d.cfg.API.RateLimit.RPS == 0 {
		d.addWarning(r, "auth", "api.rate_limit",
			fmt.Sprintf("anonymous queries are accepted on %s without a rate limit", d.cfg.API.Listen))
	}
}

func (d *Doctor) warnAdminAccess(r *Result) {
	for _, tok := range d.cfg.API.Auth.Tokens {
		if auth.RoleFromString(tok.Role).Grants(auth.PermissionAdministrate) {
			return
		}
	}
	d.addWarning(r, "auth", "api.auth.tokens",
		"no admin token configured; /meta endpoints and 'lingua system watch' are unavailable")
}

func (d *Doctor) warnAdmission(r *Result) {
	e := d.cfg.Engine
	if e.Queue == 0 {
		d.addWarning(r, "engine", "engine.queue",
			fmt.Sprintf("no queue: requests beyond %d concurrent executions are rejected", e.Workers))
	}
	if e.Timeout == 0 {
		d.addWarning(r, "engine", "engine.timeout", "no execution time limit")
	}
	if w := d.cfg.API.WriteTimeout; w > 0 && e.Timeout > 0 && w <= e.Timeout {
		d.addWarning(r, "engine", "api.write_timeout",
			fmt.Sprintf("write_timeout %s does not exceed engine.timeout %s; slow results may be cut off", w, e.Timeout))
	}
}

func isLoopback(listen string) bool {
	host, _, err := net.SplitHostPort(listen)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	switch {
	case r.Valid && len(r.Warnings) == 0:
		return "Configuration valid.\n"
	case r.Valid:
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	default:
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	write := func(label string, issues []Issue) {
		for _, i := range issues {
			if i.Field != "" {
				fmt.Fprintf(&b, "  %-5s [%s] %s: %s\n", label, i.Category, i.Field, i.Message)
			} else {
				fmt.Fprintf(&b, "  %-5s [%s] %s\n", label, i.Category, i.Message)
			}
		}
	}
	write("ERROR", r.Errors)
	write("WARN", r.Warnings)
	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
