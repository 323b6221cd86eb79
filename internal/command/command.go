// Package command holds the canonical, validated representation of a single
// gateway request and the parser that builds it from transport input.
//
// A Command is built by a Parser and never mutated afterwards. Parsing never
// fails: the first problem found is recorded on the Command and reported by
// Validate, which the invoker calls before any engine sees the Command.
package command

import (
	"strings"

	"github.com/mattjoyce/lingua/internal/auth"
	"github.com/mattjoyce/lingua/internal/fault"
)

// Language identifies a query dialect. Unknown names are representable; the
// engine router rejects them.
type Language string

const (
	Relational Language = "sql"
	Graph      Language = "sparql"
)

// ParseLanguage normalizes a language name taken from a request path.
func ParseLanguage(name string) Language {
	return Language(strings.ToLower(strings.TrimSpace(name)))
}

func (l Language) String() string { return string(l) }

// Well-known parameter keys.
const (
	ParamQuery  = "query"
	ParamUpdate = "update"

	// Accept overrides for clients that cannot set headers.
	ParamAccept = "x-accept"
	ParamType   = "_type"
)

// singleValued keys must appear at most once and never be empty.
var singleValued = map[string]struct{}{
	ParamQuery:  {},
	ParamUpdate: {},
	ParamAccept: {},
	ParamType:   {},
}

// IsSingleValued reports whether key may appear at most once.
func IsSingleValued(key string) bool {
	_, ok := singleValued[key]
	return ok
}

type Command struct {
	language   Language
	schema     string
	properties Properties
	acceptable []string
	principal  auth.Principal
	method     string
	violation  error
}

func (c *Command) Language() Language { return c.language }

// Schema is the target dataset identifier.
func (c *Command) Schema() string { return c.schema }

func (c *Command) Properties() Properties { return c.properties }

// Acceptable returns negotiated media ranges, most preferred first. Never empty.
func (c *Command) Acceptable() []string { return append([]string(nil), c.acceptable...) }

func (c *Command) Principal() auth.Principal { return c.principal }

// Method is the transport verb the command arrived with.
func (c *Command) Method() string { return c.method }

// Validate returns the first violation found in the command, as a typed
// usage error, or nil.
func (c *Command) Validate() error {
	if c.violation != nil {
		return c.violation
	}
	if c.language == "" {
		return fault.Missing("missing language")
	}
	for _, key := range c.properties.Keys() {
		if !IsSingleValued(key) {
			continue
		}
		values := c.properties.Values(key)
		if len(values) > 1 {
			return fault.Duplicate(key)
		}
		if strings.TrimSpace(values[0]) == "" {
			return fault.Missing("empty value for parameter %q", key)
		}
	}
	return nil
}

// Require returns the single non-empty value stored for key.
func (c *Command) Require(key string) (string, error) {
	values := c.properties.Values(key)
	switch {
	case len(values) == 0:
		return "", fault.Missing("missing parameter %q", key)
	case len(values) > 1:
		return "", fault.Duplicate(key)
	case strings.TrimSpace(values[0]) == "":
		return "", fault.Missing("empty value for parameter %q", key)
	}
	return values[0], nil
}

// Invalid returns a command that fails validation with err.
func Invalid(err error) *Command {
	return &Command{violation: err, acceptable: []string{DefaultMediaType}}
}
