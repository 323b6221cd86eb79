package command

import (
	"mime"
	"net/http"
	"strings"

	"github.com/mattjoyce/lingua/internal/auth"
	"github.com/mattjoyce/lingua/internal/fault"
)

// Parser collects transport input into a Command. It performs no I/O; the
// caller reads bodies and passes them in.
//
//	cmd := command.Parse(command.Relational).
//		Schema("default").
//		Arguments(r.URL.RawQuery).
//		Headers(r.Header).
//		Caller(principal, r.Method).
//		Collect()
type Parser struct {
	cmd          Command
	acceptHeader []string
	override     []string
}

// Parse starts building a command for language.
func Parse(language Language) *Parser {
	return &Parser{cmd: Command{language: language, method: http.MethodGet}}
}

func (p *Parser) fail(err error) {
	if p.cmd.violation == nil {
		p.cmd.violation = err
	}
}

func (p *Parser) Schema(schema string) *Parser {
	p.cmd.schema = schema
	return p
}

// Arguments adds all pairs of a query string or form body as properties.
// Accept override keys are consumed instead of being stored.
func (p *Parser) Arguments(raw string) *Parser {
	pairs, err := ParsePairs(raw)
	if err != nil {
		p.fail(fault.BadRequest("malformed parameters: %v", err))
		return p
	}
	return p.Pairs(pairs)
}

// Pairs adds already decoded pairs as properties.
func (p *Parser) Pairs(pairs []Pair) *Parser {
	for _, pair := range pairs {
		if isOverride(pair.Key) {
			p.addOverride(pair)
			continue
		}
		p.cmd.properties.Add(pair.Key, pair.Value)
	}
	return p
}

// Overrides extracts only the accept override keys from a raw query string.
// Used for POST requests whose properties come from the body.
func (p *Parser) Overrides(rawQuery string) *Parser {
	pairs, err := ParsePairs(rawQuery)
	if err != nil {
		p.fail(fault.BadRequest("malformed query string: %v", err))
		return p
	}
	for _, pair := range pairs {
		if isOverride(pair.Key) {
			p.addOverride(pair)
		}
	}
	return p
}

func isOverride(key string) bool {
	return key == ParamAccept || key == ParamType
}

func (p *Parser) addOverride(pair Pair) {
	if p.override != nil {
		p.fail(fault.Duplicate(pair.Key))
		return
	}
	if strings.TrimSpace(pair.Value) == "" {
		p.fail(fault.Missing("empty value for parameter %q", pair.Key))
		return
	}
	p.override = ParseAccept(expandAliases(pair.Value))
	if len(p.override) == 0 {
		p.fail(fault.NotAcceptable("malformed media type %q", pair.Value))
	}
}

// Body adds a raw payload submitted with content type
// application/{language}-{action} as the sole value of {action}.
// A nil body means no body was sent.
func (p *Parser) Body(body []byte, contentType string) *Parser {
	if body == nil {
		p.fail(fault.Missing("missing request body"))
		return p
	}
	if strings.TrimSpace(contentType) == "" {
		p.fail(fault.NotSupported("missing content type"))
		return p
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		p.fail(fault.NotSupported("malformed content type %q", contentType))
		return p
	}
	kind, sub, _ := strings.Cut(mt, "/")
	language, action, ok := strings.Cut(sub, "-")
	if kind != "application" || !ok || language == "" || action == "" {
		p.fail(fault.NotSupported("malformed content type %q, expected application/%s-{action}", mt, p.cmd.language))
		return p
	}
	if Language(language) != p.cmd.language {
		p.fail(fault.NotSupported("content type %q does not match language %s", mt, p.cmd.language))
		return p
	}
	if len(body) == 0 {
		p.fail(fault.Missing("empty %s payload", action))
		return p
	}
	p.cmd.properties.Add(action, string(body))
	return p
}

// Headers reads the caller's Accept header.
func (p *Parser) Headers(h http.Header) *Parser {
	if h == nil {
		return p
	}
	p.acceptHeader = ParseAccept(strings.Join(h.Values("Accept"), ","))
	return p
}

// Caller records the authenticated principal and the transport verb.
func (p *Parser) Caller(principal auth.Principal, method string) *Parser {
	p.cmd.principal = principal
	if method != "" {
		p.cmd.method = strings.ToUpper(method)
	}
	return p
}

// Collect finishes the command. The parser must not be reused.
func (p *Parser) Collect() *Command {
	ranges := p.acceptHeader
	if p.override != nil {
		ranges = p.override
	}
	p.cmd.acceptable = normalizeAcceptable(ranges)
	cmd := p.cmd
	return &cmd
}
