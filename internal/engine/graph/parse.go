package graph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Form is the kind of graph statement.
type Form int

const (
	FormSelect Form = iota
	FormAsk
	FormInsert
	FormDelete
)

func (f Form) String() string {
	switch f {
	case FormAsk:
		return "ASK"
	case FormInsert:
		return "INSERT DATA"
	case FormDelete:
		return "DELETE DATA"
	}
	return "SELECT"
}

// Mutating reports whether the form changes the store.
func (f Form) Mutating() bool { return f == FormInsert || f == FormDelete }

// Term is either a variable (Var set) or a constant value.
type Term struct {
	Var   string
	Value string
}

func (t Term) IsVar() bool { return t.Var != "" }

type Pattern struct {
	Subject, Predicate, Object Term
}

// Statement is a parsed graph statement.
type Statement struct {
	Form       Form
	Projection []string // nil means every variable
	Patterns   []Pattern
	Limit      int // 0 means unlimited
}

// Variables returns the statement's variables in order of first appearance.
func (s *Statement) Variables() []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range s.Patterns {
		for _, t := range []Term{p.Subject, p.Predicate, p.Object} {
			if t.IsVar() && !seen[t.Var] {
				seen[t.Var] = true
				out = append(out, t.Var)
			}
		}
	}
	return out
}

// Parse reads one statement:
//
//	SELECT ?a ?b WHERE { ?a <knows> ?b . ?b <name> "x" } LIMIT 10
//	SELECT * WHERE { ... }
//	ASK { <ada> <knows> ?who }
//	INSERT DATA { <ada> <knows> <grace> }
//	DELETE DATA { <ada> <knows> <grace> }
func Parse(text string) (*Statement, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	st, err := p.statement()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("unexpected %q after statement", p.peek().text)
	}
	return st, nil
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokVar
	tokIRI
	tokLiteral
	tokPunct
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(s string) ([]token, error) {
	var out []token
	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '#':
			for i < len(rs) && rs[i] != '\n' {
				i++
			}
		case r == '{' || r == '}' || r == '.' || r == '*':
			out = append(out, token{kind: tokPunct, text: string(r)})
			i++
		case r == '?' || r == '$':
			j := i + 1
			for j < len(rs) && isNameRune(rs[j]) {
				j++
			}
			if j == i+1 {
				return nil, errors.New("empty variable name")
			}
			out = append(out, token{kind: tokVar, text: string(rs[i+1 : j])})
			i = j
		case r == '<':
			j := i + 1
			for j < len(rs) && rs[j] != '>' {
				if unicode.IsSpace(rs[j]) {
					return nil, errors.New("whitespace in IRI")
				}
				j++
			}
			if j == len(rs) {
				return nil, errors.New("unterminated IRI")
			}
			out = append(out, token{kind: tokIRI, text: string(rs[i+1 : j])})
			i = j + 1
		case r == '"':
			var b strings.Builder
			j := i + 1
			for ; j < len(rs) && rs[j] != '"'; j++ {
				if rs[j] == '\\' && j+1 < len(rs) {
					j++
				}
				b.WriteRune(rs[j])
			}
			if j == len(rs) {
				return nil, errors.New("unterminated literal")
			}
			out = append(out, token{kind: tokLiteral, text: b.String()})
			i = j + 1
		case isNameRune(r):
			j := i
			for j < len(rs) && (isNameRune(rs[j]) || rs[j] == ':') {
				j++
			}
			// A trailing dot terminates a pattern rather than the name.
			out = append(out, token{kind: tokWord, text: string(rs[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", r)
		}
	}
	return out, nil
}

func isNameRune(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() token {
	if p.done() {
		return token{kind: tokPunct, text: "<end>"}
	}
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) keyword(kw string) bool {
	t := p.peek()
	if t.kind == tokWord && strings.EqualFold(t.text, kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(punct string) error {
	if t := p.next(); t.kind != tokPunct || t.text != punct {
		return fmt.Errorf("expected %q, found %q", punct, t.text)
	}
	return nil
}

func (p *parser) statement() (*Statement, error) {
	switch {
	case p.keyword("SELECT"):
		return p.selectForm()
	case p.keyword("ASK"):
		p.keyword("WHERE")
		pats, err := p.group(true)
		if err != nil {
			return nil, err
		}
		return &Statement{Form: FormAsk, Patterns: pats}, nil
	case p.keyword("INSERT"):
		return p.dataForm(FormInsert)
	case p.keyword("DELETE"):
		return p.dataForm(FormDelete)
	}
	return nil, fmt.Errorf("expected SELECT, ASK, INSERT DATA or DELETE DATA, found %q", p.peek().text)
}

func (p *parser) selectForm() (*Statement, error) {
	st := &Statement{Form: FormSelect}
	if t := p.peek(); t.kind == tokPunct && t.text == "*" {
		p.pos++
	} else {
		for p.peek().kind == tokVar {
			st.Projection = append(st.Projection, p.next().text)
		}
		if len(st.Projection) == 0 {
			return nil, errors.New("SELECT requires * or at least one variable")
		}
	}
	if !p.keyword("WHERE") {
		return nil, fmt.Errorf("expected WHERE, found %q", p.peek().text)
	}
	pats, err := p.group(true)
	if err != nil {
		return nil, err
	}
	st.Patterns = pats

	bound := map[string]bool{}
	for _, v := range st.Variables() {
		bound[v] = true
	}
	for _, v := range st.Projection {
		if !bound[v] {
			return nil, fmt.Errorf("projected variable ?%s is not bound by the pattern", v)
		}
	}

	if p.keyword("LIMIT") {
		t := p.next()
		n, err := strconv.Atoi(t.text)
		if t.kind != tokWord || err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid LIMIT %q", t.text)
		}
		st.Limit = n
	}
	return st, nil
}

func (p *parser) dataForm(form Form) (*Statement, error) {
	if !p.keyword("DATA") {
		return nil, fmt.Errorf("expected DATA after %s", strings.Fields(form.String())[0])
	}
	pats, err := p.group(false)
	if err != nil {
		return nil, err
	}
	return &Statement{Form: form, Patterns: pats}, nil
}

// group parses { pattern (. pattern)* .? }.
func (p *parser) group(allowVars bool) ([]Pattern, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	var out []Pattern
	for {
		if t := p.peek(); t.kind == tokPunct && t.text == "}" {
			p.pos++
			break
		}
		var terms [3]Term
		for i := range terms {
			term, err := p.term(allowVars)
			if err != nil {
				return nil, err
			}
			terms[i] = term
		}
		out = append(out, Pattern{Subject: terms[0], Predicate: terms[1], Object: terms[2]})
		if t := p.peek(); t.kind == tokPunct && t.text == "." {
			p.pos++
		}
	}
	if len(out) == 0 {
		return nil, errors.New("empty pattern group")
	}
	return out, nil
}

func (p *parser) term(allowVars bool) (Term, error) {
	t := p.next()
	switch t.kind {
	case tokVar:
		if !allowVars {
			return Term{}, fmt.Errorf("variable ?%s not allowed in data block", t.text)
		}
		return Term{Var: t.text}, nil
	case tokIRI, tokLiteral, tokWord:
		return Term{Value: t.text}, nil
	}
	return Term{}, fmt.Errorf("expected term, found %q", t.text)
}
