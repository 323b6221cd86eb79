package sqlengine

import (
	"errors"
	"strings"
	"unicode"

	"github.com/mattjoyce/lingua/internal/fault"
)

// readKeywords are the statement openers a query action may use.
var readKeywords = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"VALUES":  true,
	"EXPLAIN": true,
}

// checkQuery admits text as a query only if it is a single statement that
// opens with a read keyword. PRAGMA and ATTACH are refused because they
// change the state of the pooled connection.
func checkQuery(text string) error {
	stmts := statements(text)
	switch {
	case len(stmts) == 0:
		return fault.InvalidQuery(errors.New("empty statement"))
	case len(stmts) > 1:
		return fault.InvalidQuery(errors.New("a query must be a single statement"))
	}
	if kw := leadingKeyword(stmts[0]); !readKeywords[kw] {
		return fault.InvalidQuery(errors.New("a query cannot run " + kw + " statements; send it as an update"))
	}
	return nil
}

// statements splits text at semicolons outside literals, quoted identifiers
// and comments. Blank statements are dropped.
func statements(text string) []string {
	var (
		out   []string
		start int
	)
	flush := func(end int) {
		if s := strings.TrimSpace(text[start:end]); s != "" && leadingKeyword(s) != "" {
			out = append(out, s)
		}
	}
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(text, i, c)
		case c == '[':
			i = skipQuoted(text, i, ']')
		case c == '-' && strings.HasPrefix(text[i:], "--"):
			i = skipLine(text, i)
		case c == '/' && strings.HasPrefix(text[i:], "/*"):
			i = skipBlock(text, i)
		case c == ';':
			flush(i)
			start = i + 1
		}
	}
	flush(len(text))
	return out
}

// leadingKeyword returns the upper-cased first word of stmt, ignoring
// comments and opening parentheses.
func leadingKeyword(stmt string) string {
	for i := 0; i < len(stmt); i++ {
		c := stmt[i]
		switch {
		case c == '(' || unicode.IsSpace(rune(c)):
		case c == '-' && strings.HasPrefix(stmt[i:], "--"):
			i = skipLine(stmt, i)
		case c == '/' && strings.HasPrefix(stmt[i:], "/*"):
			i = skipBlock(stmt, i)
		default:
			j := i
			for j < len(stmt) && (stmt[j] == '_' || unicode.IsLetter(rune(stmt[j]))) {
				j++
			}
			if j == i {
				return stmt[i : i+1]
			}
			return strings.ToUpper(stmt[i:j])
		}
	}
	return ""
}

// skipQuoted returns the index of the quote closing the literal opened at
// i. A doubled quote is an escaped quote.
func skipQuoted(s string, i int, closing byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != closing {
			continue
		}
		if closing != ']' && j+1 < len(s) && s[j+1] == closing {
			j++
			continue
		}
		return j
	}
	return len(s)
}

func skipLine(s string, i int) int {
	if n := strings.IndexByte(s[i:], '\n'); n >= 0 {
		return i + n
	}
	return len(s)
}

func skipBlock(s string, i int) int {
	if n := strings.Index(s[i+2:], "*/"); n >= 0 {
		return i + 2 + n + 1
	}
	return len(s)
}
