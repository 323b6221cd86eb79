package sqlengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatements(t *testing.T) {
	cases := map[string]int{
		"SELECT 1":                               1,
		"SELECT 1;":                              1,
		" ; ;":                                   0,
		"SELECT ';' AS semi":                     1,
		`SELECT "a;b" FROM t`:                    1,
		"SELECT [x;y] FROM t":                    1,
		"SELECT 'it''s; fine'":                   1,
		"SELECT 1 -- trailing; comment":          1,
		"SELECT 1 /* a; b */":                    1,
		"SELECT 1; SELECT 2":                     2,
		"PRAGMA query_only = OFF; DELETE FROM t": 2,
		"SELECT 1; -- only a comment":            1,
	}
	for text, want := range cases {
		assert.Len(t, statements(text), want, text)
	}
}

func TestLeadingKeyword(t *testing.T) {
	cases := map[string]string{
		"select 1":     "SELECT",
		"  (SELECT 1)": "SELECT",
		"-- note\nWITH x AS (SELECT 1) SELECT * FROM x": "WITH",
		"/* SELECT */ DELETE FROM t":                    "DELETE",
		"pragma table_info(t)":                          "PRAGMA",
		"":                                              "",
	}
	for text, want := range cases {
		assert.Equal(t, want, leadingKeyword(text), text)
	}
}

func TestCheckQuery(t *testing.T) {
	for _, ok := range []string{"SELECT 1", "values (1)", "EXPLAIN SELECT 1", "WITH x AS (SELECT 1) SELECT * FROM x;"} {
		assert.NoError(t, checkQuery(ok), ok)
	}
	for _, bad := range []string{"", "DELETE FROM t", "SELECT 1; SELECT 2", "ATTACH 'x.db' AS x", "PRAGMA query_only = OFF"} {
		assert.Error(t, checkQuery(bad), bad)
	}
}
