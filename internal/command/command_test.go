package command

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/lingua/internal/auth"
	"github.com/mattjoyce/lingua/internal/fault"
)

func TestParseSetsLanguageAndSchema(t *testing.T) {
	cmd := Parse(ParseLanguage(" SQL ")).Schema("default").Collect()
	assert.Equal(t, Relational, cmd.Language())
	assert.Equal(t, "default", cmd.Schema())
	assert.Equal(t, http.MethodGet, cmd.Method())
	assert.NoError(t, cmd.Validate())
}

func TestArgumentsKeepOrder(t *testing.T) {
	cmd := Parse(Relational).Arguments("single=value&multiple=one&multiple=two&other=x").Collect()
	require.NoError(t, cmd.Validate())

	props := cmd.Properties()
	assert.Equal(t, []string{"single", "multiple", "other"}, props.Keys())
	assert.Equal(t, []string{"one", "two"}, props.Values("multiple"))

	v, err := cmd.Require("single")
	require.NoError(t, err)
	assert.Equal(t, "value", v)
}

func TestDuplicateSingleValuedParameterIsRejected(t *testing.T) {
	cmd := Parse(Relational).Arguments("query=A&query=B").Collect()
	err := cmd.Validate()
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, fault.Status(err))
	assert.True(t, fault.Is(err, fault.CodeDuplicate))

	cmd = Parse(Relational).Arguments("query=A").Collect()
	assert.NoError(t, cmd.Validate())
}

func TestEmptyRequiredValueIsRejected(t *testing.T) {
	cmd := Parse(Relational).Arguments("query=").Collect()
	err := cmd.Validate()
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, fault.Status(err))

	_, err = cmd.Require("query")
	assert.Error(t, err)
	_, err = cmd.Require("absent")
	assert.True(t, fault.Is(err, fault.CodeMissing))
}

func TestMalformedEscapeIsRejected(t *testing.T) {
	cmd := Parse(Relational).Arguments("query=%zz").Collect()
	assert.Equal(t, http.StatusBadRequest, fault.Status(cmd.Validate()))
}

func TestBodyParameter(t *testing.T) {
	cmd := Parse(Relational).Body([]byte("SELECT 1"), "application/sql-query; charset=UTF-8").Collect()
	require.NoError(t, cmd.Validate())
	v, err := cmd.Require(ParamQuery)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", v)
}

func TestBodyContentTypeFailures(t *testing.T) {
	tests := []struct {
		name        string
		body        []byte
		contentType string
		status      int
	}{
		{name: "language mismatch", body: []byte("x"), contentType: "application/sparql-query", status: http.StatusUnsupportedMediaType},
		{name: "malformed type", body: []byte("x"), contentType: "application/json", status: http.StatusUnsupportedMediaType},
		{name: "text plain", body: []byte("x"), contentType: "text/plain", status: http.StatusUnsupportedMediaType},
		{name: "unparseable", body: []byte("x"), contentType: "application/", status: http.StatusUnsupportedMediaType},
		{name: "missing content type", body: []byte("x"), contentType: "", status: http.StatusUnsupportedMediaType},
		{name: "missing body", body: nil, contentType: "application/sql-update", status: http.StatusBadRequest},
		{name: "empty body", body: []byte{}, contentType: "application/sql-update", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Parse(Relational).Body(tt.body, tt.contentType).Collect()
			err := cmd.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.status, fault.Status(err))
		})
	}
}

func TestFirstViolationWins(t *testing.T) {
	cmd := Parse(Relational).
		Body(nil, "application/sql-query").
		Arguments("query=A&query=B").
		Collect()
	assert.True(t, fault.Is(cmd.Validate(), fault.CodeMissing))
}

func TestAcceptableFromHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Accept", "application/octet-stream;q=0.5, text/xml")
	cmd := Parse(Relational).Headers(h).Collect()
	assert.Equal(t, []string{"text/xml", "application/octet-stream"}, cmd.Acceptable())
}

func TestAcceptableDefaults(t *testing.T) {
	cmd := Parse(Relational).Headers(http.Header{}).Collect()
	assert.Equal(t, []string{DefaultMediaType}, cmd.Acceptable())

	h := http.Header{}
	h.Set("Accept", "*/*")
	cmd = Parse(Relational).Headers(h).Collect()
	assert.Equal(t, []string{DefaultMediaType}, cmd.Acceptable())

	cmd = Parse(Relational).Headers(nil).Collect()
	assert.Equal(t, []string{DefaultMediaType}, cmd.Acceptable())
}

func TestAcceptOverride(t *testing.T) {
	h := http.Header{}
	h.Set("Accept", "application/json")

	cmd := Parse(Relational).Arguments("query=x&x-accept=text%2Fcsv").Headers(h).Collect()
	require.NoError(t, cmd.Validate())
	assert.Equal(t, []string{"text/csv"}, cmd.Acceptable())
	assert.False(t, cmd.Properties().Has(ParamAccept))

	cmd = Parse(Relational).Arguments("query=x").Caller(auth.Principal{}, "POST").Overrides("_type=text/csv").Headers(h).Collect()
	require.NoError(t, cmd.Validate())
	assert.Equal(t, []string{"text/csv"}, cmd.Acceptable())

	cmd = Parse(Relational).Arguments("_type=text/csv&x-accept=text/xml").Collect()
	assert.True(t, fault.Is(cmd.Validate(), fault.CodeDuplicate))
}

func TestAcceptOverrideAliases(t *testing.T) {
	cases := map[string][]string{
		"_type=json":                     {"application/json"},
		"_type=XML":                      {"application/xml"},
		"x-accept=csv":                   {"text/csv"},
		"_type=csv%3Bq%3D0.5%2Cjson":     {"application/json", "text/csv"},
		"_type=application%2Fjson%2Cxml": {"application/json", "application/xml"},
	}
	for args, want := range cases {
		cmd := Parse(Relational).Arguments("query=x&" + args).Collect()
		require.NoError(t, cmd.Validate(), args)
		assert.Equal(t, want, cmd.Acceptable(), args)
	}

	cmd := Parse(Relational).Arguments("query=x&_type=yaml").Collect()
	assert.True(t, fault.Is(cmd.Validate(), fault.CodeNotAcceptable))
}

func TestCallerRecorded(t *testing.T) {
	p := auth.Principal{Name: "ops", Role: auth.RoleOwner}
	cmd := Parse(Graph).Caller(p, "post").Collect()
	assert.Equal(t, http.MethodPost, cmd.Method())
	assert.Equal(t, "ops", cmd.Principal().Name)
}

func TestInvalidCommand(t *testing.T) {
	cmd := Invalid(fault.BadRequest("test"))
	assert.EqualError(t, cmd.Validate(), "test")
	assert.NotEmpty(t, cmd.Acceptable())
}

func TestPropertiesRoundTrip(t *testing.T) {
	raw := "query=SELECT+*+FROM+t+WHERE+a%3D%271%27&tag=b&tag=a&tag=c&note=%E2%9C%93"
	first := Parse(Relational).Arguments(raw).Collect()
	require.NoError(t, first.Validate())

	second := Parse(Relational).Arguments(first.Properties().Encode()).Collect()
	require.NoError(t, second.Validate())
	assert.True(t, first.Properties().Equal(second.Properties()))
	assert.Equal(t, []string{"b", "a", "c"}, second.Properties().Values("tag"))

	dup := Parse(Relational).Arguments(first.Properties().Encode() + "&query=again").Collect()
	assert.True(t, fault.Is(dup.Validate(), fault.CodeDuplicate))
}

func TestMediaMatches(t *testing.T) {
	assert.True(t, MediaMatches("*/*", "text/csv"))
	assert.True(t, MediaMatches("text/*", "text/csv"))
	assert.True(t, MediaMatches("Application/XML", "application/xml"))
	assert.False(t, MediaMatches("text/*", "application/xml"))
	assert.False(t, MediaMatches("image/jpeg", "application/xml"))
}
