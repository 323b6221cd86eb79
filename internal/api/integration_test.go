package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/lingua/internal/auth"
	"github.com/mattjoyce/lingua/internal/engine"
	"github.com/mattjoyce/lingua/internal/engine/graph"
	"github.com/mattjoyce/lingua/internal/engine/sqlengine"
	"github.com/mattjoyce/lingua/internal/events"
	"github.com/mattjoyce/lingua/internal/fault"
	"github.com/mattjoyce/lingua/internal/invoke"
	"github.com/mattjoyce/lingua/internal/journal"
	"github.com/mattjoyce/lingua/internal/metrics"
	"github.com/mattjoyce/lingua/internal/protocol"
	"github.com/mattjoyce/lingua/internal/storage"
)

// newGateway wires the full stack over a temporary sqlite dataset.
func newGateway(t *testing.T) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	path := filepath.Join(t.TempDir(), "lingua.db")
	db, err := storage.OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.ExecContext(ctx, `CREATE TABLE people(id INTEGER PRIMARY KEY, name TEXT NOT NULL);
INSERT INTO people(id, name) VALUES (1, 'ada'), (2, 'grace');`)
	require.NoError(t, err)

	reader, err := storage.OpenReadOnly(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reader.Close() })

	router, err := engine.NewRouter(sqlengine.New(db, reader), graph.New(db))
	require.NoError(t, err)
	sched, err := invoke.NewScheduler(2, 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Close(time.Second) })

	hub := events.NewHub(64, 64)
	hub.Start(ctx)
	t.Cleanup(hub.Close)

	jr := journal.New(db)
	ch, unsubscribe := hub.Subscribe()
	t.Cleanup(unsubscribe)
	go jr.Run(ctx, ch)

	m := metrics.New(sched, hub)
	mch, munsubscribe := hub.Subscribe()
	t.Cleanup(munsubscribe)
	go m.Run(ctx, mch)

	conn := invoke.Eventful(events.NewReporter(hub), invoke.New(router, auth.RoleAuthorizer{}, sched, 5*time.Second))
	srv := New(Config{
		AnonymousRole: auth.RoleUser,
		Tokens: []auth.TokenConfig{
			{Token: "owner-token", Role: "owner", Name: "ops"},
			{Token: "admin-token", Role: "admin", Name: "root"},
		},
	}, Deps{
		Resource:  protocol.NewResource(conn, "main", 5*time.Second),
		Events:    hub,
		Journal:   jr,
		Pool:      sched,
		Languages: router.Languages(),
		Metrics:   m,
	}, discardLogger())
	return srv.Handler()
}

func send(t *testing.T, h http.Handler, method, target, token string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGatewayRelationalQuery(t *testing.T) {
	h := newGateway(t)

	q := url.Values{"query": {"SELECT id, name FROM people ORDER BY id"}, "x-accept": {"text/csv"}}
	rr := send(t, h, http.MethodGet, "/sql?"+q.Encode(), "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Equal(t, "id,name\n1,ada\n2,grace\n", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(protocol.HeaderCorrelation))
}

func TestGatewayUpdateNeedsOwnerAndPost(t *testing.T) {
	h := newGateway(t)
	update := url.Values{"update": {"INSERT INTO people(id, name) VALUES (3, 'linus')"}}

	// Anonymous callers hold the user role.
	rr := send(t, h, http.MethodPost, "/sql?x-accept=application/json", "", update)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, fault.CodeForbidden, decodeError(t, rr).Code)

	// Mutations are never satisfied over GET.
	rr = send(t, h, http.MethodGet, "/sql?"+update.Encode(), "owner-token", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = send(t, h, http.MethodPost, "/sql?x-accept=application/json", "owner-token", update)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"columns":["affected"],"rows":[[1]]}`, rr.Body.String())
}

func TestGatewayGraphRoundTrip(t *testing.T) {
	h := newGateway(t)

	rr := send(t, h, http.MethodPost, "/sparql?x-accept=text/csv", "owner-token",
		url.Values{"update": {`INSERT DATA { <ada> <knows> <grace> }`}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "affected\n1\n", rr.Body.String())

	q := url.Values{"query": {`SELECT ?who WHERE { <ada> <knows> ?who }`}, "x-accept": {"text/csv"}}
	rr = send(t, h, http.MethodGet, "/sparql?"+q.Encode(), "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "who\ngrace\n", rr.Body.String())
}

func TestGatewayErrors(t *testing.T) {
	h := newGateway(t)
	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
		wantCode   string
	}{
		{"unknown language", http.MethodGet, "/cypher?query=MATCH", http.StatusNotFound, fault.CodeUnknownLang},
		{"duplicate query", http.MethodGet, "/sql?query=SELECT+1&query=SELECT+2", http.StatusBadRequest, fault.CodeDuplicate},
		{"no action", http.MethodGet, "/sql", http.StatusBadRequest, fault.CodeMissing},
		{"invalid statement", http.MethodGet, "/sql?query=SELEKT", http.StatusBadRequest, fault.CodeInvalidQuery},
		{"not acceptable", http.MethodGet, "/sql?query=SELECT+1&x-accept=image/png", http.StatusNotAcceptable, fault.CodeNotAcceptable},
		{"put", http.MethodPut, "/sql", http.StatusMethodNotAllowed, fault.CodeMethodNotAllow},
		{"delete", http.MethodDelete, "/sparql", http.StatusMethodNotAllowed, fault.CodeMethodNotAllow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := send(t, h, tt.method, tt.target, "", nil)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, rr).Code)
		})
	}
}

func TestGatewayJournalsOutcome(t *testing.T) {
	h := newGateway(t)

	rr := send(t, h, http.MethodGet, "/sql?query=SELECT+1", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	correlation := rr.Header().Get(protocol.HeaderCorrelation)

	var entry journal.Entry
	require.Eventually(t, func() bool {
		rr := send(t, h, http.MethodGet, "/meta/requests/"+correlation, "admin-token", nil)
		if rr.Code != http.StatusOK {
			return false
		}
		return json.Unmarshal(rr.Body.Bytes(), &entry) == nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "completed", entry.Outcome)
	assert.Equal(t, "sql", entry.Language)
	assert.Equal(t, "main", entry.Schema)
	assert.Equal(t, "anonymous", entry.Principal)

	rr = send(t, h, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var health HealthzResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, []string{"sparql", "sql"}, health.Languages)
	assert.Equal(t, 4, health.Pool.Capacity)

	require.Eventually(t, func() bool {
		body := send(t, h, http.MethodGet, "/metrics", "", nil).Body.String()
		return strings.Contains(body, `lingua_requests_total{code="",language="sql",outcome="completed"} 1`)
	}, 2*time.Second, 10*time.Millisecond)
}
