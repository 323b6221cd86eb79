package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
		checkFn func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults fill missing sections",
			yaml: `
dataset:
  path: ./data/test.db
`,
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Dataset.Path != "./data/test.db" {
					t.Errorf("dataset.path = %q", cfg.Dataset.Path)
				}
				if cfg.Engine.Workers != 8 || cfg.Engine.Queue != 64 {
					t.Errorf("engine defaults not applied: %+v", cfg.Engine)
				}
				if cfg.Engine.Timeout != 30*time.Second {
					t.Errorf("engine.timeout = %v", cfg.Engine.Timeout)
				}
				if cfg.API.Auth.AnonymousRole != "none" {
					t.Errorf("anonymous_role = %q", cfg.API.Auth.AnonymousRole)
				}
			},
		},
		{
			name: "full config",
			yaml: `
service:
  name: gateway
  log_level: debug
api:
  listen: 0.0.0.0:9000
  read_timeout: 5s
  auth:
    anonymous_role: user
    tokens:
      - token: abc
        role: admin
        name: ops
  rate_limit:
    rps: 10
    burst: 5
engine:
  workers: 2
  queue: 4
  timeout: 1500ms
  languages: [sql]
tracing:
  enabled: true
  endpoint: http://collector:4318
`,
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Service.Name != "gateway" || cfg.Service.LogLevel != "debug" {
					t.Errorf("service = %+v", cfg.Service)
				}
				if cfg.API.ReadTimeout != 5*time.Second {
					t.Errorf("read_timeout = %v", cfg.API.ReadTimeout)
				}
				if len(cfg.API.Auth.Tokens) != 1 || cfg.API.Auth.Tokens[0].Name != "ops" {
					t.Errorf("tokens = %+v", cfg.API.Auth.Tokens)
				}
				if cfg.Engine.Timeout != 1500*time.Millisecond {
					t.Errorf("engine.timeout = %v", cfg.Engine.Timeout)
				}
				if len(cfg.Engine.Languages) != 1 || cfg.Engine.Languages[0] != "sql" {
					t.Errorf("languages = %v", cfg.Engine.Languages)
				}
				if cfg.API.RateLimit.RPS != 10 || cfg.API.RateLimit.Burst != 5 {
					t.Errorf("rate_limit = %+v", cfg.API.RateLimit)
				}
			},
		},
		{
			name: "interpolates environment",
			yaml: `
api:
  auth:
    tokens:
      - token: ${TEST_LINGUA_TOKEN}
        role: owner
`,
			env: map[string]string{"TEST_LINGUA_TOKEN": "s3cret"},
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.API.Auth.Tokens[0].Token != "s3cret" {
					t.Errorf("token = %q", cfg.API.Auth.Tokens[0].Token)
				}
			},
		},
		{
			name: "unresolved token variable",
			yaml: `
api:
  auth:
    tokens:
      - token: ${TEST_LINGUA_UNSET}
        role: owner
`,
			wantErr: "${TEST_LINGUA_UNSET} is not set",
		},
		{
			name: "environment overrides file",
			yaml: `
engine:
  workers: 2
`,
			env: map[string]string{
				"LINGUA_ENGINE_WORKERS":          "16",
				"LINGUA_ENGINE_LANGUAGES":        "sparql",
				"LINGUA_DATASET_PATH":            "/tmp/other.db",
				"LINGUA_API_AUTH_ANONYMOUS_ROLE": "user",
			},
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Engine.Workers != 16 {
					t.Errorf("workers = %d", cfg.Engine.Workers)
				}
				if len(cfg.Engine.Languages) != 1 || cfg.Engine.Languages[0] != "sparql" {
					t.Errorf("languages = %v", cfg.Engine.Languages)
				}
				if cfg.Dataset.Path != "/tmp/other.db" {
					t.Errorf("dataset.path = %q", cfg.Dataset.Path)
				}
				if cfg.API.Auth.AnonymousRole != "user" {
					t.Errorf("anonymous_role = %q", cfg.API.Auth.AnonymousRole)
				}
			},
		},
		{
			name:    "invalid worker count",
			yaml:    "engine:\n  workers: 0\n",
			wantErr: "engine.workers must be at least 1",
		},
		{
			name:    "unknown language",
			yaml:    "engine:\n  languages: [sql, cypher]\n",
			wantErr: `unknown language "cypher"`,
		},
		{
			name:    "malformed yaml",
			yaml:    "engine: [\n",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load(writeConfig(t, tt.yaml))
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Load() succeeded, want error containing %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Load() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if tt.checkFn != nil {
				tt.checkFn(t, cfg)
			}
		})
	}
}

func TestLoadDirectory(t *testing.T) {
	path := writeConfig(t, "service:\n  name: dir\n")
	cfg, err := Load(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Load(dir) error = %v", err)
	}
	if cfg.SourcePath != path {
		t.Errorf("SourcePath = %q, want %q", cfg.SourcePath, path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Setenv("LINGUA_ENGINE_QUEUE", "3")
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Queue != 3 {
		t.Errorf("queue = %d, want 3", cfg.Engine.Queue)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Engine.Workers = 0
	cfg.Events.Buffer = 0
	cfg.API.Auth.Tokens = []APIToken{{Token: "", Role: "wizard"}}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"engine.workers", "events.buffer", "tokens[0].token is required", `unknown role "wizard"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestGetPath(t *testing.T) {
	cfg := Defaults()
	cfg.API.Auth.Tokens = []APIToken{{Token: "secret", Role: "admin"}}

	v, err := cfg.GetPath("engine.workers")
	if err != nil {
		t.Fatal(err)
	}
	if v != 8 {
		t.Errorf("engine.workers = %v", v)
	}

	tokens, err := cfg.GetPath("api.auth.tokens")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(fmtAny(tokens), "secret") {
		t.Error("token secret leaked")
	}
	if cfg.API.Auth.Tokens[0].Token != "secret" {
		t.Error("Redacted modified the original config")
	}

	if _, err := cfg.GetPath("engine.nope"); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := cfg.GetPath("engine.workers.deeper"); err == nil {
		t.Error("expected error for path through a scalar")
	}
}

func TestResolvePath(t *testing.T) {
	cfg := Defaults()
	if got := cfg.ResolvePath("data/x.db"); got != "data/x.db" {
		t.Fatalf("without a source file got %q", got)
	}

	cfg.SourcePath = filepath.Join("/etc", "lingua", "config.yaml")
	tests := map[string]string{
		"":              "",
		"data/x.db":     filepath.Join("/etc", "lingua", "data", "x.db"),
		"/var/lib/x.db": "/var/lib/x.db",
	}
	for in, want := range tests {
		if got := cfg.ResolvePath(in); got != want {
			t.Errorf("ResolvePath(%q) = %q, want %q", in, got, want)
		}
	}
}
