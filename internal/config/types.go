package config

import "time"

// Config is the complete lingua configuration.
type Config struct {
	Service ServiceConfig `yaml:"service" envPrefix:"SERVICE_"`
	Dataset DatasetConfig `yaml:"dataset" envPrefix:"DATASET_"`
	API     APIConfig     `yaml:"api" envPrefix:"API_"`
	Engine  EngineConfig  `yaml:"engine" envPrefix:"ENGINE_"`
	Events  EventsConfig  `yaml:"events" envPrefix:"EVENTS_"`
	Tracing TracingConfig `yaml:"tracing" envPrefix:"TRACING_"`

	// SourcePath is the absolute path of the loaded file.
	SourcePath string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name" env:"NAME"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

// DatasetConfig locates the sqlite database served by both engines.
type DatasetConfig struct {
	Name string `yaml:"name" env:"NAME"`
	Path string `yaml:"path" env:"PATH"`
	// Seed is an optional SQL script executed at startup.
	Seed string `yaml:"seed,omitempty" env:"SEED"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Listen          string          `yaml:"listen" env:"LISTEN"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	MaxBodyBytes    int64           `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	Auth            AuthConfig      `yaml:"auth" envPrefix:"AUTH_"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
}

// AuthConfig defines API authentication settings.
type AuthConfig struct {
	// AnonymousRole is granted to requests without a bearer token.
	AnonymousRole string     `yaml:"anonymous_role" env:"ANONYMOUS_ROLE"`
	Tokens        []APIToken `yaml:"tokens,omitempty"`
}

// APIToken binds a bearer token to a role.
type APIToken struct {
	Token string `yaml:"token"`
	Role  string `yaml:"role"`
	Name  string `yaml:"name,omitempty"`
}

// RateLimitConfig bounds requests per principal. A zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RPS"`
	Burst int     `yaml:"burst" env:"BURST"`
}

// EngineConfig sizes the worker pool shared by all engines.
type EngineConfig struct {
	Workers   int           `yaml:"workers" env:"WORKERS"`
	Queue     int           `yaml:"queue" env:"QUEUE"`
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Languages []string      `yaml:"languages" env:"LANGUAGES" envSeparator:","`
}

// EventsConfig sizes the event hub.
type EventsConfig struct {
	Buffer  int `yaml:"buffer" env:"BUFFER"`
	History int `yaml:"history" env:"HISTORY"`
}

// TracingConfig selects the OTLP/HTTP trace collector.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLED"`
	Endpoint    string  `yaml:"endpoint" env:"ENDPOINT"`
	SampleRatio float64 `yaml:"sample_ratio,omitempty" env:"SAMPLE_RATIO"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "lingua",
			LogLevel: "info",
		},
		Dataset: DatasetConfig{
			Name: "default",
			Path: "./data/lingua.db",
		},
		API: APIConfig{
			Listen:          "127.0.0.1:8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 5 * time.Second,
			MaxBodyBytes:    1 << 20,
			Auth: AuthConfig{
				AnonymousRole: "none",
			},
			RateLimit: RateLimitConfig{
				RPS:   0,
				Burst: 20,
			},
		},
		Engine: EngineConfig{
			Workers:   8,
			Queue:     64,
			Timeout:   30 * time.Second,
			Languages: []string{"sql", "sparql"},
		},
		Events: EventsConfig{
			Buffer:  1024,
			History: 256,
		},
		Tracing: TracingConfig{
			Enabled: false,
		},
	}
}
