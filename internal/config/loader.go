package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces the environment overrides, e.g. LINGUA_ENGINE_WORKERS.
const EnvPrefix = "LINGUA_"

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads the configuration file at configPath. The order of precedence
// is defaults, then the file (with ${VAR} interpolation), then LINGUA_*
// environment variables. When a .checksums manifest sits next to the file,
// the file must match it.
func Load(configPath string) (*Config, error) {
	return load(configPath, true)
}

// LoadUnverified is Load without the checksum check. It exists so an edited
// config can be re-locked.
func LoadUnverified(configPath string) (*Config, error) {
	return load(configPath, false)
}

func load(configPath string, verify bool) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	if verify {
		if err := verifyConfigHash(absPath); err != nil {
			return nil, err
		}
	}

	cfg, err := loadConfigFile(absPath)
	if err != nil {
		return nil, err
	}
	cfg.SourcePath = absPath

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configPath, or returns defaults with environment
// overrides when configPath is empty.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath != "" {
		return Load(configPath)
	}
	cfg := Defaults()
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadConfigFile parses path on top of the defaults.
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	interpolated := interpolateEnv(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with LINGUA_* environment variables. Unset
// variables leave the current values alone.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// verifyConfigHash checks path, and every other file listed in the
// manifest of its directory. A missing manifest skips verification.
func verifyConfigHash(path string) error {
	dir := filepath.Dir(path)
	manifest, err := LoadChecksums(dir)
	if errors.Is(err, ErrNoChecksums) {
		return nil
	}
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	if _, ok := manifest.Hashes[name]; !ok {
		return fmt.Errorf("config file %s has no hash in checksums at %s\n"+
			"Run: lingua config lock --config %s", name, dir, path)
	}

	names := make([]string, 0, len(manifest.Hashes))
	for n := range manifest.Hashes {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		file := filepath.Join(dir, n)
		if _, err := os.Stat(file); os.IsNotExist(err) {
			return fmt.Errorf("file %s is in checksums but missing from disk", n)
		}
		if err := VerifyFileHash(file, manifest.Hashes[n]); err != nil {
			return fmt.Errorf("config verification failed for %s: %w\n"+
				"This indicates tampering or unauthorized modification.\n"+
				"If you edited this file intentionally, run: lingua config lock --config %s", file, err, path)
		}
	}
	return nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}
