package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// ChecksumsFile is the manifest name written next to the config file.
const ChecksumsFile = ".checksums"

// ErrNoChecksums is returned by LoadChecksums when no manifest exists.
var ErrNoChecksums = errors.New("checksums file not found (run 'lingua config lock')")

// ChecksumManifest maps file base names to BLAKE3 hashes.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// LockFileResult captures checksum generation outcome for one file.
type LockFileResult struct {
	Filename string
	Path     string
	Exists   bool
	Hash     string
}

// LockReport captures checksum generation details for a config directory.
type LockReport struct {
	ConfigDir    string
	ChecksumPath string
	Written      bool
	Files        []LockFileResult
}

// ComputeBlake3Hash computes the BLAKE3 hash of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// VerifyFileHash verifies a file against an expected BLAKE3 hash.
func VerifyFileHash(filePath, expectedHash string) error {
	actualHash, err := ComputeBlake3Hash(filePath)
	if err != nil {
		return fmt.Errorf("failed to compute hash: %w", err)
	}

	if actualHash != expectedHash {
		return fmt.Errorf("hash mismatch for %s: expected %s, got %s",
			filepath.Base(filePath), expectedHash, actualHash)
	}
	return nil
}

// Lock hashes the config file and, when it lives in the same directory, the
// dataset seed script, then writes the manifest. With dryRun nothing is
// written.
func Lock(cfg *Config, dryRun bool) (*LockReport, error) {
	dir := filepath.Dir(cfg.SourcePath)
	files := []string{filepath.Base(cfg.SourcePath)}
	if cfg.Dataset.Seed != "" {
		seed := cfg.ResolvePath(cfg.Dataset.Seed)
		if filepath.Dir(seed) == dir {
			files = append(files, filepath.Base(seed))
		}
	}
	return writeChecksums(dir, files, dryRun)
}

func writeChecksums(configDir string, filenames []string, dryRun bool) (*LockReport, error) {
	manifest := ChecksumManifest{
		Version:     1,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Hashes:      make(map[string]string),
	}
	report := &LockReport{
		ConfigDir:    configDir,
		ChecksumPath: filepath.Join(configDir, ChecksumsFile),
		Files:        make([]LockFileResult, 0, len(filenames)),
	}

	sort.Strings(filenames)
	for _, filename := range filenames {
		filePath := filepath.Join(configDir, filename)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			report.Files = append(report.Files, LockFileResult{Filename: filename, Path: filePath})
			continue
		}

		hash, err := ComputeBlake3Hash(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", filename, err)
		}
		manifest.Hashes[filename] = hash
		report.Files = append(report.Files, LockFileResult{
			Filename: filename,
			Path:     filePath,
			Exists:   true,
			Hash:     hash,
		})
	}

	if dryRun {
		return report, nil
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checksums: %w", err)
	}
	// Restrictive permissions: the manifest is the trust anchor.
	if err := os.WriteFile(report.ChecksumPath, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write checksums: %w", err)
	}
	report.Written = true
	return report, nil
}

// LoadChecksums reads the manifest from a config directory.
func LoadChecksums(configDir string) (*ChecksumManifest, error) {
	data, err := os.ReadFile(filepath.Join(configDir, ChecksumsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoChecksums
		}
		return nil, fmt.Errorf("failed to read checksums: %w", err)
	}

	var manifest ChecksumManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse checksums: %w", err)
	}
	if manifest.Version != 1 {
		return nil, fmt.Errorf("unsupported checksums version: %d", manifest.Version)
	}
	return &manifest, nil
}
