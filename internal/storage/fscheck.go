package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// mountProbe names the filesystem type backing an existing path.
type mountProbe func(path string) (string, error)

// remoteMounts lists filesystem types on which sqlite file locks are unreliable.
var remoteMounts = map[string]bool{
	"afpfs":  true,
	"cifs":   true,
	"nfs":    true,
	"smb2":   true,
	"smbfs":  true,
	"webdav": true,
}

func ensureLocalDataset(path string) error {
	return checkDatasetMount(path, probeMount)
}

// checkDatasetMount rejects a dataset whose closest existing ancestor lives
// on a remote mount. The dataset file itself may not exist yet.
func checkDatasetMount(path string, probe mountProbe) error {
	if path == "" {
		return fmt.Errorf("sqlite path is empty")
	}
	anchor, err := existingAncestor(path)
	if err != nil {
		return fmt.Errorf("resolve dataset path %q: %w", path, err)
	}
	kind, err := probe(anchor)
	if err != nil {
		return fmt.Errorf("probe mount of %q: %w", anchor, err)
	}
	if isRemoteMount(kind) {
		return fmt.Errorf("dataset path %q is on network filesystem %q; SQLite requires a local filesystem for reliable locking. Set dataset.path (or LINGUA_DATASET_PATH) to a local file", path, kind)
	}
	return nil
}

func existingAncestor(path string) (string, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		switch _, err := os.Stat(dir); {
		case err == nil:
			return dir, nil
		case !errors.Is(err, os.ErrNotExist):
			return "", err
		}
		up := filepath.Dir(dir)
		if up == dir {
			return "", fmt.Errorf("no existing ancestor")
		}
		dir = up
	}
}

func isRemoteMount(kind string) bool {
	return remoteMounts[strings.ToLower(strings.TrimSpace(kind))]
}
