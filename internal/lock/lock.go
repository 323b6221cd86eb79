// Package lock keeps two lingua processes from serving the same dataset.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrHeld is returned when another process owns the dataset.
var ErrHeld = errors.New("dataset is locked by another process")

// Suffix is appended to the dataset path to name its lock file.
const Suffix = ".lock"

// DatasetLock is an flock(2) held on a file next to the dataset. The lock
// lives as long as the descriptor stays open.
type DatasetLock struct {
	path string
	f    *os.File
}

// PathFor returns the lock file guarding datasetPath.
func PathFor(datasetPath string) string {
	return filepath.Clean(datasetPath) + Suffix
}

// Acquire takes the lock for datasetPath without blocking and records the
// current pid in it. A held lock yields an error wrapping ErrHeld that names
// the owner's pid when it can be read.
func Acquire(datasetPath string) (*DatasetLock, error) {
	if datasetPath == "" {
		return nil, errors.New("dataset path is empty")
	}
	path := PathFor(datasetPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			if pid, ok := Owner(datasetPath); ok {
				return nil, fmt.Errorf("%w (pid %d, %s)", ErrHeld, pid, path)
			}
			return nil, fmt.Errorf("%w (%s)", ErrHeld, path)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	l := &DatasetLock{path: path, f: f}
	if err := l.writePID(); err != nil {
		_ = l.Release()
		return nil, err
	}
	return l, nil
}

func (l *DatasetLock) writePID() error {
	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := l.f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		return fmt.Errorf("write pid: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync lock file: %w", err)
	}
	return nil
}

// Owner reads the pid recorded for datasetPath. It does not check that the
// lock is still held.
func Owner(datasetPath string) (int, bool) {
	b, err := os.ReadFile(PathFor(datasetPath))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func (l *DatasetLock) Path() string { return l.path }

// Release drops the lock. It is safe to call more than once.
func (l *DatasetLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}

// Probe reports whether some process holds the lock for datasetPath,
// without taking it or touching the recorded pid.
func Probe(datasetPath string) (held bool, pid int, err error) {
	f, err := os.Open(PathFor(datasetPath))
	if errors.Is(err, os.ErrNotExist) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		if errors.Is(err, syscall.EWOULDBLOCK) {
			pid, _ := Owner(datasetPath)
			return true, pid, nil
		}
		return false, 0, fmt.Errorf("probe lock: %w", err)
	}
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	return false, 0, nil
}
