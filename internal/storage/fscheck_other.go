//go:build !darwin && !linux

package storage

import "errors"

func probeMount(string) (string, error) {
	return "", errors.New("mount probing is not supported on this platform")
}
