//go:build linux

package storage

import (
	"fmt"
	"syscall"
)

// Superblock magic numbers from statfs(2) for the remote types we refuse.
var linuxMagic = map[uint64]string{
	0x6969:     "nfs",
	0x517B:     "smbfs",
	0xFF534D42: "cifs",
	0xFE534D42: "smb2",
}

func probeMount(path string) (string, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return "", fmt.Errorf("statfs: %w", err)
	}
	magic := uint64(st.Type)
	if name, ok := linuxMagic[magic]; ok {
		return name, nil
	}
	return fmt.Sprintf("0x%x", magic), nil
}
