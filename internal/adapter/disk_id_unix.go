//go:build unix

package adapter

import (
	"fmt"
	"os"
	"syscall"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

// deviceID returns the st_dev of the filesystem object at path.
func deviceID(path string) (m.DiskID, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	sys, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("no stat_t for %q", path)
	}

	return m.DiskID(sys.Dev), nil
}
