//go:build windows

package adapter

import (
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

// deviceID derives a stable identity from the volume name (drive letter or
// UNC share). Windows has no st_dev; the volume is the closest analogue of
// "one physical disk" for scheduling purposes.
func deviceID(path string) (m.DiskID, error) {
	volume := filepath.VolumeName(path)
	if volume == "" {
		return 0, fmt.Errorf("no volume name in %q", path)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToUpper(volume)))

	return m.DiskID(h.Sum64()), nil
}
