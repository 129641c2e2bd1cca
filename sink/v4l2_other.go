//go:build !linux

package sink

import (
	"errors"
	"fmt"
)

// Open is only available on Linux, where v4l2loopback exists.
func Open(path string, format Format) (*Writer, error) {
	return nil, fmt.Errorf("unable to open %s: %w", path, errors.ErrUnsupported)
}
