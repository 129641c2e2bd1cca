//go:build !linux

package telemetry

import (
	"errors"
	"fmt"
)

// CommandSpawner runs a shell command and reads its combined stdout/stderr.
// Only Linux is supported.
type CommandSpawner struct {
	Command string
	Shell   string
}

func (s CommandSpawner) String() string {
	return fmt.Sprintf("%q", s.Command)
}

func (s CommandSpawner) Spawn() (ByteSource, error) {
	return nil, fmt.Errorf("start %s: %w", s, errors.ErrUnsupported)
}
