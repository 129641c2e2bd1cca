//go:build linux

package telemetry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const processStopGrace = time.Second

// CommandSpawner runs a shell command and reads its combined stdout/stderr.
type CommandSpawner struct {
	Command string
	Shell   string
}

func (s CommandSpawner) String() string {
	return fmt.Sprintf("%q", s.Command)
}

// Spawn starts the command in its own process group with stdout and stderr
// sharing one pipe.
func (s CommandSpawner) Spawn() (ByteSource, error) {
	shell := s.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	cmd := exec.Command(shell, "-c", s.Command)
	cmd.Stdout = w
	cmd.Stderr = w
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, fmt.Errorf("start %s: %w", s, err)
	}
	// only the child keeps the write end so its exit produces end-of-stream
	w.Close()
	return &processSource{cmd: cmd, r: r, fd: int(r.Fd())}, nil
}

type processSource struct {
	cmd *exec.Cmd
	r   *os.File
	fd  int
}

func (p *processSource) PollByte(wait time.Duration) (byte, bool, error) {
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
	ts := unix.NsecToTimespec(wait.Nanoseconds())
	n, err := unix.Ppoll(fds, &ts, nil)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return 0, false, nil
	}
	var b [1]byte
	m, err := unix.Read(p.fd, b[:])
	if err != nil {
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read: %w", err)
	}
	if m == 0 {
		return 0, false, io.EOF
	}
	return b[0], true, nil
}

// Close closes the pipe, stops the process group and reaps the child.
func (p *processSource) Close() error {
	closeErr := p.r.Close()
	pgid := -p.cmd.Process.Pid
	_ = unix.Kill(pgid, unix.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(processStopGrace):
		_ = unix.Kill(pgid, unix.SIGKILL)
		<-done
	}
	return closeErr
}
