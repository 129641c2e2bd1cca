package telemetry

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestConnSourcePollAndEOF(t *testing.T) {
	server, client := net.Pipe()
	src := &connSource{conn: client}
	defer src.Close()

	if _, ok, err := src.PollByte(10 * time.Millisecond); ok || err != nil {
		t.Fatalf("expected timeout without data, got ok=%v err=%v", ok, err)
	}

	go func() {
		_, _ = server.Write([]byte("Z"))
		server.Close()
	}()
	deadline := time.Now().Add(2 * time.Second)
	var got byte
	for time.Now().Before(deadline) {
		b, ok, err := src.PollByte(50 * time.Millisecond)
		if err != nil {
			t.Fatalf("unexpected error before data: %v", err)
		}
		if ok {
			got = b
			break
		}
	}
	if got != 'Z' {
		t.Fatalf("expected byte Z, got %q", got)
	}
	_, _, err := src.PollByte(time.Second)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after peer close, got %v", err)
	}
}

func TestTelnetSpawnerString(t *testing.T) {
	sp := TelnetSpawner{Host: "bench-pi", Port: 2000}
	if got := sp.String(); got != "telnet://bench-pi:2000" {
		t.Fatalf("unexpected spawner name %q", got)
	}
}
