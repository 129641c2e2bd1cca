package telemetry

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ziutek/telnet"
)

// TelnetSpawner dials a telnet line source, for example a serial-to-network
// bridge in front of the meter.
type TelnetSpawner struct {
	Host        string
	Port        int
	DialTimeout time.Duration
}

func (s TelnetSpawner) String() string {
	return "telnet://" + net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Spawn opens a new connection to the line source.
func (s TelnetSpawner) Spawn() (ByteSource, error) {
	timeout := s.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	conn, err := telnet.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &connSource{conn: conn}, nil
}

// connSource polls a net.Conn with read deadlines.
type connSource struct {
	conn net.Conn
	b    [1]byte
}

func (c *connSource) PollByte(wait time.Duration) (byte, bool, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return 0, false, err
	}
	n, err := c.conn.Read(c.b[:])
	if n == 1 {
		return c.b[0], true, nil
	}
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return 0, false, nil
}

func (c *connSource) Close() error {
	return c.conn.Close()
}
