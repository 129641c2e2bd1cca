package telemetry

import (
	"time"
)

// ByteSource is a readable stream from the telemetry producer.
type ByteSource interface {
	// PollByte waits at most wait for a single byte. ok is false when nothing
	// arrived in time. err is io.EOF once the producer's stream has ended.
	PollByte(wait time.Duration) (b byte, ok bool, err error)
	Close() error
}

// Spawner starts the telemetry producer. Every call uses the identical invocation.
type Spawner interface {
	Spawn() (ByteSource, error)
	String() string
}
