package telemetry

import (
	"log"
	"time"
)

// SupervisorOptions tunes the reconnect behaviour.
type SupervisorOptions struct {
	// Cooldown is the pause between closing an ended stream and respawning it.
	Cooldown time.Duration
	// RetryBase and RetryMax bound the backoff used when Spawn itself fails.
	RetryBase time.Duration
	RetryMax  time.Duration
	// OnRespawn is called after every respawn triggered by an end-of-stream.
	OnRespawn func()
	// OnConnect is called with true after each successful spawn and false when
	// the current source is closed.
	OnConnect func(connected bool)
}

// Supervisor owns the telemetry producer handle. It relaunches the producer
// every time its stream ends, for the life of the process.
type Supervisor struct {
	spawner   Spawner
	cooldown  time.Duration
	retry     *backoff
	src       ByteSource
	nextSpawn time.Time
	respawns  uint64
	onRespawn func()
	onConnect func(bool)

	now   func() time.Time
	sleep func(time.Duration)
}

// NewSupervisor creates a supervisor; the first spawn happens lazily on Source.
func NewSupervisor(spawner Spawner, opts SupervisorOptions) *Supervisor {
	return &Supervisor{
		spawner:   spawner,
		cooldown:  opts.Cooldown,
		retry:     newBackoff(opts.RetryBase, opts.RetryMax),
		onRespawn: opts.OnRespawn,
		onConnect: opts.OnConnect,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// Source returns the live producer stream, spawning it if there is none and
// the spawn backoff allows. It returns nil while the producer is unavailable.
func (s *Supervisor) Source() ByteSource {
	if s.src != nil {
		return s.src
	}
	if now := s.now(); now.Before(s.nextSpawn) {
		return nil
	}
	s.spawn()
	return s.src
}

// Restart closes the ended stream, waits the cooldown and launches the producer
// again with the same invocation. It issues exactly one spawn attempt.
func (s *Supervisor) Restart(reason error) {
	log.Printf("Telemetry: %s stream ended (%v); restarting", s.spawner, reason)
	s.closeSource()
	if s.cooldown > 0 {
		s.sleep(s.cooldown)
	}
	s.respawns++
	s.spawn()
	if s.onRespawn != nil {
		s.onRespawn()
	}
}

// Respawns returns how many end-of-stream restarts have been issued.
func (s *Supervisor) Respawns() uint64 {
	return s.respawns
}

// Connected reports whether a producer stream is currently open.
func (s *Supervisor) Connected() bool {
	return s.src != nil
}

// Close releases the current producer, if any.
func (s *Supervisor) Close() error {
	if s.src == nil {
		return nil
	}
	err := s.src.Close()
	s.src = nil
	if s.onConnect != nil {
		s.onConnect(false)
	}
	return err
}

func (s *Supervisor) spawn() {
	src, err := s.spawner.Spawn()
	if err != nil {
		delay := s.retry.Next()
		s.nextSpawn = s.now().Add(delay)
		log.Printf("Telemetry: unable to start %s: %v (retry in %s)", s.spawner, err, delay)
		return
	}
	s.retry.Reset()
	s.nextSpawn = time.Time{}
	s.src = src
	if s.onConnect != nil {
		s.onConnect(true)
	}
}

func (s *Supervisor) closeSource() {
	if err := s.Close(); err != nil {
		log.Printf("Telemetry: closing %s: %v", s.spawner, err)
	}
}
