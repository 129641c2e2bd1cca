package logging

import (
	"fmt"
	"sync"
	"time"
)

const defaultLimiterMaxKeys = 64

// Limiter suppresses repeats of the same log key within a window and reports
// how many were suppressed when the key is next allowed through.
//
// Purpose: Keep per-frame failures (sink writes, acquisition) from flooding
// the console at 30 lines per second.
// Key aspects: Keys are caller-chosen; the key set is bounded by evicting the
// least recently seen entry.
// Upstream: frame loops on write failure.
// Downstream: log.Printf via the returned line.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	maxKeys int
	now     func() time.Time
	entries map[string]limiterEntry
}

type limiterEntry struct {
	nextEmit   time.Time
	lastSeen   time.Time
	suppressed uint64
}

// NewLimiter returns a limiter; a nil limiter lets every line through.
func NewLimiter(window time.Duration) *Limiter {
	if window <= 0 {
		return nil
	}
	return &Limiter{
		window:  window,
		maxKeys: defaultLimiterMaxKeys,
		now:     time.Now,
		entries: make(map[string]limiterEntry),
	}
}

// Allow reports whether line (grouped under key) should be logged now. The
// returned line carries the suppressed count when earlier repeats were held.
func (l *Limiter) Allow(key, line string) (string, bool) {
	if l == nil {
		return line, true
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, found := l.entries[key]
	if !found {
		l.evictLocked()
		l.entries[key] = limiterEntry{nextEmit: now.Add(l.window), lastSeen: now}
		return line, true
	}
	entry.lastSeen = now
	if now.Before(entry.nextEmit) {
		entry.suppressed++
		l.entries[key] = entry
		return "", false
	}
	suppressed := entry.suppressed
	entry.suppressed = 0
	entry.nextEmit = now.Add(l.window)
	l.entries[key] = entry
	if suppressed > 0 {
		line = fmt.Sprintf("%s (suppressed=%d over %s)", line, suppressed, l.window)
	}
	return line, true
}

func (l *Limiter) evictLocked() {
	if len(l.entries) < l.maxKeys {
		return
	}
	var oldestKey string
	var oldest time.Time
	first := true
	for key, entry := range l.entries {
		if first || entry.lastSeen.Before(oldest) {
			oldestKey, oldest, first = key, entry.lastSeen, false
		}
	}
	delete(l.entries, oldestKey)
}
