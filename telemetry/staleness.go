package telemetry

import "time"

// OfflineThreshold is the age at which a Reading is considered stale and the
// panel switches to its offline indicator.
const OfflineThreshold = 2 * time.Second

// Age returns how old r is at now. A zero Reading has no age and reports the
// largest duration.
func Age(r Reading, now time.Time) time.Duration {
	if r.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	age := now.Sub(r.At)
	if age < 0 {
		return 0
	}
	return age
}

// Offline reports whether the source must be shown as offline at now.
func Offline(r Reading, now time.Time) bool {
	return Age(r, now) >= OfflineThreshold
}
