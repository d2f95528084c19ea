// Package inter defines the core datatypes shared by every layer of the
// asset ledger: the external time scalars (Timestamp, Day) and the audit
// record structure emitted for every state mutation.
//
// Key concepts:
//   - Timestamp: nanosecond wall-clock time supplied by the environment.
//     The ledger has no internal clock; callers pass the current time into
//     every operation and the ledger derives the current day from it.
//   - Day: a coarse day index (days since the Unix epoch). Premint release
//     schedules are expressed in whole days, matching the granularity at
//     which release dates are administered.
//   - AuditRecord: a (kind, old-value, new-value) tuple sufficient to
//     reconstruct the full history of an account without replaying calls.
package inter

import (
	"time"
)

// Timestamp is a UNIX timestamp in nanoseconds.
type Timestamp uint64

// Day is a day index: the number of whole days elapsed since the Unix epoch.
// Day 0 is 1970-01-01. Premint release schedules are keyed by Day.
type Day uint64

// SecondsPerDay is the fixed day length used for release-day arithmetic.
// Leap seconds are ignored; release scheduling is calendar-agnostic.
const SecondsPerDay = 24 * 60 * 60

// FromTime converts a standard library time.Time into a ledger Timestamp.
func FromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixNano())
}

// Time converts the Timestamp back into a standard library time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t)/int64(time.Second), int64(t)%int64(time.Second))
}

// Unix returns the timestamp in whole seconds.
func (t Timestamp) Unix() uint64 {
	return uint64(t) / uint64(time.Second)
}

// Day returns the day index the timestamp falls into.
func (t Timestamp) Day() Day {
	return Day(t.Unix() / SecondsPerDay)
}

// Start returns the Timestamp at which the day begins (00:00:00 UTC).
func (d Day) Start() Timestamp {
	return Timestamp(uint64(d) * SecondsPerDay * uint64(time.Second))
}
