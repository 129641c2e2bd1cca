// Package telemetry ingests the line-oriented measurement stream of an external
// instrument process, keeps the latest Reading and restarts the producer when
// its stream ends.
//
// Each line has the form "<label> <value> <unit>", for example the output of
// sigrok-cli for a UNI-T UT61E:
//
//	P1 0.0312 V DC
//	P1 inf Ohm
//
// Only the latest Reading is kept; there is no history.
package telemetry

import (
	"strings"
	"time"
)

// OverflowValue is the value token a meter reports when the input is out of range.
const OverflowValue = "inf"

// Reading is one parsed measurement line. It is replaced wholesale by the next
// completed line and never mutated after publication.
type Reading struct {
	Label string
	Value string
	Unit  string
	At    time.Time
}

// IsZero reports whether no line has been published yet.
func (r Reading) IsZero() bool {
	return r.At.IsZero()
}

// IsOverflow reports whether the meter signalled an out-of-range value.
func (r Reading) IsOverflow() bool {
	return strings.EqualFold(r.Value, OverflowValue)
}

// parseLine splits a completed line into label, value and unit. The unit keeps
// every remaining field ("V DC"), joined by single spaces. Missing fields are
// left empty.
func parseLine(line []byte, at time.Time) Reading {
	fields := strings.Fields(string(line))
	r := Reading{At: at}
	if len(fields) > 0 {
		r.Label = fields[0]
	}
	if len(fields) > 1 {
		r.Value = fields[1]
	}
	if len(fields) > 2 {
		r.Unit = strings.Join(fields[2:], " ")
	}
	return r
}
