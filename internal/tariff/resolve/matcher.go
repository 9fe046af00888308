// Package resolve implements the temporal rule resolution core: pure,
// synchronous functions that pick the applicable pricing rule or operating
// window for a point in time. Nothing here does I/O or holds state, so every
// function is safe to call concurrently.
package resolve

import (
	"github.com/chargegrid/configurator/internal/tariff/domain"
)

// Matches reports whether a clock value falls inside a window. All-day
// windows match everything. A bounded window with Start <= End matches the
// inclusive range; a window with Start > End spans midnight and matches the
// two legs on either side of it.
//
// Total over well-formed windows: malformed ones are rejected at
// construction and never reach this function.
func Matches(w domain.TimeWindow, at domain.TimeOfDay) bool {
	if w.AllDay {
		return true
	}
	start, end := *w.Start, *w.End
	if start <= end {
		return start <= at && at <= end
	}
	// overnight, e.g. 20:00-08:00
	return at >= start || at <= end
}
