package resolve

import (
	"sort"

	"github.com/chargegrid/configurator/internal/tariff/domain"
)

const minutesPerDay = 24 * 60

// Transition is a point at which a station changes between open and closed.
// Open is the state that begins at the transition.
type Transition struct {
	DayOfWeek int              `json:"day_of_week"`
	At        domain.TimeOfDay `json:"at"`
	Open      bool             `json:"open"`
}

// windowsByDay indexes a station's week, flagging duplicate days. More than
// one window for the same (station, day) is a data-integrity error to
// surface, not to resolve by picking one.
func windowsByDay(windows []domain.AvailabilityWindow) (map[int]domain.TimeWindow, error) {
	byDay := make(map[int]domain.TimeWindow, len(windows))
	for _, w := range windows {
		if _, dup := byDay[w.DayOfWeek]; dup {
			return nil, domain.NewDuplicateWindowError(w.StationID, w.DayOfWeek)
		}
		byDay[w.DayOfWeek] = w.Window
	}
	return byDay, nil
}

// IsOpen answers whether a station is open on a day at a clock time.
// A day with no window falls back to defaultOpen, the configured policy for
// absent records (closed by default).
func IsOpen(windows []domain.AvailabilityWindow, dayOfWeek int, at domain.TimeOfDay, defaultOpen bool) (bool, error) {
	byDay, err := windowsByDay(windows)
	if err != nil {
		return false, err
	}
	return openAt(byDay, dayOfWeek, at, defaultOpen), nil
}

func openAt(byDay map[int]domain.TimeWindow, dayOfWeek int, at domain.TimeOfDay, defaultOpen bool) bool {
	w, ok := byDay[dayOfWeek]
	if !ok {
		return defaultOpen
	}
	return Matches(w, at)
}

// NextTransition finds the next open/close boundary within the coming seven
// days, given the current day and time. Returns nil when the state never
// changes (always open or always closed).
func NextTransition(windows []domain.AvailabilityWindow, dayOfWeek int, at domain.TimeOfDay, defaultOpen bool) (*Transition, error) {
	byDay, err := windowsByDay(windows)
	if err != nil {
		return nil, err
	}

	now := dayOfWeek*minutesPerDay + int(at)
	current := openAt(byDay, dayOfWeek, at, defaultOpen)

	// Openness is piecewise constant; it can only flip at a window bound
	// or at midnight when adjacent days differ. Collect those points over
	// the next week and probe each in order.
	var points []int
	for offset := 0; offset <= 7; offset++ {
		day := (dayOfWeek + offset) % 7
		base := (dayOfWeek + offset) * minutesPerDay
		points = append(points, base) // midnight
		if w, ok := byDay[day]; ok && !w.AllDay {
			points = append(points, base+int(*w.Start), base+int(*w.End)+1)
		}
	}
	sort.Ints(points)

	for _, p := range points {
		if p <= now || p >= now+7*minutesPerDay {
			continue
		}
		day := (p / minutesPerDay) % 7
		tod := domain.TimeOfDay(p % minutesPerDay)
		if state := openAt(byDay, day, tod, defaultOpen); state != current {
			return &Transition{DayOfWeek: day, At: tod, Open: state}, nil
		}
	}
	return nil, nil
}
