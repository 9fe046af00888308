package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DayName maps a 0=Sunday..6=Saturday index to its English name.
func DayName(dayOfWeek int) string {
	names := []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return "Unknown"
	}
	return names[dayOfWeek]
}

// AvailabilityWindow is one day's operating hours for a station. At most one
// record may exist per (station, day); a day with no record falls back to
// the configured default policy.
type AvailabilityWindow struct {
	ID        int32      `json:"id" db:"availability_id"`
	StationID int32      `json:"station_id" db:"station_id"`
	DayOfWeek int        `json:"day_of_week" db:"day_of_week"`
	Window    TimeWindow `json:"window"`
	CreatedBy uuid.UUID  `json:"created_by" db:"created_by"`
	UpdatedBy *uuid.UUID `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// NewAvailabilityWindow validates and builds a day's operating hours.
func NewAvailabilityWindow(stationID int32, dayOfWeek int, window TimeWindow, createdBy uuid.UUID) (AvailabilityWindow, error) {
	if stationID <= 0 {
		return AvailabilityWindow{}, NewInvalidInputError("station id is required", fmt.Sprintf("station_id=%d", stationID))
	}
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return AvailabilityWindow{}, NewMalformedWindowError(fmt.Sprintf("day of week must be between 0 (Sunday) and 6 (Saturday), got %d", dayOfWeek))
	}
	if err := window.Validate(); err != nil {
		return AvailabilityWindow{}, err
	}

	now := time.Now().UTC()
	return AvailabilityWindow{
		StationID: stationID,
		DayOfWeek: dayOfWeek,
		Window:    window,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
