package domain

import (
	"time"
)

// ResolutionContext is the query-time input to rule resolution: where the
// charge happens and when.
type ResolutionContext struct {
	NetworkID       int32      `json:"network_id"`
	ConnectorTypeID *int32     `json:"connector_type_id,omitempty"`
	Date            time.Time  `json:"date"`
	Time            *TimeOfDay `json:"time,omitempty"`
	DayOfWeek       int        `json:"day_of_week"`
}

// NewResolutionContext builds a context for a network at a point in time,
// deriving the day of week (0=Sunday..6=Saturday) from the date.
func NewResolutionContext(networkID int32, connectorTypeID *int32, date time.Time, timeOfDay *TimeOfDay) ResolutionContext {
	return ResolutionContext{
		NetworkID:       networkID,
		ConnectorTypeID: connectorTypeID,
		Date:            DateOnly(date),
		Time:            timeOfDay,
		DayOfWeek:       DayOfWeek(date),
	}
}

// At builds a context from a full timestamp, splitting it into date,
// time of day and day of week.
func At(networkID int32, connectorTypeID *int32, at time.Time) ResolutionContext {
	at = at.UTC()
	tod := TimeOfDay(at.Hour()*60 + at.Minute())
	return NewResolutionContext(networkID, connectorTypeID, at, &tod)
}
