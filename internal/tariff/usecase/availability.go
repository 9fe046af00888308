package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chargegrid/configurator/internal/audit"
	"github.com/chargegrid/configurator/internal/cache"
	"github.com/chargegrid/configurator/internal/events"
	"github.com/chargegrid/configurator/internal/log"
	"github.com/chargegrid/configurator/internal/tariff/domain"
	"github.com/chargegrid/configurator/internal/tariff/repo"
)

// AvailabilityService manages station operating hours, one window per
// (station, day of week).
type AvailabilityService struct {
	windows   repo.AvailabilityRepository
	cache     *cache.Cache
	publisher events.Publisher
	auditor   audit.Logger
}

// NewAvailabilityService creates an availability management service.
func NewAvailabilityService(windows repo.AvailabilityRepository, windowCache *cache.Cache, publisher events.Publisher, auditor audit.Logger) *AvailabilityService {
	return &AvailabilityService{
		windows:   windows,
		cache:     windowCache,
		publisher: publisher,
		auditor:   auditor,
	}
}

// SetWindow validates and upserts one day's operating hours for a station.
func (s *AvailabilityService) SetWindow(ctx context.Context, stationID int32, dayOfWeek int, window domain.TimeWindow, actor uuid.UUID) (domain.AvailabilityWindow, error) {
	w, err := domain.NewAvailabilityWindow(stationID, dayOfWeek, window, actor)
	if err != nil {
		return domain.AvailabilityWindow{}, err
	}

	if err := s.windows.Upsert(ctx, &w); err != nil {
		return domain.AvailabilityWindow{}, fmt.Errorf("failed to save availability window: %w", err)
	}

	s.invalidateStation(ctx, stationID)
	s.auditor.Log(ctx, audit.NewEvent("set_window", "station_availability", w.ID, actor))
	s.publish(ctx, events.NewEvent(events.TypeAvailabilityUpdated, fmt.Sprintf("station-%d", stationID), map[string]interface{}{
		"station_id":  stationID,
		"day_of_week": dayOfWeek,
		"window":      window.String(),
	}))

	log.Info(ctx, "Set station availability window",
		zap.Int32("station_id", stationID),
		zap.String("day", domain.DayName(dayOfWeek)),
		zap.String("window", window.String()))
	return w, nil
}

// RemoveWindow deletes one day's operating hours, reverting that day to the
// default policy.
func (s *AvailabilityService) RemoveWindow(ctx context.Context, stationID int32, dayOfWeek int, actor uuid.UUID) error {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return domain.NewMalformedWindowError(fmt.Sprintf("day of week must be between 0 (Sunday) and 6 (Saturday), got %d", dayOfWeek))
	}
	if err := s.windows.Delete(ctx, stationID, dayOfWeek); err != nil {
		return err
	}

	s.invalidateStation(ctx, stationID)
	s.auditor.Log(ctx, audit.NewEvent("remove_window", "station_availability", stationID, actor))
	s.publish(ctx, events.NewEvent(events.TypeAvailabilityUpdated, fmt.Sprintf("station-%d", stationID), map[string]interface{}{
		"station_id":  stationID,
		"day_of_week": dayOfWeek,
		"removed":     true,
	}))
	return nil
}

// GetWeek returns a station's windows ordered by day, flagging duplicate
// days as a data-integrity error rather than picking one.
func (s *AvailabilityService) GetWeek(ctx context.Context, stationID int32) ([]domain.AvailabilityWindow, error) {
	windows, err := s.windows.FindByStation(ctx, stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch station availability: %w", err)
	}

	seen := make(map[int]bool, len(windows))
	for _, w := range windows {
		if seen[w.DayOfWeek] {
			return nil, domain.NewDuplicateWindowError(stationID, w.DayOfWeek)
		}
		seen[w.DayOfWeek] = true
	}
	return windows, nil
}

func (s *AvailabilityService) invalidateStation(ctx context.Context, stationID int32) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateStation(ctx, stationID); err != nil {
		log.Warn(ctx, "Failed to invalidate station window cache",
			zap.Int32("station_id", stationID), zap.Error(err))
	}
}

func (s *AvailabilityService) publish(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn(ctx, "Failed to publish event",
			zap.String("event_type", event.Type), zap.Error(err))
	}
}
