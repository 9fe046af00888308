package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chargegrid/configurator/internal/tariff/domain"
)

// MemoryStore is an in-memory implementation of both repositories, used by
// tests and local runs without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	rules   map[int32]domain.PricingRule
	windows map[int32]domain.AvailabilityWindow
	nextID  int32
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules:   make(map[int32]domain.PricingRule),
		windows: make(map[int32]domain.AvailabilityWindow),
		nextID:  1,
	}
}

var (
	_ RuleRepository         = (*MemoryStore)(nil)
	_ AvailabilityRepository = (*MemoryStore)(nil)
)

// Create persists a new rule and assigns its ID.
func (s *MemoryStore) Create(_ context.Context, rule *domain.PricingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule.ID = s.nextID
	s.nextID++
	s.rules[rule.ID] = *rule
	return nil
}

// GetByID retrieves a rule by ID.
func (s *MemoryStore) GetByID(_ context.Context, id int32) (domain.PricingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[id]
	if !ok {
		return domain.PricingRule{}, domain.NewNotFoundError("pricing rule", id)
	}
	return rule, nil
}

// FindActiveRules returns active rules for the network live on the date.
func (s *MemoryStore) FindActiveRules(_ context.Context, networkID int32, connectorTypeID *int32, date time.Time) ([]domain.PricingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.PricingRule
	for _, r := range s.rules {
		if r.NetworkID != networkID || !r.Active || !r.Effective.Contains(date) {
			continue
		}
		if r.ConnectorTypeID != nil && (connectorTypeID == nil || *r.ConnectorTypeID != *connectorTypeID) {
			continue
		}
		out = append(out, r)
	}
	sortByID(out)
	return out, nil
}

// ListByNetwork returns a network's rules, newest first.
func (s *MemoryStore) ListByNetwork(_ context.Context, networkID int32, limit, offset int) ([]domain.PricingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.PricingRule
	for _, r := range s.rules {
		if r.NetworkID == networkID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// FindEffectiveBetween returns rules overlapping the date interval.
func (s *MemoryStore) FindEffectiveBetween(_ context.Context, networkID int32, from, until time.Time) ([]domain.PricingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from, until = domain.DateOnly(from), domain.DateOnly(until)
	var out []domain.PricingRule
	for _, r := range s.rules {
		if r.NetworkID != networkID {
			continue
		}
		if r.Effective.From.After(until) {
			continue
		}
		if r.Effective.Until != nil && r.Effective.Until.Before(from) {
			continue
		}
		out = append(out, r)
	}
	sortByID(out)
	return out, nil
}

// FindExpired returns active rules whose effective range has passed.
func (s *MemoryStore) FindExpired(_ context.Context, asOf time.Time) ([]domain.PricingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.PricingRule
	for _, r := range s.rules {
		if r.Active && r.Effective.Expired(asOf) {
			out = append(out, r)
		}
	}
	sortByID(out)
	return out, nil
}

// Update persists rule mutations.
func (s *MemoryStore) Update(_ context.Context, rule domain.PricingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.ID]; !ok {
		return domain.NewNotFoundError("pricing rule", rule.ID)
	}
	s.rules[rule.ID] = rule
	return nil
}

// FindByStation returns a station's week ordered by day of week.
func (s *MemoryStore) FindByStation(_ context.Context, stationID int32) ([]domain.AvailabilityWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AvailabilityWindow
	for _, w := range s.windows {
		if w.StationID == stationID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

// Upsert inserts or replaces the window for the record's (station, day).
func (s *MemoryStore) Upsert(_ context.Context, window *domain.AvailabilityWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range s.windows {
		if w.StationID == window.StationID && w.DayOfWeek == window.DayOfWeek {
			window.ID = id
			s.windows[id] = *window
			return nil
		}
	}
	window.ID = s.nextID
	s.nextID++
	s.windows[window.ID] = *window
	return nil
}

// Delete removes the window for a (station, day) pair.
func (s *MemoryStore) Delete(_ context.Context, stationID int32, dayOfWeek int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range s.windows {
		if w.StationID == stationID && w.DayOfWeek == dayOfWeek {
			delete(s.windows, id)
			return nil
		}
	}
	return domain.NewNotFoundError("availability window", stationID)
}

func sortByID(rules []domain.PricingRule) {
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
}
