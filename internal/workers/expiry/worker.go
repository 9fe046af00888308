// Package expiry runs the scheduled sweep that retires pricing rules whose
// effective range has ended.
package expiry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/chargegrid/configurator/internal/log"
	"github.com/chargegrid/configurator/internal/metrics"
	"github.com/chargegrid/configurator/internal/tariff/usecase"
)

// SystemActor stamps deactivations performed by the sweep rather than a
// person.
var SystemActor = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Worker deactivates expired pricing rules on a cron schedule.
type Worker struct {
	rules    *usecase.RuleService
	schedule string
	cron     *cron.Cron
}

// NewWorker creates an expiry worker with a cron spec like "10 0 * * *".
func NewWorker(rules *usecase.RuleService, schedule string) *Worker {
	return &Worker{
		rules:    rules,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Name returns the worker name
func (w *Worker) Name() string {
	return "expiry"
}

// Start schedules the sweep.
func (w *Worker) Start() error {
	_, err := w.cron.AddFunc(w.schedule, func() {
		ctx := context.Background()
		if err := w.Run(ctx); err != nil {
			log.Error(ctx, "Expiry sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule expiry worker: %w", err)
	}

	w.cron.Start()
	return nil
}

// Stop stops the worker
func (w *Worker) Stop() {
	w.cron.Stop()
}

// Run executes one sweep.
func (w *Worker) Run(ctx context.Context) error {
	log.Info(ctx, "Running expired-rule sweep")
	metrics.ExpirySweepRuns.Inc()

	count, err := w.rules.DeactivateExpired(ctx, time.Now().UTC(), SystemActor)
	if err != nil {
		return fmt.Errorf("expiry sweep: %w", err)
	}

	metrics.ExpirySweepDeactivated.Add(float64(count))
	log.Info(ctx, "Expired-rule sweep finished", zap.Int("deactivated", count))
	return nil
}
