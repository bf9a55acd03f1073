// Package scheduler implements the report loop. Each cycle samples the host,
// attaches the static inventory when the epoch is fresh, assembles one
// payload and hands it to the reporter, then sleeps for a fixed interval.
// The loop runs until its context is cancelled; no failure stops it.
package scheduler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pinty-monitor/agent/internal/models"
)

// MetricSource samples the per-cycle metrics.
type MetricSource interface {
	Dynamic(ctx context.Context) models.DynamicSample
	Network(ctx context.Context) models.NetworkUsage
}

// InventorySource collects the static host inventory.
type InventorySource interface {
	Collect(ctx context.Context) models.StaticInventory
}

// EpochTracker records whether the static inventory was sent in the current epoch.
type EpochTracker interface {
	IsEpochFresh() bool
	MarkEpochSent() error
}

// Reporter delivers a payload and classifies the outcome.
type Reporter interface {
	Send(ctx context.Context, payload models.ReportPayload) models.ReportOutcome
}

// Options configures a Scheduler.
type Options struct {
	Identity models.Identity

	// Interval is the sleep after each cycle.
	Interval time.Duration

	// ResendStatic re-checks the tracker every cycle instead of only at startup.
	ResendStatic bool
}

// Scheduler runs the report loop.
type Scheduler struct {
	metrics   MetricSource
	inventory InventorySource
	tracker   EpochTracker
	reporter  Reporter
	opts      Options
	logger    *zap.Logger

	sendStatic bool
}

// New creates a Scheduler. The epoch freshness is read once here (startup).
func New(metrics MetricSource, inventory InventorySource, tracker EpochTracker, reporter Reporter, opts Options, logger *zap.Logger) *Scheduler {
	s := &Scheduler{
		metrics:   metrics,
		inventory: inventory,
		tracker:   tracker,
		reporter:  reporter,
		opts:      opts,
		logger:    logger,
	}
	s.sendStatic = tracker.IsEpochFresh()
	logger.Info("Epoch state determined", zap.Bool("send_static", s.sendStatic))
	return s
}

// Start runs cycles until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		s.RunCycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.opts.Interval):
		}
	}
}

// RunCycle performs one sample-assemble-send iteration and returns the
// payload that was sent together with its outcome. When ctx is cancelled
// during the cycle both return values are zero and no outcome is logged.
func (s *Scheduler) RunCycle(ctx context.Context) (models.ReportPayload, models.ReportOutcome) {
	if s.opts.ResendStatic && !s.sendStatic {
		s.sendStatic = s.tracker.IsEpochFresh()
	}

	dynamic := s.metrics.Dynamic(ctx)
	network := s.metrics.Network(ctx)

	if ctx.Err() != nil {
		s.logger.Info("Shutdown requested, report skipped")
		return models.ReportPayload{}, models.ReportOutcome{}
	}

	var static *models.StaticInventory
	if s.sendStatic {
		inv := s.inventory.Collect(ctx)
		static = &inv
		if err := s.tracker.MarkEpochSent(); err != nil {
			// The inventory is still sent; a later restart may send it again.
			s.logger.Warn("Failed to record static inventory as sent", zap.Error(err))
		}
		s.sendStatic = false
		s.logger.Info("Attaching static info to this report")
	}

	payload := assemblePayload(s.opts.Identity, dynamic, network, static)
	outcome := s.reporter.Send(ctx, payload)
	if ctx.Err() != nil {
		s.logger.Info("Shutdown requested, report interrupted")
		return models.ReportPayload{}, models.ReportOutcome{}
	}

	s.logger.Debug("Payload preview", zap.String("payload", preview(payload)))
	if outcome.StatusCode == http.StatusOK {
		s.logger.Info("Reported successfully")
	} else {
		s.logger.Error("Failed to report",
			zap.Int("status", outcome.StatusCode),
			zap.String("response", outcome.Body))
	}

	return payload, outcome
}
