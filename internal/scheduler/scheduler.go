package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/local-forecast/internal/forecast"
)

// Starter begins a forecast run unless one is already in progress.
type Starter interface {
	Start() (forecast.Run, bool)
}

// Scheduler periodically starts a forecast run.
type Scheduler struct {
	scheduler *gocron.Scheduler
	starter   Starter
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler. A non-positive interval disables it.
func New(starter Starter, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		starter:   starter,
		interval:  interval,
		logger:    logger.Named("scheduler"),
	}
}

// Start schedules the periodic job, running it once immediately, and starts
// the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("periodic refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.tick)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("periodic refresh scheduled", zap.Duration("interval", s.interval))
	return nil
}

func (s *Scheduler) tick() {
	run, ok := s.starter.Start()
	if !ok {
		s.logger.Debug("run in progress; tick skipped")
		return
	}
	s.logger.Debug("run started", zap.Uint64("run", run.ID), zap.String("ref", run.Ref))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
