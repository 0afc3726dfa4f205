package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/metrics"
)

const (
	defaultInterval   = 24 * time.Hour
	defaultJobTimeout = 30 * time.Minute
)

type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.CronJobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service is the maintenance loop. Each pass runs the registered jobs in
// order, and only the replica holding Lock does any work.
type Service struct {
	logg       *logger.Logger
	jobs       *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("cron: logger required")
	case params.Lock == nil:
		return nil, errors.New("cron: lock required")
	}
	s := &Service{
		logg:       params.Logger,
		jobs:       params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if s.jobs == nil {
		s.jobs = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}
	return s, nil
}

// Run makes a pass straight away, then one per interval, until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"interval": s.interval.String(),
		"jobs":     len(s.jobs.Jobs()),
	}), "maintenance worker started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.runCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "maintenance pass aborted", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runCycle returns an error only when the pass could not start or was
// cancelled. Individual job failures are logged and counted.
func (s *Service) runCycle(ctx context.Context) error {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire maintenance lock: %w", err)
	}
	if !acquired {
		s.logg.Info(ctx, "another replica holds the maintenance lock")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "release maintenance lock", err)
		}
	}()

	failed := 0
	for _, job := range s.jobs.Jobs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.runJob(ctx, job) {
			failed++
		}
	}
	s.logg.Info(s.logg.WithField(ctx, "failed_jobs", failed), "maintenance pass finished")
	return nil
}

func (s *Service) runJob(parent context.Context, job Job) bool {
	name := job.Name()
	ctx, cancel := context.WithTimeout(parent, s.jobTimeout)
	defer cancel()

	started := time.Now()
	affected, err := job.Run(ctx)
	took := time.Since(started)
	s.metrics.ObserveDuration(name, took)

	logCtx := s.logg.WithFields(parent, map[string]any{
		"job":           name,
		"duration_ms":   took.Milliseconds(),
		"rows_affected": affected,
	})
	if err != nil {
		s.metrics.IncFailure(name)
		s.logg.Error(logCtx, "maintenance job failed", err)
		return false
	}
	s.metrics.IncSuccess(name)
	s.metrics.AddAffected(name, affected)
	s.logg.Info(logCtx, "maintenance job done")
	return true
}
