package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"filevault/internal/config"
	"filevault/internal/tasks"
)

type Scheduler struct {
	cron     *cron.Cron
	queue    redis.Cmdable
	stream   string
	schedule string
	log      zerolog.Logger
}

func NewScheduler(queue redis.Cmdable, cfg config.JobsConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		queue:    queue,
		stream:   cfg.Stream,
		schedule: cfg.ReconcileCron,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil || s.schedule == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.enqueueReconcile); err != nil {
		return fmt.Errorf("schedule reconcile %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.log.Info().Str("reconcile", s.schedule).Msg("scheduler started")
	return nil
}

// Stop halts the cron loop and waits up to five seconds for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) enqueueReconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Enqueue(ctx, tasks.TypeReconcileUploadCounts); err != nil {
		s.log.Error().Err(err).Msg("enqueue reconcile failed")
	}
}

// Enqueue appends a task entry to the job stream.
func (s *Scheduler) Enqueue(ctx context.Context, taskType string) error {
	_, err := s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"type":        taskType,
			"enqueued_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
