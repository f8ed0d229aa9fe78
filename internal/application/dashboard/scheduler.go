package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bluetrust-backend/internal/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Job is one scheduled refresh.
type Job func(ctx context.Context) error

// Scheduler runs a refresh job on a cron spec ("@every 5m", "*/5 * * * *").
type Scheduler struct {
	cron    *cron.Cron
	job     Job
	timeout time.Duration
	mu      sync.Mutex
	running bool
}

// NewScheduler registers job under spec. A bad spec is an error.
func NewScheduler(spec string, timeout time.Duration, job Job) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		job:     job,
		timeout: timeout,
	}
	if _, err := s.cron.AddFunc(spec, s.Run); err != nil {
		return nil, fmt.Errorf("dashboard: invalid refresh spec %q: %w", spec, err)
	}
	return s, nil
}

// Run executes the job once under the scheduler's timeout.
func (s *Scheduler) Run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	err := s.job(ctx)
	metrics.RecordStatsRefresh(time.Since(start), err == nil)
	if err != nil {
		log.Error().Err(err).Msg("dashboard: scheduled refresh failed")
		return
	}
	log.Debug().Dur("took", time.Since(start)).Msg("dashboard: stats refreshed")
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	log.Info().Msg("dashboard: starting stats scheduler")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	<-s.cron.Stop().Done()
	log.Info().Msg("dashboard: stats scheduler stopped")
}
