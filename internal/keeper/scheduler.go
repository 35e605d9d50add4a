// Package keeper runs periodic maintenance transactions against the ledger.
package keeper

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of scheduled work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules. Overlapping runs of the same job
// are skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	entries map[string]cron.EntryID
}

// NewScheduler creates a scheduler
func NewScheduler(logger *zap.Logger) *Scheduler {
	cl := cronLogger{logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]cron.EntryID),
	}
}

// Schedule registers job under a cron spec such as "@every 1m"
func (s *Scheduler) Schedule(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[job.Name()]; ok {
		return fmt.Errorf("job %s already scheduled", job.Name())
	}

	id, err := s.cron.AddFunc(spec, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, job.Name(), err)
	}
	s.entries[job.Name()] = id

	s.logger.Info("Job scheduled", zap.String("job", job.Name()), zap.String("schedule", spec))
	return nil
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.running = true

	s.logger.Info("Starting keeper scheduler", zap.Int("jobs", len(s.entries)))
	s.cron.Start()
	return nil
}

// Stop cancels in-flight jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.logger.Info("Stopping keeper scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.running = false
}

func (s *Scheduler) run(job Job) {
	if err := job.Run(s.ctx); err != nil {
		s.logger.Error("Job failed", zap.String("job", job.Name()), zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
