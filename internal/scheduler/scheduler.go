// Package scheduler owns the background loops of the service: the fixed
// interval dispatch tick and the cron-driven retention sweep.
//
// A Scheduler is an explicit value with Start/Stop; there is no package-level
// state. Ticks run on a single goroutine, so a slow tick delays the next one
// instead of overlapping it, and ticks missed meanwhile are dropped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultRetentionSpec runs the retention sweep daily at midnight.
const DefaultRetentionSpec = "0 0 * * *"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type Scheduler struct {
	interval time.Duration
	tickFn   func(context.Context)

	retentionSpec string
	retentionFn   func(context.Context)
	loc           *time.Location
	logger        zerolog.Logger

	running  atomic.Bool
	ticks    atomic.Int64
	lastTick atomic.Int64 // unix nanos

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	cron   *cron.Cron
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRetention registers fn on the cron spec (five fields or a descriptor
// such as "@daily"). An empty spec selects DefaultRetentionSpec.
func WithRetention(spec string, fn func(context.Context)) Option {
	return func(s *Scheduler) {
		if spec == "" {
			spec = DefaultRetentionSpec
		}
		s.retentionSpec = spec
		s.retentionFn = fn
	}
}

// WithLocation sets the time zone cron specs are evaluated in (default UTC).
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func New(interval time.Duration, tickFn func(context.Context), opts ...Option) (*Scheduler, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if tickFn == nil {
		return nil, errors.New("tickFn must not be nil")
	}
	s := &Scheduler{
		interval: interval,
		tickFn:   tickFn,
		loc:      time.UTC,
		logger:   log.With().Str("component", "scheduler").Logger(),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.retentionFn != nil {
		if _, err := parser.Parse(s.retentionSpec); err != nil {
			return nil, fmt.Errorf("retention spec %q: %w", s.retentionSpec, err)
		}
	}
	return s, nil
}

// Start launches the loops. The first tick runs immediately. It reports false
// when the scheduler is already running.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	if s.retentionFn != nil {
		cl := cronLogger{s.logger}
		s.cron = cron.New(
			cron.WithParser(parser),
			cron.WithLocation(s.loc),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
			cron.WithLogger(cl),
		)
		fn := s.retentionFn
		// Parsed in New, cannot fail here.
		_, _ = s.cron.AddFunc(s.retentionSpec, func() { fn(ctx) })
		s.cron.Start()
	}

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")

		s.safeTick(ctx)

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("scheduler stopping")
				return
			case <-ticker.C:
				s.safeTick(ctx)
			}
		}
	}()

	return true
}

// Stop cancels the running tick, waits for both loops to exit and reports
// false when the scheduler was not running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return false
	}

	s.cancel()
	<-s.done
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}
	s.running.Store(false)

	s.logger.Info().Msg("scheduler stopped")
	return true
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running       bool       `json:"running"`
	Interval      string     `json:"interval"`
	Ticks         int64      `json:"ticks"`
	LastTick      *time.Time `json:"last_tick,omitempty"`
	RetentionSpec string     `json:"retention_spec,omitempty"`
	NextRetention *time.Time `json:"next_retention,omitempty"`
}

func (s *Scheduler) Status() Status {
	st := Status{
		Running:  s.running.Load(),
		Interval: s.interval.String(),
		Ticks:    s.ticks.Load(),
	}
	if ns := s.lastTick.Load(); ns > 0 {
		t := time.Unix(0, ns).UTC()
		st.LastTick = &t
	}
	if s.retentionFn != nil {
		st.RetentionSpec = s.retentionSpec
		s.mu.Lock()
		if s.cron != nil {
			if es := s.cron.Entries(); len(es) > 0 && !es[0].Next.IsZero() {
				next := es[0].Next.UTC()
				st.NextRetention = &next
			}
		}
		s.mu.Unlock()
	}
	return st
}

func (s *Scheduler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("scheduler tick panic recovered")
		}
	}()

	start := time.Now()
	s.lastTick.Store(start.UnixNano())
	s.ticks.Add(1)
	s.tickFn(ctx)
	s.logger.Debug().Int64("duration_ms", time.Since(start).Milliseconds()).Msg("scheduler tick completed")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug().Fields(kv).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error().Err(err).Fields(kv).Msg("cron: " + msg)
}
