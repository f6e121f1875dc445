// Package schedule triggers notification runs on a cron spec. The engine
// has no clock of its own; this service is the only caller of Engine.Run
// in production.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"nomwatch/pkg/logx"
)

type Config struct {
	// Spec is a five-field cron expression or a descriptor like
	// "@daily" (default "30 8 * * *").
	Spec string
	// Timezone is an IANA name, e.g. "Europe/Paris". Empty means local.
	Timezone string
}

type Service struct {
	mu sync.Mutex

	cfg    Config
	log    logx.Logger
	parser cron.Parser
	c      *cron.Cron
	job    func(ctx context.Context) error

	running bool
}

func New(cfg Config, job func(ctx context.Context) error, log logx.Logger) *Service {
	return &Service{
		cfg:    cfg,
		log:    log,
		job:    job,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	spec := strings.TrimSpace(s.cfg.Spec)
	if spec == "" {
		spec = "30 8 * * *"
	}
	loc := time.Local
	if tz := strings.TrimSpace(s.cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("schedule timezone %q: %w", tz, err)
		}
		loc = l
	}

	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))

	// skipIfRunning: a slow cycle must not overlap the next trigger; the
	// skipped cycle's records are still covered by the lookback window.
	var busy sync.Mutex
	_, err := s.c.AddFunc(spec, func() {
		if !busy.TryLock() {
			s.log.Warn("previous run still in progress; skipping trigger")
			return
		}
		defer busy.Unlock()

		started := time.Now()
		if err := s.job(ctx); err != nil {
			s.log.Error("scheduled run failed", logx.Err(err), logx.Duration("took", time.Since(started)))
			return
		}
		s.log.Info("scheduled run finished", logx.Duration("took", time.Since(started)))
	})
	if err != nil {
		return fmt.Errorf("schedule spec %q: %w", spec, err)
	}

	s.c.Start()
	s.running = true
	s.log.Info("run schedule started", logx.String("spec", spec), logx.String("tz", loc.String()))
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	stopCtx := s.c.Stop()
	<-stopCtx.Done()
	s.running = false
	s.log.Info("run schedule stopped")
}
