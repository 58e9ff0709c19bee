// Package schedule turns cron expressions on automation records into run
// triggers. Each scheduled automation owns one polling goroutine; matching is
// done per minute window, so the poll interval never changes which minutes
// fire, only how promptly.
package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"shiftd/internal/automation"
	"shiftd/internal/eventbus"
	"shiftd/internal/runtime/supervisor"
	"shiftd/internal/store"
	logx "shiftd/pkg/logx"
)

const defaultTick = 60 * time.Second

// Clock abstracts wall time so scheduling is testable without sleeping.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// Runner executes one scheduled run. Implemented by the core service.
type Runner interface {
	RunScheduled(ctx context.Context, automationID string, firedAt time.Time) error
}

// Source is the slice of the store the scheduler reads.
type Source interface {
	Get(ctx context.Context, id string) (automation.Record, error)
	ListScheduled(ctx context.Context) ([]automation.Record, error)
}

type Config struct {
	Tick time.Duration
}

type entry struct {
	cron   string
	tz     string
	cancel context.CancelFunc
}

type Service struct {
	cfg    Config
	log    logx.Logger
	bus    eventbus.Bus
	clock  Clock
	runner Runner
	src    Source

	mu      sync.Mutex
	sup     *supervisor.Supervisor
	entries map[string]*entry
}

func New(cfg Config, src Source, runner Runner, clock Clock, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if clock == nil {
		clock = RealClock()
	}
	if cfg.Tick <= 0 {
		cfg.Tick = defaultTick
	}
	return &Service{
		cfg:     cfg,
		log:     log,
		bus:     bus,
		clock:   clock,
		runner:  runner,
		src:     src,
		entries: map[string]*entry{},
	}
}

// Start spins up triggers for every scheduled record currently in the store.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.sup != nil {
		s.mu.Unlock()
		return nil
	}
	s.sup = supervisor.New(ctx, supervisor.WithLogger(s.log))
	s.mu.Unlock()

	recs, err := s.src.ListScheduled(ctx)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := s.Register(rec); err != nil {
			s.log.Warn("skipping unschedulable record",
				logx.String("automation_id", rec.ID), logx.Err(err))
		}
	}
	s.log.Info("scheduler started", logx.Int("schedules", len(recs)), logx.Duration("tick", s.cfg.Tick))
	return nil
}

// Register starts (or refreshes) the trigger for a scheduled record. It is
// idempotent: re-registering an unchanged schedule keeps the existing trigger
// so no minute can fire twice.
func (s *Service) Register(rec automation.Record) error {
	if !rec.Scheduled() {
		return errors.New("record is not scheduled")
	}
	sched := rec.Spec.Schedule
	m, err := NewMatcher(sched.Cron, sched.Timezone)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sup == nil {
		return errors.New("scheduler not started")
	}
	if old, ok := s.entries[rec.ID]; ok {
		if old.cron == sched.Cron && old.tz == sched.Timezone {
			return nil
		}
		old.cancel()
	}

	ctx, cancel := context.WithCancel(s.sup.Context())
	e := &entry{cron: sched.Cron, tz: sched.Timezone, cancel: cancel}
	s.entries[rec.ID] = e
	id := rec.ID
	s.sup.Go0("schedule:"+id, func(context.Context) {
		s.loop(ctx, id, e, m)
	})
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: "schedule.registered", Data: id})
	}
	return nil
}

// Unregister stops the trigger for an automation, if one exists.
func (s *Service) Unregister(automationID string) {
	s.drop(automationID, nil)
}

// drop removes the registration for automationID. A non-nil e restricts the
// removal to that exact entry: a trigger loop retiring itself must not tear
// down a replacement registered after the loop decided to exit.
func (s *Service) drop(automationID string, e *entry) bool {
	s.mu.Lock()
	cur, ok := s.entries[automationID]
	if ok && e != nil && cur != e {
		ok = false
	}
	if ok {
		delete(s.entries, automationID)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	cur.cancel()
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: "schedule.unregistered", Data: automationID})
	}
	return true
}

// Active returns the number of live triggers.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop cancels all triggers and waits for their goroutines to drain.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	sup := s.sup
	s.sup = nil
	s.entries = map[string]*entry{}
	s.mu.Unlock()
	if sup == nil {
		return
	}
	sup.Cancel()
	if err := sup.Wait(ctx); err != nil {
		s.log.Warn("scheduler stop timed out", logx.Err(err))
	}
	s.log.Info("scheduler stopped")
}

func (s *Service) loop(ctx context.Context, id string, e *entry, m *Matcher) {
	tick := s.clock.NewTicker(s.cfg.Tick)
	defer tick.Stop()

	var lastFired time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C():
		}
		// A tick and a cancel can arrive together; cancel wins.
		if ctx.Err() != nil {
			return
		}
		now := s.clock.Now()
		minute := now.Truncate(time.Minute)
		if !m.MatchesInstant(now) || minute.Equal(lastFired) {
			continue
		}
		lastFired = minute

		// Re-read the record at fire time. Schedules race with pauses and
		// deletes; the record's current state wins.
		rec, err := s.src.Get(ctx, id)
		if err != nil || !rec.Scheduled() {
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				s.log.Warn("schedule read failed", logx.String("automation_id", id), logx.Err(err))
				continue
			}
			s.log.Info("schedule retired", logx.String("automation_id", id))
			s.drop(id, e)
			return
		}

		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Type: "schedule.fired", Data: id})
		}
		if err := s.runner.RunScheduled(ctx, id, minute); err != nil {
			s.log.Warn("scheduled run failed",
				logx.String("automation_id", id), logx.Err(err))
		}
	}
}
