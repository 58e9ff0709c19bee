// Package core owns the automation lifecycle: spec intake, status changes,
// run dispatch and history. It is the only writer of automation records; the
// scheduler and transport layers go through it.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"shiftd/internal/automation"
	"shiftd/internal/budget"
	"shiftd/internal/eventbus"
	"shiftd/internal/notify"
	"shiftd/internal/schedule"
	"shiftd/internal/shift"
	"shiftd/internal/store"
	logx "shiftd/pkg/logx"
)

type Config struct {
	// MaxPerOwner caps automations per owner. Zero disables the quota.
	MaxPerOwner int
	Budget      budget.Config
}

// Scheduler is the slice of the schedule service the core drives.
type Scheduler interface {
	Register(rec automation.Record) error
	Unregister(automationID string)
}

// Notifier accepts best-effort completion messages.
type Notifier interface {
	Publish(m notify.Message) error
}

type Service struct {
	cfg   Config
	st    store.Store
	pipe  *shift.Pipeline
	sched Scheduler
	notif Notifier
	log   logx.Logger
	bus   eventbus.Bus
	now   func() time.Time

	// statsMu serializes the read-fold-write of automation stats so
	// concurrent run completions cannot lose increments.
	statsMu sync.Mutex
}

func New(cfg Config, st store.Store, pipe *shift.Pipeline, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:  cfg,
		st:   st,
		pipe: pipe,
		log:  log,
		bus:  bus,
		now:  time.Now,
	}
}

// SetScheduler wires the schedule service after construction; core and
// scheduler reference each other, so one side attaches late.
func (s *Service) SetScheduler(sched Scheduler) { s.sched = sched }

func (s *Service) SetNotifier(n Notifier) { s.notif = n }

// Create validates a spec and persists it as an active automation. On
// rejection the returned error is a *automation.ValidationError holding
// every defect; nothing is stored.
func (s *Service) Create(ctx context.Context, ownerID string, spec automation.Spec) (automation.Record, error) {
	var verr *automation.ValidationError
	if err := automation.ValidateSpec(spec); err != nil && !errors.As(err, &verr) {
		return automation.Record{}, err
	}
	if spec.Schedule != nil && spec.Schedule.Cron != "" {
		if err := schedule.Validate(spec.Schedule.Cron, spec.Schedule.Timezone); err != nil {
			if verr == nil {
				verr = &automation.ValidationError{}
			}
			verr.Defects = append(verr.Defects, fmt.Sprintf("schedule: %v", err))
		}
	}
	if verr != nil {
		return automation.Record{}, verr
	}

	now := s.now()
	rec := automation.Record{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Spec:       spec,
		Supervisor: automation.SupervisorFor(spec.Domain),
		Status:     automation.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.st.Create(ctx, rec, s.cfg.MaxPerOwner); err != nil {
		return automation.Record{}, err
	}
	s.log.Info("automation created",
		logx.String("automation_id", rec.ID),
		logx.String("owner_id", ownerID),
		logx.String("name", spec.Name),
		logx.String("supervisor", rec.Supervisor),
	)

	if rec.Scheduled() && s.sched != nil {
		if err := s.sched.Register(rec); err != nil {
			s.log.Warn("schedule registration failed",
				logx.String("automation_id", rec.ID), logx.Err(err))
		}
	}
	return rec, nil
}

// Get returns a record after an ownership check. Ownership is checked before
// anything else so callers cannot distinguish other owners' records from
// their own in any way but the error.
func (s *Service) Get(ctx context.Context, ownerID, id string) (automation.Record, error) {
	rec, err := s.st.Get(ctx, id)
	if err != nil {
		return automation.Record{}, err
	}
	if rec.OwnerID != ownerID {
		return automation.Record{}, ErrOwnerMismatch
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, ownerID string) ([]automation.Record, error) {
	return s.st.ListByOwner(ctx, ownerID)
}

// SetStatus moves an automation between active, paused and retired. Retired
// is terminal. Pausing or retiring releases the schedule trigger; activating
// a scheduled record re-registers it.
func (s *Service) SetStatus(ctx context.Context, ownerID, id string, status automation.Status) (automation.Record, error) {
	if !status.Valid() {
		return automation.Record{}, fmt.Errorf("invalid status %q", status)
	}
	rec, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return automation.Record{}, err
	}
	if rec.Status == status {
		return rec, nil
	}
	if rec.Status == automation.StatusRetired {
		return automation.Record{}, ErrRetired
	}

	rec.Status = status
	rec.UpdatedAt = s.now()
	if err := s.st.Update(ctx, rec); err != nil {
		return automation.Record{}, err
	}
	s.log.Info("automation status changed",
		logx.String("automation_id", id), logx.String("status", string(status)))

	if s.sched != nil {
		if rec.Scheduled() {
			if err := s.sched.Register(rec); err != nil {
				s.log.Warn("schedule registration failed",
					logx.String("automation_id", id), logx.Err(err))
			}
		} else {
			s.sched.Unregister(id)
		}
	}
	return rec, nil
}

// Delete removes an automation and its run history.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.st.Delete(ctx, id); err != nil {
		return err
	}
	if s.sched != nil {
		s.sched.Unregister(id)
	}
	s.log.Info("automation deleted", logx.String("automation_id", id))
	return nil
}

// History returns an automation's runs newest-first.
func (s *Service) History(ctx context.Context, ownerID, id string, limit int) ([]automation.RunRecord, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.st.History(ctx, id, limit)
}

// RunResult is the full outcome of one dispatched run.
type RunResult struct {
	Run      automation.RunRecord `json:"run"`
	Estimate budget.Estimate      `json:"estimate"`
	Report   *shift.Report        `json:"report,omitempty"`
}

// RunNow dispatches a run on behalf of the owner. message drives the cost
// estimate; steps override the capability-derived step list when non-empty.
// On budget rejection the error is a *budget.ExceededError and the returned
// result still carries the recorded zero-cost run.
func (s *Service) RunNow(ctx context.Context, ownerID, id, message string, steps []string) (*RunResult, error) {
	rec, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, rec, message, steps, automation.Trigger{Kind: automation.TriggerManual})
}

// RunScheduled dispatches one cron-triggered run. It satisfies the schedule
// package's Runner interface.
func (s *Service) RunScheduled(ctx context.Context, automationID string, firedAt time.Time) error {
	rec, err := s.st.Get(ctx, automationID)
	if err != nil {
		return err
	}
	if !rec.Scheduled() {
		return ErrInactive
	}
	sched := rec.Spec.Schedule
	_, err = s.run(ctx, rec, sched.Task, nil, automation.Trigger{
		Kind:        automation.TriggerCron,
		Cron:        sched.Cron,
		ScheduledAt: firedAt,
	})
	return err
}

func (s *Service) run(ctx context.Context, rec automation.Record, message string, steps []string, trig automation.Trigger) (*RunResult, error) {
	if rec.Status != automation.StatusActive {
		return nil, ErrInactive
	}

	started := s.now()
	run := automation.RunRecord{
		ExecutionID:  uuid.NewString(),
		AutomationID: rec.ID,
		Status:       automation.RunRunning,
		Trigger:      trig,
		StartedAt:    started,
	}

	est, err := budget.Check(s.cfg.Budget, message, rec.Spec.BudgetCapUSD)
	if err != nil {
		// Over-cap runs are recorded with zero cost so history shows the
		// rejection, then the guard error propagates.
		run.Status = automation.RunFailed
		run.Error = err.Error()
		run.FinishedAt = s.now()
		s.finishRun(ctx, rec.ID, run)
		return &RunResult{Run: run, Estimate: est}, err
	}

	s.publish("run.started", run)
	report, err := s.pipe.Run(ctx, buildDirective(rec, steps))
	if err != nil {
		run.Status = automation.RunFailed
		run.Error = err.Error()
		run.FinishedAt = s.now()
		s.finishRun(ctx, rec.ID, run)
		return &RunResult{Run: run, Estimate: est}, err
	}

	run.Status = automation.RunSuccess
	if report.Receipt.Status == shift.ReceiptFailed {
		run.Status = automation.RunFailed
		run.Error = "run failed verification: majority of steps failed"
	}
	run.Cost = automation.Cost{Tokens: est.Tokens, USD: est.USD}
	run.AuditTrailID = report.Receipt.ID
	run.FinishedAt = s.now()
	s.finishRun(ctx, rec.ID, run)
	s.notifyRun(rec, run)

	return &RunResult{Run: run, Estimate: est, Report: report}, nil
}

// finishRun appends the run record and folds it into the automation's stats.
// The record is re-read first: status changes and other runs may have landed
// while this run was in flight, and a write of the pre-dispatch snapshot
// would silently revert them. Persistence failures are logged, not returned;
// the run itself already happened.
func (s *Service) finishRun(ctx context.Context, automationID string, run automation.RunRecord) {
	if err := s.st.AppendRun(ctx, run); err != nil {
		s.log.Error("run history append failed",
			logx.String("automation_id", automationID), logx.Err(err))
	}

	s.statsMu.Lock()
	cur, err := s.st.Get(ctx, automationID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Deleted while the run was in flight; the history row is all that
		// remains of it.
	case err != nil:
		s.log.Error("stats update failed",
			logx.String("automation_id", automationID), logx.Err(err))
	default:
		cur.Stats.Runs++
		if run.Status == automation.RunFailed {
			cur.Stats.Failures++
		}
		cur.Stats.TotalCostUSD += run.Cost.USD
		cur.Stats.LastRunAt = run.StartedAt
		cur.UpdatedAt = s.now()
		if err := s.st.Update(ctx, cur); err != nil {
			s.log.Error("stats update failed",
				logx.String("automation_id", automationID), logx.Err(err))
		}
	}
	s.statsMu.Unlock()

	switch run.Status {
	case automation.RunFailed:
		s.publish("run.failed", run)
	default:
		s.publish("run.completed", run)
	}
}

func (s *Service) notifyRun(rec automation.Record, run automation.RunRecord) {
	if s.notif == nil || rec.Spec.Schedule == nil || !rec.Spec.Schedule.Notify {
		return
	}
	if run.Trigger.Kind != automation.TriggerCron {
		return
	}
	kind := "run.completed"
	text := fmt.Sprintf("%s finished: %s", rec.Spec.Name, run.Status)
	if run.Status == automation.RunFailed {
		kind = "run.failed"
	}
	if err := s.notif.Publish(notify.Message{
		AutomationID: rec.ID,
		ExecutionID:  run.ExecutionID,
		Kind:         kind,
		Text:         text,
		At:           run.FinishedAt,
	}); err != nil {
		s.log.Debug("notification not queued",
			logx.String("automation_id", rec.ID), logx.Err(err))
	}
}

func (s *Service) publish(typ string, run automation.RunRecord) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: run})
}
