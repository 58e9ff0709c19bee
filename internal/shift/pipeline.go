// Package shift implements the run pipeline: squad assembly, batched step
// execution, the verification gate and receipt sealing. One run instance is
// a session ("shift"); its worker pool is a squad.
package shift

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"shiftd/internal/eventbus"
	logx "shiftd/pkg/logx"
)

var ErrNoExecutor = errors.New("step executor is required")

// Pipeline drives directives through assembly, execution, verification and
// sealing. Step execution is delegated to the injected Executor; the
// pipeline itself never retries a step.
type Pipeline struct {
	exec Executor
	log  logx.Logger
	bus  eventbus.Bus
}

func NewPipeline(exec Executor, log logx.Logger, bus eventbus.Bus) *Pipeline {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Pipeline{exec: exec, log: log, bus: bus}
}

// Report is the sealed outcome of one session.
type Report struct {
	Session      *Session     `json:"session"`
	Verification Verification `json:"verification"`
	Receipt      Receipt      `json:"receipt"`
}

// Run executes a directive end to end. A directive with no steps flows
// through as a no-op: zero batches, a completed receipt. The only error
// paths are a missing executor and context cancellation.
func (p *Pipeline) Run(ctx context.Context, d Directive) (*Report, error) {
	if p.exec == nil {
		return nil, ErrNoExecutor
	}

	sq := AssembleSquad(d)
	sq.ID = uuid.NewString()
	sess := &Session{
		ID:        uuid.NewString(),
		Phase:     PhaseExecution,
		Directive: d,
		SpawnedAt: time.Now(),
		Squad:     sq,
		Assigned:  AssignSteps(sq, d.Steps),
	}

	p.log.Info("shift started",
		logx.String("session", sess.ID),
		logx.String("office", d.Office),
		logx.Int("steps", len(sess.Assigned)),
		logx.Int("squad", sq.Size()),
		logx.Int("batches", EstimatedBatches(len(sess.Assigned), sq.Size())),
	)

	if err := p.executeBatches(ctx, sess); err != nil {
		return nil, err
	}

	sess.Phase = PhaseCloseout
	v := Verify(sess)
	r := Seal(sess, v)

	p.log.Info("shift sealed",
		logx.String("session", sess.ID),
		logx.String("receipt", r.ID),
		logx.String("status", string(r.Status)),
		logx.Bool("verified", v.Passed),
		logx.Duration("modeled_duration", sess.Totals.Duration),
	)
	if p.bus != nil {
		p.bus.Publish(eventbus.Event{Type: "shift.sealed", Data: r})
	}

	return &Report{Session: sess, Verification: v, Receipt: r}, nil
}
