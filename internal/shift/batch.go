package shift

import (
	"context"

	"golang.org/x/sync/errgroup"

	"shiftd/internal/eventbus"
	logx "shiftd/pkg/logx"
)

// BatchEvent is published on the bus after each batch is folded into the
// session totals.
type BatchEvent struct {
	SessionID string `json:"session_id"`
	Index     int    `json:"index"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
}

// executeBatches drives the assigned steps in ordered batches sized to the
// squad. Steps inside a batch run concurrently (assignments are pairwise
// independent across workers); batch N+1 does not start until batch N's
// outcomes are folded into the running totals, because verification depends
// on final aggregates.
func (p *Pipeline) executeBatches(ctx context.Context, sess *Session) error {
	size := sess.Squad.Size()
	if size == 0 || len(sess.Assigned) == 0 {
		return nil
	}

	for start := 0; start < len(sess.Assigned); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + size
		if end > len(sess.Assigned) {
			end = len(sess.Assigned)
		}
		batch := sess.Assigned[start:end]
		outcomes := make([]StepOutcome, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for bi := range batch {
			bi := bi
			step := batch[bi]
			worker := sess.Squad.Members[step.WorkerIndex]
			g.Go(func() error {
				res := p.exec.Execute(gctx, StepRequest{SessionID: sess.ID, Step: step, Worker: worker})
				status := StepCompleted
				if !res.Success {
					status = StepFailed
				}
				outcomes[bi] = StepOutcome{
					StepIndex: step.Index,
					Worker:    worker.CanonicalID,
					Status:    status,
					Summary:   res.Summary,
					Duration:  res.Duration,
				}
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		// Fold the batch into the session before the next one may begin.
		out := BatchOutcome{Index: len(sess.Batches), Steps: outcomes, Verdict: BatchSuccess}
		for i, o := range outcomes {
			batch[i].Status = o.Status
			sess.Totals.Steps++
			sess.Totals.Duration += o.Duration
			if o.Status == StepCompleted {
				sess.Totals.Completed++
			} else {
				sess.Totals.Failed++
				out.Verdict = BatchPartial
			}
		}
		sess.Batches = append(sess.Batches, out)

		p.log.Debug("batch folded",
			logx.String("session", sess.ID),
			logx.Int("batch", out.Index),
			logx.Int("completed", sess.Totals.Completed),
			logx.Int("failed", sess.Totals.Failed),
		)
		if p.bus != nil {
			failed := 0
			for _, o := range outcomes {
				if o.Status == StepFailed {
					failed++
				}
			}
			p.bus.Publish(eventbus.Event{Type: "shift.batch", Data: BatchEvent{
				SessionID: sess.ID,
				Index:     out.Index,
				Completed: len(outcomes) - failed,
				Failed:    failed,
			}})
		}
	}
	return nil
}
