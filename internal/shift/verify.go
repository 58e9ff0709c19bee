package shift

import (
	"fmt"
	"time"
)

const (
	completionPassRate    = 0.80
	failureVetoRatio      = 0.20
	durationBudgetPerStep = 30 * time.Second
	utilizationFloor      = 0.50
	batchConsistencyFloor = 0.75
)

// Check is one quality check's result. All checks are always reported,
// pass or fail; this is a reporting surface, not a short-circuiting validator.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Verification holds the five independent checks plus the aggregate verdict.
// Only the completion-rate check and the critical-failure veto decide Passed;
// duration, utilization and batch consistency are advisory.
type Verification struct {
	Checks []Check `json:"checks"`
	Passed bool    `json:"passed"`
}

// Check returns the named check, or a zero Check when absent.
func (v Verification) Check(name string) Check {
	for _, c := range v.Checks {
		if c.Name == name {
			return c
		}
	}
	return Check{}
}

// Verify computes the quality checks purely from session aggregates.
// A zero-step session counts as fully complete (no-op run).
func Verify(sess *Session) Verification {
	t := sess.Totals
	total := t.Steps

	completionRate := 1.0
	failureRatio := 0.0
	if total > 0 {
		completionRate = float64(t.Completed) / float64(total)
		failureRatio = float64(t.Failed) / float64(total)
	}

	completion := Check{
		Name:   "completion_rate",
		Passed: completionRate >= completionPassRate,
		Detail: fmt.Sprintf("%.0f%% complete (%d/%d steps)", completionRate*100, t.Completed, total),
	}

	veto := failureRatio > failureVetoRatio
	critical := Check{
		Name:   "critical_failures",
		Passed: t.Failed == 0,
		Detail: fmt.Sprintf("%d failed steps (%.0f%% of total)", t.Failed, failureRatio*100),
	}

	budget := time.Duration(total) * durationBudgetPerStep
	duration := Check{
		Name:   "duration_budget",
		Passed: t.Duration <= budget,
		Detail: fmt.Sprintf("%s spent of %s budget", t.Duration, budget),
	}

	utilizationRate := 1.0
	if size, batches := sess.Squad.Size(), len(sess.Batches); size > 0 && batches > 0 {
		utilizationRate = float64(total) / float64(size*batches)
	}
	utilization := Check{
		Name:   "worker_utilization",
		Passed: utilizationRate >= utilizationFloor,
		Detail: fmt.Sprintf("%.0f%% of squad slots carried a step", utilizationRate*100),
	}

	meanBatchSuccess := 1.0
	if len(sess.Batches) > 0 {
		sum := 0.0
		for _, b := range sess.Batches {
			if len(b.Steps) == 0 {
				continue
			}
			ok := 0
			for _, s := range b.Steps {
				if s.Status == StepCompleted {
					ok++
				}
			}
			sum += float64(ok) / float64(len(b.Steps))
		}
		meanBatchSuccess = sum / float64(len(sess.Batches))
	}
	consistency := Check{
		Name:   "batch_consistency",
		Passed: meanBatchSuccess >= batchConsistencyFloor,
		Detail: fmt.Sprintf("mean per-batch success %.0f%% across %d batches", meanBatchSuccess*100, len(sess.Batches)),
	}

	return Verification{
		Checks: []Check{completion, critical, duration, utilization, consistency},
		Passed: completion.Passed && !veto,
	}
}
