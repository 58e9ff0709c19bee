package shift

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "shiftd/pkg/logx"
)

// fakeExecutor fails the step indices listed in failAt and records the order
// in which steps were handed over.
type fakeExecutor struct {
	mu       sync.Mutex
	failAt   map[int]bool
	duration time.Duration
	seen     []int
}

func (f *fakeExecutor) Execute(_ context.Context, req StepRequest) StepResult {
	f.mu.Lock()
	f.seen = append(f.seen, req.Step.Index)
	f.mu.Unlock()
	d := f.duration
	if d <= 0 {
		d = time.Second
	}
	return StepResult{Success: !f.failAt[req.Step.Index], Duration: d, Summary: req.Step.Description}
}

func directive6x2() Directive {
	return Directive{
		Director:    "Dir_Marketing_Prime",
		Office:      "marketing",
		Lane:        "semi_auto",
		Specialties: []string{"research", "writing"},
		Steps:       []string{"s0", "s1", "s2", "s3", "s4", "s5"},
	}
}

func TestPipelineEndToEndSuccess(t *testing.T) {
	exec := &fakeExecutor{}
	p := NewPipeline(exec, logx.Nop(), nil)

	report, err := p.Run(context.Background(), directive6x2())
	require.NoError(t, err)

	sess := report.Session
	assert.Equal(t, 2, sess.Squad.Size())
	assert.Len(t, sess.Batches, 3)
	assert.Equal(t, PhaseCloseout, sess.Phase)
	assert.Equal(t, Totals{Steps: 6, Completed: 6, Failed: 0, Duration: 6 * time.Second}, sess.Totals)

	assert.True(t, report.Verification.Passed)
	assert.Equal(t, ReceiptCompleted, report.Receipt.Status)
	for _, b := range sess.Batches {
		assert.Equal(t, BatchSuccess, b.Verdict)
		assert.Len(t, b.Steps, 2)
	}
	for _, a := range sess.Assigned {
		assert.Equal(t, StepCompleted, a.Status)
	}
}

func TestPipelineEndToEndFailure(t *testing.T) {
	// 4 of 6 steps fail: 66% failure ratio vetoes verification and crosses
	// the majority-failed receipt threshold.
	exec := &fakeExecutor{failAt: map[int]bool{0: true, 1: true, 2: true, 3: true}}
	p := NewPipeline(exec, logx.Nop(), nil)

	report, err := p.Run(context.Background(), directive6x2())
	require.NoError(t, err)

	assert.Equal(t, Totals{Steps: 6, Completed: 2, Failed: 4, Duration: 6 * time.Second}, report.Session.Totals)
	assert.False(t, report.Verification.Passed)
	assert.Equal(t, ReceiptFailed, report.Receipt.Status)
}

func TestPipelineBatchesAreSerialized(t *testing.T) {
	exec := &fakeExecutor{}
	p := NewPipeline(exec, logx.Nop(), nil)

	report, err := p.Run(context.Background(), directive6x2())
	require.NoError(t, err)
	require.Len(t, exec.seen, 6)

	// Steps within a batch may run in any order, but batch boundaries hold:
	// indexes {0,1} before {2,3} before {4,5}.
	for pos, idx := range exec.seen {
		assert.Equal(t, pos/2, idx/2, "step %d executed in batch slot %d", idx, pos)
	}
	assert.Len(t, report.Session.Batches, 3)
}

func TestPipelineNoSteps(t *testing.T) {
	p := NewPipeline(&fakeExecutor{}, logx.Nop(), nil)
	report, err := p.Run(context.Background(), Directive{Specialties: []string{"qa"}})
	require.NoError(t, err)
	assert.Equal(t, Totals{}, report.Session.Totals)
	assert.Empty(t, report.Session.Batches)
	assert.True(t, report.Verification.Passed)
	assert.Equal(t, ReceiptCompleted, report.Receipt.Status)
}

func TestPipelineRequiresExecutor(t *testing.T) {
	p := NewPipeline(nil, logx.Nop(), nil)
	_, err := p.Run(context.Background(), directive6x2())
	assert.ErrorIs(t, err, ErrNoExecutor)
}

func TestPipelineHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPipeline(&fakeExecutor{}, logx.Nop(), nil)
	_, err := p.Run(ctx, directive6x2())
	assert.ErrorIs(t, err, context.Canceled)
}
