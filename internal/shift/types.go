package shift

import (
	"context"
	"time"
)

// Directive is the external input to a run: ordered execution steps, the
// crew specialties required to carry them, and routing metadata for the
// audit trail. The engine treats it as read-only.
type Directive struct {
	Director    string   `json:"director"`
	Office      string   `json:"office"`
	Lane        string   `json:"lane"`
	Specialties []string `json:"specialties"`
	Steps       []string `json:"steps"`
}

type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Worker is one squad member drawn from a designation pool.
type Worker struct {
	CanonicalID string `json:"canonical_id"`
	Designation string `json:"designation"`
	Capability  string `json:"capability"`
	Tier        string `json:"tier"`
}

// Squad is the ordered worker pool bound to exactly one session.
// Size is always >= 2; squads are never reused across sessions.
type Squad struct {
	ID      string   `json:"id"`
	Members []Worker `json:"members"`
}

func (s Squad) Size() int { return len(s.Members) }

// Handles returns member canonical IDs in squad order.
func (s Squad) Handles() []string {
	out := make([]string, len(s.Members))
	for i, m := range s.Members {
		out[i] = m.CanonicalID
	}
	return out
}

// AssignedStep binds one execution step to one squad member by index.
// The index is stable and drives round-robin batch partitioning.
type AssignedStep struct {
	Index       int        `json:"index"`
	Description string     `json:"description"`
	WorkerIndex int        `json:"worker_index"`
	Status      StepStatus `json:"status"`
}

type BatchVerdict string

const (
	BatchSuccess BatchVerdict = "success"
	BatchPartial BatchVerdict = "partial"
)

// StepOutcome is one step's terminal result inside a batch.
type StepOutcome struct {
	StepIndex int           `json:"step_index"`
	Worker    string        `json:"worker"`
	Status    StepStatus    `json:"status"`
	Summary   string        `json:"summary,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// BatchOutcome is one batch's ordered per-step log plus aggregate verdict.
// The sequence across a session is append-only.
type BatchOutcome struct {
	Index   int           `json:"index"`
	Steps   []StepOutcome `json:"steps"`
	Verdict BatchVerdict  `json:"verdict"`
}

// Totals aggregates step outcomes across all batches. Duration is summed
// across steps, not wall-clock: batches are accounted sequentially even when
// step execution inside a batch runs concurrently.
type Totals struct {
	Steps     int           `json:"steps"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

type Phase string

const (
	PhaseExecution Phase = "execution"
	PhaseCloseout  Phase = "closeout"
)

// Session is one run instance ("shift") from squad assembly through receipt
// sealing. Terminal once a receipt is sealed.
type Session struct {
	ID        string         `json:"id"`
	Phase     Phase          `json:"phase"`
	Directive Directive      `json:"directive"`
	SpawnedAt time.Time      `json:"spawned_at"`
	Squad     Squad          `json:"squad"`
	Assigned  []AssignedStep `json:"assigned"`
	Batches   []BatchOutcome `json:"batches"`
	Totals    Totals         `json:"totals"`
}

// StepRequest is handed to the step executor for one assigned step.
type StepRequest struct {
	SessionID string
	Step      AssignedStep
	Worker    Worker
}

// StepResult is the executor's verdict for one step. Ordinary task failure
// is Success=false, never an error; retries, if any, belong to the executor.
type StepResult struct {
	Success  bool
	Duration time.Duration
	Summary  string
}

// Executor is the external step-execution capability. Implementations may
// block; they must honor ctx cancellation.
type Executor interface {
	Execute(ctx context.Context, req StepRequest) StepResult
}

// StubExecutor acknowledges every step with a fixed modeled duration.
// It stands in until a real execution backend is attached.
type StubExecutor struct {
	Latency time.Duration
}

func (e StubExecutor) Execute(_ context.Context, req StepRequest) StepResult {
	d := e.Latency
	if d <= 0 {
		d = 250 * time.Millisecond
	}
	return StepResult{Success: true, Duration: d, Summary: "acknowledged: " + req.Step.Description}
}
