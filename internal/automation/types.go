package automation

import "time"

// Domain is the business area an automation operates in. The set is closed;
// the assigned supervisor is derived from it.
type Domain string

const (
	DomainResearch    Domain = "research"
	DomainMarketing   Domain = "marketing"
	DomainOperations  Domain = "operations"
	DomainFinance     Domain = "finance"
	DomainEngineering Domain = "engineering"
	DomainSupport     Domain = "support"
)

// supervisors maps each domain to its fixed supervisor handle.
var supervisors = map[Domain]string{
	DomainResearch:    "Dir_Research_Prime",
	DomainMarketing:   "Dir_Marketing_Prime",
	DomainOperations:  "Dir_Operations_Prime",
	DomainFinance:     "Dir_Finance_Prime",
	DomainEngineering: "Dir_Engineering_Prime",
	DomainSupport:     "Dir_Support_Prime",
}

func (d Domain) Valid() bool {
	_, ok := supervisors[d]
	return ok
}

// SupervisorFor returns the supervisor handle for a domain.
// The mapping is fixed, so equal domains always yield equal supervisors.
func SupervisorFor(d Domain) string { return supervisors[d] }

// Domains returns the closed set of valid domains in stable order.
func Domains() []Domain {
	return []Domain{
		DomainResearch, DomainMarketing, DomainOperations,
		DomainFinance, DomainEngineering, DomainSupport,
	}
}

type Status string

const (
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusRetired Status = "retired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusRetired:
		return true
	}
	return false
}

type AutonomyLevel string

const (
	AutonomyManual AutonomyLevel = "manual"
	AutonomySemi   AutonomyLevel = "semi_auto"
	AutonomyFull   AutonomyLevel = "full_auto"
)

func (a AutonomyLevel) Valid() bool {
	switch a {
	case AutonomyManual, AutonomySemi, AutonomyFull:
		return true
	}
	return false
}

// ScheduleSpec describes a recurring trigger for an automation.
type ScheduleSpec struct {
	Cron     string `json:"cron"`
	Task     string `json:"task"`
	Timezone string `json:"timezone,omitempty"`
	Notify   bool   `json:"notify,omitempty"`
}

// Spec is the immutable user intent behind an automation. Updates supersede
// a spec; they never mutate it in place.
type Spec struct {
	Name         string        `json:"name"`
	Purpose      string        `json:"purpose"`
	Domain       Domain        `json:"domain"`
	Capabilities []string      `json:"capabilities"`
	Tools        []string      `json:"tools"`
	BudgetCapUSD float64       `json:"budget_cap_usd"`
	Schedule     *ScheduleSpec `json:"schedule,omitempty"`
	Autonomy     AutonomyLevel `json:"autonomy"`
}

// Stats accumulates run outcomes for one automation.
type Stats struct {
	Runs         int       `json:"runs"`
	Failures     int       `json:"failures"`
	TotalCostUSD float64   `json:"total_cost_usd"`
	LastRunAt    time.Time `json:"last_run_at,omitzero"`
}

// Record owns one accepted Spec plus lifecycle state.
type Record struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Spec       Spec      `json:"spec"`
	Supervisor string    `json:"supervisor"`
	Status     Status    `json:"status"`
	Stats      Stats     `json:"stats"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Scheduled reports whether the record should own a live trigger.
func (r Record) Scheduled() bool {
	return r.Status == StatusActive && r.Spec.Schedule != nil
}

type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

type Cost struct {
	Tokens int     `json:"tokens"`
	USD    float64 `json:"usd"`
}

type TriggerKind string

const (
	TriggerManual TriggerKind = "manual"
	TriggerCron   TriggerKind = "cron"
)

// Trigger records what caused a run.
type Trigger struct {
	Kind        TriggerKind `json:"kind"`
	Cron        string      `json:"cron,omitempty"`
	ScheduledAt time.Time   `json:"scheduled_at,omitzero"`
}

// RunRecord is one invocation of an automation. History appends are the only
// place run state persists beyond the immediate response.
type RunRecord struct {
	ExecutionID  string    `json:"execution_id"`
	AutomationID string    `json:"automation_id"`
	Status       RunStatus `json:"status"`
	Cost         Cost      `json:"cost"`
	AuditTrailID string    `json:"audit_trail_id,omitempty"`
	Trigger      Trigger   `json:"trigger"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitzero"`
	Error        string    `json:"error,omitempty"`
}
