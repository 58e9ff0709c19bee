package shift

const (
	// minSquadSize is the floor for batching; a run with zero or one worker
	// is invalid, so assembly pads with generalists up to this size.
	minSquadSize = 2

	defaultSpecialty = "generalist"
)

type poolEntry struct {
	id         string
	capability string
	tier       string
}

// designationPools are the fixed per-specialty worker rosters. Assembly
// cycles through a pool in assignment order when a directive asks for more
// workers of a specialty than the pool holds.
var designationPools = map[string][]poolEntry{
	"research": {
		{"research-01", "deep_search", "senior"},
		{"research-02", "synthesis", "standard"},
		{"research-03", "fact_check", "standard"},
	},
	"analysis": {
		{"analysis-01", "modeling", "senior"},
		{"analysis-02", "reporting", "standard"},
	},
	"writing": {
		{"writing-01", "drafting", "senior"},
		{"writing-02", "editing", "standard"},
		{"writing-03", "copy_polish", "junior"},
	},
	"outreach": {
		{"outreach-01", "messaging", "standard"},
		{"outreach-02", "follow_up", "junior"},
	},
	"engineering": {
		{"engineering-01", "build", "senior"},
		{"engineering-02", "integrate", "standard"},
		{"engineering-03", "review", "senior"},
	},
	"qa": {
		{"qa-01", "verification", "standard"},
		{"qa-02", "regression", "junior"},
	},
	defaultSpecialty: {
		{"generalist-01", "general_ops", "standard"},
		{"generalist-02", "general_ops", "standard"},
		{"generalist-03", "general_ops", "junior"},
	},
}

// AssembleSquad allocates workers for the directive's requested specialties,
// cycling each specialty's pool in assignment order and padding with
// generalists up to the minimum squad size. Assembly is deterministic and
// never fails; the squad ID is assigned by the session, not here.
func AssembleSquad(d Directive) Squad {
	members := make([]Worker, 0, len(d.Specialties))
	drawn := map[string]int{}

	for _, sp := range d.Specialties {
		pool, ok := designationPools[sp]
		if !ok {
			pool = designationPools[defaultSpecialty]
		}
		e := pool[drawn[sp]%len(pool)]
		drawn[sp]++
		members = append(members, Worker{
			CanonicalID: e.id,
			Designation: sp,
			Capability:  e.capability,
			Tier:        e.tier,
		})
	}

	pad := designationPools[defaultSpecialty]
	for i := 0; len(members) < minSquadSize; i++ {
		e := pad[i%len(pad)]
		members = append(members, Worker{
			CanonicalID: e.id,
			Designation: defaultSpecialty,
			Capability:  e.capability,
			Tier:        e.tier,
		})
	}

	return Squad{Members: members}
}

// AssignSteps binds each step to a squad member round-robin by step index
// modulo squad size, giving even load for any squad size and step count.
func AssignSteps(sq Squad, steps []string) []AssignedStep {
	if sq.Size() == 0 {
		return nil
	}
	out := make([]AssignedStep, 0, len(steps))
	for i, desc := range steps {
		out = append(out, AssignedStep{
			Index:       i,
			Description: desc,
			WorkerIndex: i % sq.Size(),
			Status:      StepPending,
		})
	}
	return out
}

// EstimatedBatches is advisory sizing for the batch executor: ceil(steps/size).
func EstimatedBatches(stepCount, squadSize int) int {
	if stepCount <= 0 || squadSize <= 0 {
		return 0
	}
	return (stepCount + squadSize - 1) / squadSize
}
