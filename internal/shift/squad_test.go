package shift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleSquadDeterminism(t *testing.T) {
	d := Directive{
		Specialties: []string{"research", "writing", "research", "qa"},
		Steps:       []string{"a", "b", "c"},
	}
	first := AssembleSquad(d)
	second := AssembleSquad(d)
	assert.Equal(t, first.Members, second.Members)
	assert.Equal(t, AssignSteps(first, d.Steps), AssignSteps(second, d.Steps))
}

func TestAssembleSquadMinimumSize(t *testing.T) {
	for _, specialties := range [][]string{nil, {}, {"research"}} {
		sq := AssembleSquad(Directive{Specialties: specialties})
		assert.GreaterOrEqual(t, sq.Size(), 2, "specialties=%v", specialties)
	}
}

func TestAssembleSquadPadsWithGeneralists(t *testing.T) {
	sq := AssembleSquad(Directive{Specialties: []string{"research"}})
	require.Equal(t, 2, sq.Size())
	assert.Equal(t, "research", sq.Members[0].Designation)
	assert.Equal(t, "generalist", sq.Members[1].Designation)
}

func TestAssembleSquadCyclesPool(t *testing.T) {
	// qa pool has 2 entries; asking for 3 must wrap to the first.
	sq := AssembleSquad(Directive{Specialties: []string{"qa", "qa", "qa"}})
	require.Equal(t, 3, sq.Size())
	assert.Equal(t, sq.Members[0].CanonicalID, sq.Members[2].CanonicalID)
	assert.NotEqual(t, sq.Members[0].CanonicalID, sq.Members[1].CanonicalID)
}

func TestAssembleSquadUnknownSpecialtyFallsBack(t *testing.T) {
	sq := AssembleSquad(Directive{Specialties: []string{"alchemy", "alchemy"}})
	require.Equal(t, 2, sq.Size())
	// Designation keeps the requested specialty; the roster comes from the
	// generalist pool.
	assert.Equal(t, "alchemy", sq.Members[0].Designation)
	assert.Contains(t, sq.Members[0].CanonicalID, "generalist")
}

func TestAssignStepsRoundRobin(t *testing.T) {
	sq := AssembleSquad(Directive{Specialties: []string{"research", "writing", "qa"}})
	steps := []string{"s0", "s1", "s2", "s3", "s4", "s5", "s6"}
	assigned := AssignSteps(sq, steps)
	require.Len(t, assigned, len(steps))

	perWorker := map[int]int{}
	for i, a := range assigned {
		assert.Equal(t, i, a.Index)
		assert.Equal(t, i%sq.Size(), a.WorkerIndex)
		assert.Equal(t, StepPending, a.Status)
		perWorker[a.WorkerIndex]++
	}
	// Every worker gets floor or ceil of steps/size.
	lo, hi := len(steps)/sq.Size(), (len(steps)+sq.Size()-1)/sq.Size()
	for w := 0; w < sq.Size(); w++ {
		assert.GreaterOrEqual(t, perWorker[w], lo)
		assert.LessOrEqual(t, perWorker[w], hi)
	}
}

func TestEstimatedBatches(t *testing.T) {
	assert.Equal(t, 3, EstimatedBatches(6, 2))
	assert.Equal(t, 4, EstimatedBatches(7, 2))
	assert.Equal(t, 1, EstimatedBatches(2, 5))
	assert.Equal(t, 0, EstimatedBatches(0, 2))
	assert.Equal(t, 0, EstimatedBatches(5, 0))
}
