package automation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() Spec {
	return Spec{
		Name:         "Auto_LeadGen_Bot",
		Purpose:      "Collect and qualify inbound leads every morning.",
		Domain:       DomainMarketing,
		Capabilities: []string{"lead_scan", "summarize"},
		Tools:        []string{"web_search", "email"},
		BudgetCapUSD: 5,
		Autonomy:     AutonomySemi,
	}
}

func TestValidateSpecAccepts(t *testing.T) {
	require.NoError(t, ValidateSpec(validSpec()))

	s := validSpec()
	s.Schedule = &ScheduleSpec{Cron: "0 9 * * 1-5", Task: "morning lead sweep"}
	require.NoError(t, ValidateSpec(s))
}

func TestValidateSpecName(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"", "name is required"},
		{strings.Repeat("Ab_cd_Ef", 10), "at most 60 characters"},
		{"lowercase_start_Bad", "Prefix_Identifier_Suffix"},
		{"NoUnderscores", "Prefix_Identifier_Suffix"},
		{"Too_Many_Parts_Here", "Prefix_Identifier_Suffix"},
		{"System_Core_Agent", "reserved"},
	}
	for _, tc := range cases {
		s := validSpec()
		s.Name = tc.name
		err := ValidateSpec(s)
		require.Error(t, err, "name=%q", tc.name)
		verr := &ValidationError{}
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, strings.Join(verr.Defects, "\n"), tc.want, "name=%q", tc.name)
	}
}

func TestValidateSpecCollectsAllDefects(t *testing.T) {
	s := Spec{
		Name:         "bad name",
		Purpose:      "short",
		Domain:       Domain("astrology"),
		Capabilities: nil,
		Tools:        []string{"time_machine"},
		BudgetCapUSD: 0,
		Schedule:     &ScheduleSpec{},
		Autonomy:     AutonomyLevel("yolo"),
	}
	err := ValidateSpec(s)
	verr := &ValidationError{}
	require.ErrorAs(t, err, &verr)

	// One defect per failing check, all reported together.
	joined := strings.Join(verr.Defects, "\n")
	assert.Len(t, verr.Defects, 9)
	assert.Contains(t, joined, "Prefix_Identifier_Suffix")
	assert.Contains(t, joined, "task description is required")
	assert.Contains(t, joined, "purpose must be 10-500")
	assert.Contains(t, joined, "domain")
	assert.Contains(t, joined, "capabilities")
	assert.Contains(t, joined, "unknown tools: time_machine")
	assert.Contains(t, joined, "budget cap")
	assert.Contains(t, joined, "cron expression is required")
	assert.Contains(t, joined, "autonomy level")
}

func TestValidateSpecScheduleTaskRequired(t *testing.T) {
	s := validSpec()
	s.Schedule = &ScheduleSpec{Cron: "*/5 * * * *"}
	err := ValidateSpec(s)
	verr := &ValidationError{}
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Defects, 1)
	assert.Contains(t, verr.Defects[0], "task description")
}

func TestValidateSpecToolBounds(t *testing.T) {
	s := validSpec()
	s.Tools = nil
	err := ValidateSpec(s)
	require.Error(t, err)

	s = validSpec()
	s.Tools = make([]string, 11)
	for i := range s.Tools {
		s.Tools[i] = "web_search"
	}
	require.Error(t, ValidateSpec(s))
}

func TestValidateSpecBudgetBounds(t *testing.T) {
	for _, cap := range []float64{-1, 0, 100.01, 500} {
		s := validSpec()
		s.BudgetCapUSD = cap
		assert.Error(t, ValidateSpec(s), "cap=%v", cap)
	}
	for _, cap := range []float64{0.01, 1, 100} {
		s := validSpec()
		s.BudgetCapUSD = cap
		assert.NoError(t, ValidateSpec(s), "cap=%v", cap)
	}
}

func TestSupervisorForIsDeterministic(t *testing.T) {
	for _, d := range Domains() {
		require.NotEmpty(t, SupervisorFor(d))
		assert.Equal(t, SupervisorFor(d), SupervisorFor(d))
	}
	assert.Empty(t, SupervisorFor(Domain("astrology")))
}
