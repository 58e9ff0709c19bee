package core

import (
	"shiftd/internal/automation"
	"shiftd/internal/shift"
)

// domainSpecialties maps each business domain to the worker specialties a
// run in that domain draws on. Every run also leans on the generalist pool
// through squad padding, so short lists are fine.
var domainSpecialties = map[automation.Domain][]string{
	automation.DomainResearch:    {"research", "analysis"},
	automation.DomainMarketing:   {"research", "writing"},
	automation.DomainOperations:  {"generalist", "qa"},
	automation.DomainFinance:     {"analysis", "generalist"},
	automation.DomainEngineering: {"engineering", "qa"},
	automation.DomainSupport:     {"outreach", "generalist"},
}

// buildDirective translates an accepted record into the pipeline's input.
// Steps come from the caller when given; otherwise each declared capability
// becomes one step.
func buildDirective(rec automation.Record, steps []string) shift.Directive {
	if len(steps) == 0 {
		steps = append([]string(nil), rec.Spec.Capabilities...)
	}
	return shift.Directive{
		Director:    rec.Supervisor,
		Office:      string(rec.Spec.Domain),
		Lane:        string(rec.Spec.Autonomy),
		Specialties: domainSpecialties[rec.Spec.Domain],
		Steps:       steps,
	}
}
