package automation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	nameMaxLen = 60
	purposeMin = 10
	purposeMax = 500

	maxCapabilities = 10
	maxTools        = 10

	maxBudgetUSD = 100
)

// namePattern pins names to Prefix_Identifier_Suffix: exactly three
// underscore-separated segments, first and last starting uppercase.
var namePattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*_[A-Za-z0-9]+_[A-Z][A-Za-z0-9]*$`)

// reservedNames are system agent handles a user spec may not claim.
var reservedNames = map[string]struct{}{
	"System_Core_Agent":      {},
	"System_Scheduler_Agent": {},
	"Platform_Admin_Agent":   {},
}

// toolWhitelist is the closed set of tools an automation may request.
var toolWhitelist = map[string]struct{}{
	"web_search":  {},
	"browser":     {},
	"email":       {},
	"calendar":    {},
	"spreadsheet": {},
	"file_io":     {},
	"code_exec":   {},
	"image_gen":   {},
	"crm":         {},
	"chat":        {},
}

// AllowedTools returns the tool whitelist in stable order.
func AllowedTools() []string {
	out := make([]string, 0, len(toolWhitelist))
	for t := range toolWhitelist {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ValidationError carries the complete defect list for a rejected spec.
type ValidationError struct {
	Defects []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid automation spec: %s", strings.Join(e.Defects, "; "))
}

// ValidateSpec checks a spec and returns either nil (accepted) or a
// *ValidationError listing every defect. Checks run independently so the
// caller sees the full list in one round trip; nothing is partially accepted.
func ValidateSpec(s Spec) error {
	var defects []string

	name := strings.TrimSpace(s.Name)
	switch {
	case name == "":
		defects = append(defects, "name is required")
	case utf8.RuneCountInString(name) > nameMaxLen:
		defects = append(defects, fmt.Sprintf("name must be at most %d characters", nameMaxLen))
	case !namePattern.MatchString(name):
		defects = append(defects, "name must match the Prefix_Identifier_Suffix pattern (e.g. Auto_LeadGen_Bot)")
	default:
		if _, ok := reservedNames[name]; ok {
			defects = append(defects, fmt.Sprintf("name %q is reserved", name))
		}
	}

	purpose := strings.TrimSpace(s.Purpose)
	if n := utf8.RuneCountInString(purpose); n < purposeMin || n > purposeMax {
		defects = append(defects, fmt.Sprintf("purpose must be %d-%d characters", purposeMin, purposeMax))
	}

	if !s.Domain.Valid() {
		valid := make([]string, 0, len(supervisors))
		for _, d := range Domains() {
			valid = append(valid, string(d))
		}
		defects = append(defects, fmt.Sprintf("domain %q is not valid (valid: %s)", s.Domain, strings.Join(valid, ", ")))
	}

	if n := len(s.Capabilities); n < 1 || n > maxCapabilities {
		defects = append(defects, fmt.Sprintf("capabilities must have 1-%d entries", maxCapabilities))
	}

	if n := len(s.Tools); n < 1 || n > maxTools {
		defects = append(defects, fmt.Sprintf("tools must have 1-%d entries", maxTools))
	} else {
		var unknown []string
		for _, t := range s.Tools {
			if _, ok := toolWhitelist[t]; !ok {
				unknown = append(unknown, t)
			}
		}
		if len(unknown) > 0 {
			defects = append(defects, fmt.Sprintf("unknown tools: %s (allowed: %s)",
				strings.Join(unknown, ", "), strings.Join(AllowedTools(), ", ")))
		}
	}

	if s.BudgetCapUSD <= 0 || s.BudgetCapUSD > maxBudgetUSD {
		defects = append(defects, fmt.Sprintf("budget cap must be > 0 and <= %d USD", maxBudgetUSD))
	}

	if s.Schedule != nil {
		if strings.TrimSpace(s.Schedule.Cron) == "" {
			defects = append(defects, "schedule cron expression is required")
		}
		if strings.TrimSpace(s.Schedule.Task) == "" {
			defects = append(defects, "schedule task description is required")
		}
	}

	if !s.Autonomy.Valid() {
		defects = append(defects, fmt.Sprintf("autonomy level %q is not valid (valid: %s, %s, %s)",
			s.Autonomy, AutonomyManual, AutonomySemi, AutonomyFull))
	}

	if len(defects) > 0 {
		return &ValidationError{Defects: defects}
	}
	return nil
}
