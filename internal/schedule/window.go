package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Matcher answers "does this cron expression fire at instant t" at minute
// granularity, independent of how often the caller polls. Two ticks landing
// inside the same matching minute both report a match; deduplication is the
// caller's job.
type Matcher struct {
	expr  string
	sched cron.Schedule
}

// NewMatcher parses a standard 5-field cron expression. A non-empty timezone
// pins evaluation to that location; otherwise the expression is evaluated in
// the process-local zone.
func NewMatcher(expr, timezone string) (*Matcher, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("cron expression is empty")
	}
	spec := expr
	if tz := strings.TrimSpace(timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("timezone %q: %w", tz, err)
		}
		spec = "CRON_TZ=" + tz + " " + expr
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("cron expression %q: %w", expr, err)
	}
	return &Matcher{expr: expr, sched: sched}, nil
}

// Validate reports whether expr (with optional timezone) is a well-formed
// schedule without building a matcher the caller keeps.
func Validate(expr, timezone string) error {
	_, err := NewMatcher(expr, timezone)
	return err
}

func (m *Matcher) Expr() string { return m.expr }

// MatchesInstant reports whether the minute containing t is a firing minute.
// Any t inside a matching minute matches, including t with nonzero seconds.
func (m *Matcher) MatchesInstant(t time.Time) bool {
	minute := t.Truncate(time.Minute)
	return m.sched.Next(minute.Add(-time.Second)).Equal(minute)
}

// Next returns the first firing instant strictly after t.
func (m *Matcher) Next(t time.Time) time.Time {
	return m.sched.Next(t)
}

// FiresBetween reports whether any firing minute starts in (from, until].
func (m *Matcher) FiresBetween(from, until time.Time) bool {
	next := m.sched.Next(from)
	return !next.IsZero() && !next.After(until)
}
