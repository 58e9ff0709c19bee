package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMatcher(t *testing.T, expr, tz string) *Matcher {
	t.Helper()
	m, err := NewMatcher(expr, tz)
	require.NoError(t, err)
	return m
}

func at(hour, min, sec int) time.Time {
	return time.Date(2026, 8, 15, hour, min, sec, 0, time.UTC)
}

func TestMatcherMatchesWholeMinute(t *testing.T) {
	m := mustMatcher(t, "0 * * * *", "")

	assert.True(t, m.MatchesInstant(at(14, 0, 0)))
	assert.True(t, m.MatchesInstant(at(14, 0, 59)))
	assert.False(t, m.MatchesInstant(at(14, 1, 0)))
	assert.False(t, m.MatchesInstant(at(13, 59, 59)))
}

func TestMatcherStepExpression(t *testing.T) {
	m := mustMatcher(t, "*/15 * * * *", "")

	want := map[int]bool{0: true, 15: true, 30: true, 45: true}
	for min := 0; min < 60; min++ {
		assert.Equal(t, want[min], m.MatchesInstant(at(9, min, 30)), "minute %d", min)
	}
}

func TestMatcherRangeExpression(t *testing.T) {
	m := mustMatcher(t, "1-5 * * * *", "")

	for min := 0; min < 60; min++ {
		want := min >= 1 && min <= 5
		assert.Equal(t, want, m.MatchesInstant(at(22, min, 0)), "minute %d", min)
	}
}

func TestMatcherHonorsTimezone(t *testing.T) {
	// 09:00 in New York is 13:00 UTC in August (EDT).
	m := mustMatcher(t, "0 9 * * *", "America/New_York")

	assert.True(t, m.MatchesInstant(at(13, 0, 0)))
	assert.False(t, m.MatchesInstant(at(9, 0, 0)))
}

func TestMatcherNextAndFiresBetween(t *testing.T) {
	m := mustMatcher(t, "0 * * * *", "")

	from := at(14, 10, 0)
	assert.Equal(t, at(15, 0, 0), m.Next(from))
	assert.True(t, m.FiresBetween(from, at(15, 0, 0)))
	assert.False(t, m.FiresBetween(from, at(14, 59, 0)))
}

func TestValidateRejectsBadInput(t *testing.T) {
	assert.Error(t, Validate("", ""))
	assert.Error(t, Validate("not a cron", ""))
	assert.Error(t, Validate("0 * * * * *", "")) // 6-field specs are not accepted
	assert.Error(t, Validate("0 * * * *", "Mars/Olympus"))

	assert.NoError(t, Validate("30 8 * * 1-5", "Europe/Berlin"))
	assert.NoError(t, Validate("@hourly", ""))
}
