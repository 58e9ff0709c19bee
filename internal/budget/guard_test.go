package budget

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateMessageFloor(t *testing.T) {
	est := EstimateMessage(Config{}, "hi")
	assert.Equal(t, 500, est.Tokens)
	assert.InDelta(t, 0.001, est.USD, 1e-9)
}

func TestEstimateMessageScalesWithLength(t *testing.T) {
	est := EstimateMessage(Config{}, strings.Repeat("a", 1000))
	assert.Equal(t, 3000, est.Tokens)
	assert.InDelta(t, 0.006, est.USD, 1e-9)
}

func TestCheckRejectsOverCap(t *testing.T) {
	// 10,000 chars -> 30,000 tokens -> $0.06 at the default rate.
	msg := strings.Repeat("x", 10000)
	est, err := Check(Config{}, msg, 0.01)

	exceeded := &ExceededError{}
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 30000, est.Tokens)
	assert.InDelta(t, 0.06, est.USD, 1e-9)
	assert.InDelta(t, 0.01, exceeded.CapUSD, 1e-9)
}

func TestCheckAcceptsUnderCap(t *testing.T) {
	est, err := Check(Config{}, "run the morning sweep", 1.0)
	require.NoError(t, err)
	assert.Equal(t, 500, est.Tokens)
}

func TestCustomRate(t *testing.T) {
	est := EstimateMessage(Config{USDPerThousandTokens: 1}, "hi")
	assert.InDelta(t, 0.5, est.USD, 1e-9)
}
