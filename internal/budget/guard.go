// Package budget implements pre-dispatch cost estimation and cap enforcement.
//
// The guard runs synchronously before any worker assembly or batch execution;
// a rejected run never reaches the pipeline and records zero cost.
package budget

import (
	"fmt"
)

const (
	// minTokens floors every estimate; even a one-word message costs a
	// baseline amount of model overhead.
	minTokens     = 500
	tokensPerChar = 3

	defaultUSDPerThousandTokens = 0.002
)

type Config struct {
	// USDPerThousandTokens is the fixed conversion rate.
	// Zero or negative falls back to the default rate.
	USDPerThousandTokens float64
}

func (c Config) rate() float64 {
	if c.USDPerThousandTokens <= 0 {
		return defaultUSDPerThousandTokens
	}
	return c.USDPerThousandTokens
}

// Estimate is a pre-dispatch cost projection for one run.
type Estimate struct {
	Tokens int     `json:"tokens"`
	USD    float64 `json:"usd"`
}

// ExceededError reports a run whose estimated cost is over the automation's cap.
type ExceededError struct {
	Estimate Estimate
	CapUSD   float64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: estimated $%.4f (%d tokens) over cap $%.4f",
		e.Estimate.USD, e.Estimate.Tokens, e.CapUSD)
}

// EstimateMessage projects the cost of running a message:
// max(500, 3 x message length) tokens at the configured per-token rate.
func EstimateMessage(cfg Config, message string) Estimate {
	tokens := len(message) * tokensPerChar
	if tokens < minTokens {
		tokens = minTokens
	}
	return Estimate{
		Tokens: tokens,
		USD:    float64(tokens) / 1000 * cfg.rate(),
	}
}

// Check returns the estimate and an *ExceededError when it is over capUSD.
func Check(cfg Config, message string, capUSD float64) (Estimate, error) {
	est := EstimateMessage(cfg, message)
	if est.USD > capUSD {
		return est, &ExceededError{Estimate: est, CapUSD: capUSD}
	}
	return est, nil
}
