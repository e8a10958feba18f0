// Package signal computes the growth-divergence score: how far the latest
// period's log-return sits from the average log-return over the preceding
// lookback window, expressed as a percentage.
package signal

import (
	"math"

	"trendwatch/internal/state"
)

// flatBaselineEpsilon guards the relative normalisation: below it the
// baseline growth is treated as flat and the absolute difference is
// reported instead, since dividing by a near-zero baseline is unstable.
const flatBaselineEpsilon = 1e-10

// Result is the outcome of evaluating one new datapoint. Score is only
// meaningful when Defined is true.
type Result struct {
	Score   float64
	Defined bool
}

// Score evaluates a new value against its chronologically ordered baseline
// history. The result is undefined when history is shorter than nPeriods or
// when any of P_t, P_{t-1}, P_{t-n} is non-positive (log of a non-positive
// value).
//
//	r_t  = ln(P_t) - ln(P_{t-1})
//	r̄_n = (ln(P_{t-1}) - ln(P_{t-n})) / n
//
// Flat baseline (|r̄_n| < 1e-10): score = (r_t - r̄_n) * 100.
// Otherwise: score = ((r_t - r̄_n) / r̄_n) * 100.
func Score(pt float64, history []state.DataPoint, nPeriods int) Result {
	if nPeriods < 1 || len(history) < nPeriods {
		return Result{}
	}

	prev := history[len(history)-1].Value
	nBack := history[len(history)-nPeriods].Value

	if pt <= 0 || prev <= 0 || nBack <= 0 {
		return Result{}
	}

	rt := math.Log(pt) - math.Log(prev)
	rBar := (math.Log(prev) - math.Log(nBack)) / float64(nPeriods)

	if math.Abs(rBar) < flatBaselineEpsilon {
		return Result{Score: (rt - rBar) * 100, Defined: true}
	}

	return Result{Score: ((rt - rBar) / rBar) * 100, Defined: true}
}

// Triggered reports whether a defined score breaches the threshold.
func Triggered(res Result, threshold float64) bool {
	return res.Defined && math.Abs(res.Score) > threshold
}
