package engine

import (
	"fmt"
	"math"
	"sort"

	"amesdash/internal/errors"
)

// AndersonResult holds the A² statistic and the critical values it is
// compared against. Unlike the p-value based tests, the Anderson–Darling
// verdict comes from the reference table: the hypothesis of normality is
// retained at a given level iff the statistic is below the critical value.
type AndersonResult struct {
	Statistic float64
	// SignificanceLevels are percentages (15, 10, 5, 2.5, 1), parallel to
	// CriticalValues.
	SignificanceLevels []float64
	CriticalValues     []float64
}

// Stephens (1974) critical values for the normal case with estimated mean
// and variance, before the finite-sample adjustment.
var (
	andersonLevels   = []float64{15, 10, 5, 2.5, 1}
	andersonBaseline = []float64{0.576, 0.656, 0.787, 0.918, 1.092}
)

// AndersonDarling tests the sample against a normal distribution with
// estimated parameters and returns the A² statistic alongside the adjusted
// critical-value table.
func AndersonDarling(data []float64) (AndersonResult, error) {
	n := len(data)
	if n < 8 {
		return AndersonResult{}, errors.InsufficientData(
			fmt.Sprintf("anderson-darling needs at least 8 observations, got %d", n))
	}

	x := make([]float64, n)
	copy(x, data)
	sort.Float64s(x)

	mean := 0.0
	for _, v := range x {
		mean += v
	}
	fn := float64(n)
	mean /= fn

	variance := 0.0
	for _, v := range x {
		d := v - mean
		variance += d * d
	}
	variance /= fn - 1
	if variance == 0 {
		return AndersonResult{}, errors.AnalysisFailed("anderson-darling: all observations are identical")
	}
	sd := math.Sqrt(variance)

	sum := 0.0
	for i := 0; i < n; i++ {
		lo := normalCDF((x[i] - mean) / sd)
		hi := normalCDF((x[n-1-i] - mean) / sd)
		sum += float64(2*i+1) * (math.Log(lo) + math.Log1p(-hi))
	}
	a2 := -fn - sum/fn

	adjust := 1 + 4/fn - 25/(fn*fn)
	critical := make([]float64, len(andersonBaseline))
	for i, c := range andersonBaseline {
		critical[i] = c / adjust
	}

	return AndersonResult{
		Statistic:          a2,
		SignificanceLevels: append([]float64(nil), andersonLevels...),
		CriticalValues:     critical,
	}, nil
}

// CriticalAt returns the critical value at the given significance level
// percentage (e.g. 5 for the 5% level).
func (r AndersonResult) CriticalAt(level float64) (float64, bool) {
	for i, l := range r.SignificanceLevels {
		if l == level {
			return r.CriticalValues[i], true
		}
	}
	return 0, false
}
