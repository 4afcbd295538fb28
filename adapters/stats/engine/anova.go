package engine

import (
	"fmt"
	"math"

	"amesdash/domain/anova"
	"amesdash/internal/errors"
)

// FitOneWay fits response ~ C(factor) as a one-way analysis-of-variance
// linear model and returns the sum-of-squares decomposition together with
// the model residuals (observed value minus the fitted per-group mean).
//
// With a single categorical factor the Type II decomposition coincides with
// the sequential one: the factor's sum of squares is the between-group sum
// and the residual sum is the within-group sum.
func FitOneWay(s *anova.Sample) (anova.Table, []float64, error) {
	levels, groups := s.Groups()
	k := len(levels)
	n := s.Len()

	if k < 2 {
		return anova.Table{}, nil, errors.InsufficientData(
			fmt.Sprintf("one-way fit needs at least 2 factor levels, got %d", k))
	}
	if n <= k {
		return anova.Table{}, nil, errors.InsufficientData(
			fmt.Sprintf("one-way fit needs more observations (%d) than levels (%d)", n, k))
	}

	grand := 0.0
	for _, v := range s.Values {
		grand += v
	}
	grand /= float64(n)

	groupMean := make(map[anova.FactorLevel]float64, k)
	ssBetween := 0.0
	for i, g := range groups {
		sum := 0.0
		for _, v := range g {
			sum += v
		}
		mean := sum / float64(len(g))
		groupMean[levels[i]] = mean
		diff := mean - grand
		ssBetween += float64(len(g)) * diff * diff
	}

	residuals := make([]float64, n)
	ssWithin := 0.0
	for i, v := range s.Values {
		r := v - groupMean[s.Factors[i]]
		residuals[i] = r
		ssWithin += r * r
	}

	dfBetween := k - 1
	dfWithin := n - k

	meanSqWithin := ssWithin / float64(dfWithin)
	fStat := math.Inf(1)
	pValue := 0.0
	if meanSqWithin > 0 {
		fStat = (ssBetween / float64(dfBetween)) / meanSqWithin
		pValue = fTestPValue(fStat, dfBetween, dfWithin)
	}

	table := anova.Table{
		Rows: []anova.Row{
			{
				Label:  EffectLabel(s.Variable),
				SumSq:  ssBetween,
				DF:     dfBetween,
				F:      fStat,
				PValue: pValue,
			},
			{
				Label:  anova.ResidualLabel,
				SumSq:  ssWithin,
				DF:     dfWithin,
				F:      math.NaN(),
				PValue: math.NaN(),
			},
		},
	}

	return table, residuals, nil
}

// EffectLabel is the decomposition-table label of a categorical factor.
func EffectLabel(variable string) string {
	return fmt.Sprintf("C(%s)", variable)
}
