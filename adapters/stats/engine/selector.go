package engine

import (
	"fmt"
	"log"
	"math"

	"amesdash/domain/anova"
	"amesdash/internal/errors"

	"github.com/google/uuid"
)

// Alpha is the fixed significance threshold used throughout the analysis.
// It is a design constant, not user-configurable.
const Alpha = 0.05

const (
	// minLevels and minObservations gate the analysis of a cleaned sample.
	minLevels       = 2
	minObservations = 10
	// minGroupSize is the smallest group Levene and Kruskal–Wallis accept.
	minGroupSize = 2
	// andersonLevel is the significance-level percentage the normality
	// verdict reads from the Anderson–Darling table.
	andersonLevel = 5.0
)

// Selector runs the assumption-driven test selection: fit a one-way ANOVA,
// check its assumptions, and fall back to a non-parametric test when they
// do not hold. It is stateless; a single Selector can serve any number of
// samples.
type Selector struct{}

// NewSelector creates a new test selector.
func NewSelector() *Selector {
	return &Selector{}
}

// Analyze produces a DecisionRecord for the sample, or an explicit
// INSUFFICIENT_DATA rejection when the sample has fewer than 2 distinct
// factor levels or fewer than 10 observations. Computation failures past
// the rejection gate never abort the caller's loop over variables: they are
// captured on the record's AnalysisError field instead.
func (s *Selector) Analyze(smp *anova.Sample) (rec *anova.DecisionRecord, err error) {
	if smp.LevelCount() < minLevels || smp.Len() < minObservations {
		return nil, errors.InsufficientData(fmt.Sprintf(
			"variable %q has %d levels and %d observations after cleaning (need >=%d levels, >=%d observations)",
			smp.Variable, smp.LevelCount(), smp.Len(), minLevels, minObservations))
	}

	rec = &anova.DecisionRecord{
		ID:       uuid.NewString(),
		Variable: smp.Variable,
		Response: smp.Response,
		PValue:   math.NaN(),
	}

	// Statistical routines can panic on degenerate numeric input (e.g.
	// quantile evaluation at the support boundary). Failures stay scoped to
	// this variable's record.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Selector] panic while analyzing %q: %v", smp.Variable, r)
			rec.AnalysisError = fmt.Sprintf("statistical computation failed: %v", r)
			err = nil
		}
	}()

	if fitErr := s.analyze(smp, rec); fitErr != nil {
		rec.AnalysisError = fitErr.Error()
	}
	return rec, nil
}

func (s *Selector) analyze(smp *anova.Sample, rec *anova.DecisionRecord) error {
	// Step 1: model fit and decomposition.
	table, residuals, err := FitOneWay(smp)
	if err != nil {
		return errors.Wrapf(err, "fitting %s ~ %s", smp.Response, EffectLabel(smp.Variable))
	}
	rec.Table = table
	rec.ResidualCount = len(residuals)

	if row, ok := table.EffectRow(EffectLabel(smp.Variable)); ok {
		rec.PValue = row.PValue
	}

	// Step 2: residual normality, branching on sample size.
	rec.Normality = s.checkNormality(residuals)

	// Step 3: variance homogeneity over groups that keep >=2 observations.
	_, groups := smp.Groups()
	rec.GroupCount = len(groups)
	valid := validGroups(groups)
	rec.ValidGroupCount = len(valid)

	if len(valid) >= minGroupSize {
		stat, p, levErr := Levene(valid)
		if levErr != nil {
			return errors.Wrap(levErr, "levene test")
		}
		rec.Homogeneity = anova.HomogeneityCheck{
			Performed:   true,
			Statistic:   stat,
			PValue:      p,
			Homogeneous: p >= Alpha,
		}
	}

	// Step 4: non-parametric fallback when either assumption fails.
	if (!rec.Normality.Normal || !rec.Homogeneity.Homogeneous) && len(valid) >= minGroupSize {
		stat, p, kwErr := KruskalWallis(valid)
		if kwErr != nil {
			return errors.Wrap(kwErr, "kruskal-wallis test")
		}
		rec.Kruskal = anova.KruskalResult{
			Performed: true,
			Statistic: stat,
			PValue:    p,
		}
	}

	return nil
}

// checkNormality picks the normality test by residual count: Shapiro–Wilk
// up to 5000 residuals, Anderson–Darling above, skipped (not confirmed)
// below 3.
func (s *Selector) checkNormality(residuals []float64) anova.NormalityCheck {
	n := len(residuals)
	switch {
	case n < ShapiroMinN:
		return anova.NormalityCheck{Performed: false}

	case n <= ShapiroMaxN:
		w, p, err := ShapiroWilk(residuals)
		if err != nil {
			log.Printf("[Selector] shapiro-wilk failed on %d residuals: %v", n, err)
			return anova.NormalityCheck{Performed: false}
		}
		return anova.NormalityCheck{
			Performed: true,
			Test:      anova.TestShapiroWilk,
			Statistic: w,
			PValue:    p,
			Normal:    p >= Alpha,
		}

	default:
		result, err := AndersonDarling(residuals)
		if err != nil {
			log.Printf("[Selector] anderson-darling failed on %d residuals: %v", n, err)
			return anova.NormalityCheck{Performed: false}
		}
		critical, _ := result.CriticalAt(andersonLevel)
		return anova.NormalityCheck{
			Performed:     true,
			Test:          anova.TestAndersonDarling,
			Statistic:     result.Statistic,
			PValue:        math.NaN(),
			CriticalValue: critical,
			Normal:        result.Statistic < critical,
		}
	}
}

// validGroups drops groups with fewer observations than the group-level
// tests require.
func validGroups(groups [][]float64) [][]float64 {
	valid := make([][]float64, 0, len(groups))
	for _, g := range groups {
		if len(g) >= minGroupSize {
			valid = append(valid, g)
		}
	}
	return valid
}
