package anova

import "math"

// FactorLevel is one category value of the factor variable.
type FactorLevel string

// Sample holds the cleaned (factor level, response value) pairs for one
// categorical variable. Rows with a missing factor or response have already
// been removed pairwise; Factors and Values are parallel slices.
type Sample struct {
	Variable string // factor column name
	Response string // response column name (e.g. saleprice)
	Factors  []FactorLevel
	Values   []float64
}

// Len returns the number of observations in the sample.
func (s *Sample) Len() int {
	return len(s.Values)
}

// Levels returns the distinct factor levels in first-appearance order.
func (s *Sample) Levels() []FactorLevel {
	seen := make(map[FactorLevel]bool, 8)
	levels := make([]FactorLevel, 0, 8)
	for _, f := range s.Factors {
		if !seen[f] {
			seen[f] = true
			levels = append(levels, f)
		}
	}
	return levels
}

// LevelCount returns the number of distinct factor levels.
func (s *Sample) LevelCount() int {
	return len(s.Levels())
}

// Groups partitions the response values by factor level, keyed in
// first-appearance order. The returned slices alias nothing; callers may
// sort them freely.
func (s *Sample) Groups() ([]FactorLevel, [][]float64) {
	levels := s.Levels()
	index := make(map[FactorLevel]int, len(levels))
	for i, l := range levels {
		index[l] = i
	}
	groups := make([][]float64, len(levels))
	for i, f := range s.Factors {
		gi := index[f]
		groups[gi] = append(groups[gi], s.Values[i])
	}
	return levels, groups
}

// Row is one line of an ANOVA decomposition table. The residual row carries
// no F statistic or p-value (NaN).
type Row struct {
	Label  string
	SumSq  float64
	DF     int
	F      float64
	PValue float64
}

// IsResidual reports whether this row is the residual line of the table.
func (r Row) IsResidual() bool {
	return r.Label == ResidualLabel
}

// ResidualLabel is the label of the residual row in a decomposition table.
const ResidualLabel = "Residual"

// Table is the sum-of-squares decomposition for a fitted model, one effect
// row per factor plus the residual row.
type Table struct {
	Rows []Row
}

// EffectRow looks up the effect row by label. When the expected label is not
// present (the factor can collapse to a single effective level after
// encoding) it falls back to the first non-residual row. The fallback is a
// heuristic carried over from the reference analysis; it is not guaranteed
// correct for every encoding.
func (t Table) EffectRow(label string) (Row, bool) {
	for _, r := range t.Rows {
		if r.Label == label {
			return r, true
		}
	}
	for _, r := range t.Rows {
		if !r.IsResidual() {
			return r, true
		}
	}
	return Row{}, false
}

// Normality test identifiers.
const (
	TestShapiroWilk     = "shapiro-wilk"
	TestAndersonDarling = "anderson-darling"
)

// NormalityCheck records the residual-normality verdict and which test
// produced it. When Performed is false the residual count was too small and
// normality is treated as not confirmed.
type NormalityCheck struct {
	Performed bool
	Test      string
	Statistic float64
	// PValue is NaN for the Anderson–Darling path, which compares the
	// statistic against CriticalValue instead.
	PValue        float64
	CriticalValue float64
	Normal        bool
}

// HomogeneityCheck records the Levene verdict over the valid groups. When
// Performed is false, fewer than two groups retained two observations and
// the check could not be run.
type HomogeneityCheck struct {
	Performed   bool
	Statistic   float64
	PValue      float64
	Homogeneous bool
}

// KruskalResult holds the Kruskal–Wallis rank-sum result. It tests equality
// of medians, a deliberately weaker claim than ANOVA's equality of means,
// and is surfaced alongside the ANOVA result rather than replacing it.
type KruskalResult struct {
	Performed bool
	Statistic float64
	PValue    float64
}

// DecisionRecord is the per-variable outcome of the assumption-driven test
// selection. Records are created fresh per analyzed variable and never
// shared across variables.
type DecisionRecord struct {
	ID       string
	Variable string
	Response string

	Table         Table
	PValue        float64
	ResidualCount int

	Normality   NormalityCheck
	Homogeneity HomogeneityCheck
	Kruskal     KruskalResult

	GroupCount      int
	ValidGroupCount int

	// AnalysisError is set when a statistical computation failed for this
	// variable; other fields before the failure point remain valid.
	AnalysisError string
}

// Significant reports whether the ANOVA main effect is significant at the
// fixed 0.05 threshold.
func (d *DecisionRecord) Significant() bool {
	return !math.IsNaN(d.PValue) && d.PValue < 0.05
}

// AssumptionsHold reports whether both parametric assumptions were
// confirmed.
func (d *DecisionRecord) AssumptionsHold() bool {
	return d.Normality.Normal && d.Homogeneity.Homogeneous
}
