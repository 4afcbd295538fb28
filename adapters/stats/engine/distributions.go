package engine

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// Thin wrappers over gonum's distributions so the test implementations in
// this package share one place for CDF/quantile plumbing.

// fTestPValue computes the upper-tail p-value of the F distribution
// (ANOVA, Levene).
func fTestPValue(fStatistic float64, df1, df2 int) float64 {
	if df1 <= 0 || df2 <= 0 {
		return 1.0
	}
	fDist := distuv.F{D1: float64(df1), D2: float64(df2)}
	return 1 - fDist.CDF(fStatistic)
}

// chiSquarePValue computes the upper-tail p-value of the chi-squared
// distribution (Kruskal–Wallis approximation).
func chiSquarePValue(chiSquare float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 {
		return 1.0
	}
	chiDist := distuv.ChiSquared{K: float64(degreesOfFreedom)}
	return 1 - chiDist.CDF(chiSquare)
}

// normalCDF computes the standard normal CDF.
func normalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// normalQuantile computes the standard normal quantile (inverse CDF).
func normalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}
