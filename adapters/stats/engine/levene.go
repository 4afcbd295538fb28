package engine

import (
	"fmt"
	"sort"

	"amesdash/internal/errors"
)

// Levene tests equality of variances across groups using median-centered
// absolute deviations (the Brown–Forsythe variant, the conventional
// default). Every group must contain at least 2 observations; callers are
// expected to have filtered smaller groups out beforehand.
func Levene(groups [][]float64) (statistic, pValue float64, err error) {
	k := len(groups)
	if k < 2 {
		return 0, 0, errors.InsufficientData(
			fmt.Sprintf("levene needs at least 2 groups, got %d", k))
	}

	total := 0
	for i, g := range groups {
		if len(g) < 2 {
			return 0, 0, errors.InsufficientData(
				fmt.Sprintf("levene group %d has fewer than 2 observations", i))
		}
		total += len(g)
	}

	// Absolute deviations from each group's median.
	z := make([][]float64, k)
	groupMeans := make([]float64, k)
	grandMean := 0.0
	for i, g := range groups {
		med := median(g)
		zi := make([]float64, len(g))
		sum := 0.0
		for j, v := range g {
			d := v - med
			if d < 0 {
				d = -d
			}
			zi[j] = d
			sum += d
		}
		z[i] = zi
		groupMeans[i] = sum / float64(len(g))
		grandMean += sum
	}
	grandMean /= float64(total)

	between := 0.0
	within := 0.0
	for i, zi := range z {
		d := groupMeans[i] - grandMean
		between += float64(len(zi)) * d * d
		for _, v := range zi {
			e := v - groupMeans[i]
			within += e * e
		}
	}

	if within == 0 {
		return 0, 0, errors.AnalysisFailed("levene: zero within-group deviation")
	}

	df1 := k - 1
	df2 := total - k
	statistic = (float64(df2) / float64(df1)) * (between / within)
	pValue = fTestPValue(statistic, df1, df2)
	return statistic, pValue, nil
}

func median(data []float64) float64 {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
