package engine

import (
	"fmt"
	"sort"

	"amesdash/internal/errors"
)

// KruskalWallis runs the rank-sum test for equality of medians across the
// groups, with the usual tie correction and the chi-squared approximation
// for the p-value.
func KruskalWallis(groups [][]float64) (statistic, pValue float64, err error) {
	k := len(groups)
	if k < 2 {
		return 0, 0, errors.InsufficientData(
			fmt.Sprintf("kruskal-wallis needs at least 2 groups, got %d", k))
	}

	total := 0
	for _, g := range groups {
		total += len(g)
	}
	if total < k+1 {
		return 0, 0, errors.InsufficientData("kruskal-wallis: too few observations")
	}

	ranks, tieCorrection := rankPooled(groups, total)
	if tieCorrection == 0 {
		return 0, 0, errors.AnalysisFailed("kruskal-wallis: all observations are identical")
	}

	fn := float64(total)
	h := 0.0
	offset := 0
	for _, g := range groups {
		sum := 0.0
		for j := range g {
			sum += ranks[offset+j]
		}
		offset += len(g)
		h += sum * sum / float64(len(g))
	}
	h = 12/(fn*(fn+1))*h - 3*(fn+1)
	h /= tieCorrection

	statistic = h
	pValue = chiSquarePValue(h, k-1)
	return statistic, pValue, nil
}

// rankPooled assigns midranks over the pooled observations (average rank for
// ties) and returns them in group-concatenation order together with the tie
// correction factor 1 - sum(t^3 - t)/(n^3 - n).
func rankPooled(groups [][]float64, total int) ([]float64, float64) {
	type obs struct {
		value float64
		pos   int
	}
	pooled := make([]obs, 0, total)
	pos := 0
	for _, g := range groups {
		for _, v := range g {
			pooled = append(pooled, obs{value: v, pos: pos})
			pos++
		}
	}
	sort.Slice(pooled, func(i, j int) bool { return pooled[i].value < pooled[j].value })

	ranks := make([]float64, total)
	tieSum := 0.0
	i := 0
	for i < total {
		j := i
		for j < total && pooled[j].value == pooled[i].value {
			j++
		}
		// Ranks are 1-based; tied observations share the average rank.
		avg := float64(i+j+1) / 2
		for m := i; m < j; m++ {
			ranks[pooled[m].pos] = avg
		}
		t := float64(j - i)
		tieSum += t*t*t - t
		i = j
	}

	fn := float64(total)
	correction := 1 - tieSum/(fn*fn*fn-fn)
	return ranks, correction
}
