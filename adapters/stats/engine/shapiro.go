package engine

import (
	"fmt"
	"math"
	"sort"

	"amesdash/internal/errors"
)

// Shapiro–Wilk sample-size limits. Below the minimum the W statistic is
// undefined; above the maximum the p-value approximation degrades and the
// Anderson–Darling test is used instead.
const (
	ShapiroMinN = 3
	ShapiroMaxN = 5000
)

// ShapiroWilk tests the sample against normality and returns the W statistic
// and its p-value, following Royston's AS R94 approximation.
func ShapiroWilk(data []float64) (w, p float64, err error) {
	n := len(data)
	if n < ShapiroMinN {
		return 0, 0, errors.InsufficientData(
			fmt.Sprintf("shapiro-wilk needs at least %d observations, got %d", ShapiroMinN, n))
	}
	if n > ShapiroMaxN {
		return 0, 0, errors.AnalysisFailed(
			fmt.Sprintf("shapiro-wilk is unreliable above %d observations (got %d)", ShapiroMaxN, n))
	}

	x := make([]float64, n)
	copy(x, data)
	sort.Float64s(x)

	if x[n-1]-x[0] == 0 {
		return 0, 0, errors.AnalysisFailed("shapiro-wilk: all observations are identical")
	}

	a := shapiroWeights(n)

	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)

	num := 0.0
	den := 0.0
	for i, v := range x {
		num += a[i] * v
		d := v - mean
		den += d * d
	}
	w = num * num / den
	if w > 1 {
		w = 1
	}

	p = shapiroPValue(w, n)
	return w, p, nil
}

// shapiroWeights computes the coefficient vector a of the W statistic from
// the expected normal order statistics.
func shapiroWeights(n int) []float64 {
	a := make([]float64, n)
	if n == 3 {
		a[0] = -math.Sqrt(0.5)
		a[2] = math.Sqrt(0.5)
		return a
	}

	fn := float64(n)
	m := make([]float64, n)
	mm := 0.0
	for i := 0; i < n; i++ {
		m[i] = normalQuantile((float64(i+1) - 0.375) / (fn + 0.25))
		mm += m[i] * m[i]
	}

	rsn := 1 / math.Sqrt(fn)
	c := func(i int) float64 { return m[i] / math.Sqrt(mm) }

	aN := poly(rsn, c(n-1), 0.221157, -0.147981, -2.071190, 4.434685, -2.706056)
	a[n-1] = aN
	a[0] = -aN

	firstFree := 1
	phi := (mm - 2*m[n-1]*m[n-1]) / (1 - 2*aN*aN)
	if n > 5 {
		aN1 := poly(rsn, c(n-2), 0.042981, -0.293762, -1.752461, 5.682633, -3.582633)
		a[n-2] = aN1
		a[1] = -aN1
		firstFree = 2
		phi = (mm - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) / (1 - 2*aN*aN - 2*aN1*aN1)
	}

	sqrtPhi := math.Sqrt(phi)
	for i := firstFree; i < n-firstFree; i++ {
		a[i] = m[i] / sqrtPhi
	}
	return a
}

// poly evaluates c0 + k1*u + k2*u^2 + ... for the Royston blending
// polynomials.
func poly(u, c0 float64, ks ...float64) float64 {
	result := c0
	power := 1.0
	for _, k := range ks {
		power *= u
		result += k * power
	}
	return result
}

// shapiroPValue maps W to a p-value using Royston's normalizing
// transformations.
func shapiroPValue(w float64, n int) float64 {
	fn := float64(n)

	if n == 3 {
		// Exact small-sample form.
		const stqr = 1.047197551196598 // asin(sqrt(3/4))
		p := (6 / math.Pi) * (math.Asin(math.Sqrt(w)) - stqr)
		return clamp01(p)
	}

	var z float64
	if n <= 11 {
		gamma := -2.273 + 0.459*fn
		wTrans := -math.Log(gamma - math.Log(1-w))
		mu := 0.5440 - 0.39978*fn + 0.025054*fn*fn - 0.0006714*fn*fn*fn
		sigma := math.Exp(1.3822 - 0.77857*fn + 0.062767*fn*fn - 0.0020322*fn*fn*fn)
		z = (wTrans - mu) / sigma
	} else {
		logN := math.Log(fn)
		wTrans := math.Log(1 - w)
		mu := -1.5861 - 0.31082*logN - 0.083751*logN*logN + 0.0038915*logN*logN*logN
		sigma := math.Exp(-0.4803 - 0.082676*logN + 0.0030302*logN*logN)
		z = (wTrans - mu) / sigma
	}

	return clamp01(1 - normalCDF(z))
}

func clamp01(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
