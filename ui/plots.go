package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"math"
	"sort"
	"strings"

	"amesdash/domain/anova"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	chartWidth   = "100%"
	chartHeight  = "380px"
	histogramBin = 30
	// Boxplot levels are ordered by median only in this range; very high
	// cardinality keeps insertion order to avoid pointless sorting.
	orderByMedianMin = 5
	orderByMedianMax = 50
	// qqMaxPoints caps the rendered quantile pairs so huge samples do not
	// bloat the page.
	qqMaxPoints = 1000
)

// ResidualPlots renders the two normality diagnostics for the sample's
// model residuals: a histogram with a normal-density overlay and a
// quantile-quantile plot.
func ResidualPlots(sample *anova.Sample) (hist, qq template.HTML, err error) {
	residuals := residualsOf(sample)
	if len(residuals) < 2 {
		return "", "", fmt.Errorf("too few residuals to plot (%d)", len(residuals))
	}

	hist, err = residualHistogram(residuals)
	if err != nil {
		return "", "", err
	}
	qq, err = residualQQPlot(residuals)
	if err != nil {
		return "", "", err
	}
	return hist, qq, nil
}

// residualsOf recomputes the one-way model residuals (value minus per-level
// mean) from the cleaned sample.
func residualsOf(sample *anova.Sample) []float64 {
	levels, groups := sample.Groups()
	means := make(map[anova.FactorLevel]float64, len(levels))
	for i, g := range groups {
		mean, meanErr := mstats.Mean(g)
		if meanErr != nil {
			continue
		}
		means[levels[i]] = mean
	}

	residuals := make([]float64, len(sample.Values))
	for i, v := range sample.Values {
		residuals[i] = v - means[sample.Factors[i]]
	}
	return residuals
}

func residualHistogram(residuals []float64) (template.HTML, error) {
	minV, _ := mstats.Min(residuals)
	maxV, _ := mstats.Max(residuals)
	mean, _ := mstats.Mean(residuals)
	sd, _ := mstats.StandardDeviationSample(residuals)

	width := (maxV - minV) / float64(histogramBin)
	if width <= 0 {
		return "", fmt.Errorf("degenerate residual range")
	}

	counts := make([]int, histogramBin)
	for _, r := range residuals {
		bin := int((r - minV) / width)
		if bin >= histogramBin {
			bin = histogramBin - 1
		}
		counts[bin]++
	}

	n := float64(len(residuals))
	labels := make([]string, histogramBin)
	barData := make([]opts.BarData, histogramBin)
	lineData := make([]opts.LineData, histogramBin)
	for i := 0; i < histogramBin; i++ {
		center := minV + (float64(i)+0.5)*width
		labels[i] = fmt.Sprintf("%.0f", center)
		barData[i] = opts.BarData{Value: float64(counts[i]) / (n * width)}
		lineData[i] = opts.LineData{Value: normalDensity(center, mean, sd)}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Residual Histogram"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Density"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("density", barData)

	overlay := charts.NewLine()
	overlay.SetXAxis(labels).AddSeries("normal density", lineData,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	bar.Overlap(overlay)

	return chartFragment(bar)
}

func residualQQPlot(residuals []float64) (template.HTML, error) {
	sorted := make([]float64, len(residuals))
	copy(sorted, residuals)
	sort.Float64s(sorted)

	mean, _ := mstats.Mean(sorted)
	sd, _ := mstats.StandardDeviationSample(sorted)

	n := len(sorted)
	step := 1
	if n > qqMaxPoints {
		step = n / qqMaxPoints
	}

	points := make([]opts.ScatterData, 0, n/step+1)
	var minQ, maxQ float64
	first := true
	for i := 0; i < n; i += step {
		q := distuv.UnitNormal.Quantile((float64(i) + 0.5) / float64(n))
		points = append(points, opts.ScatterData{
			Value:      []interface{}{q, sorted[i]},
			SymbolSize: 5,
		})
		if first || q < minQ {
			minQ = q
		}
		if first || q > maxQ {
			maxQ = q
		}
		first = false
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Residual Q-Q Plot"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Theoretical Quantiles", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Sample Quantiles", Type: "value"}),
	)
	scatter.SetXAxis(nil).AddSeries("residuals", points)

	// Standardized reference line: y = mean + sd * x.
	refLine := charts.NewLine()
	refLine.SetXAxis(nil).AddSeries("reference", []opts.LineData{
		{Value: []interface{}{minQ, mean + sd*minQ}},
		{Value: []interface{}{maxQ, mean + sd*maxQ}},
	}, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	scatter.Overlap(refLine)

	return chartFragment(scatter)
}

// PriceBoxplot renders the response distribution per factor level. Levels
// are ordered by median when their count is moderate, else kept in
// insertion order.
func PriceBoxplot(sample *anova.Sample) (template.HTML, error) {
	levels, groups := orderedGroups(sample)
	if len(levels) == 0 {
		return "", fmt.Errorf("no factor levels to plot")
	}

	labels := make([]string, len(levels))
	boxes := make([]opts.BoxPlotData, len(levels))
	for i, g := range groups {
		labels[i] = string(levels[i])
		boxes[i] = opts.BoxPlotData{Value: fiveNumberSummary(g)}
	}

	box := charts.NewBoxPlot()
	rotate := float64(0)
	if len(levels) > 10 {
		rotate = 45
	}
	box.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s by %s", sample.Response, sample.Variable),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      sample.Variable,
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Rotate: rotate},
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: sample.Response}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	box.SetXAxis(labels).AddSeries(sample.Response, boxes)

	return chartFragment(box)
}

// orderedGroups returns the sample's levels and groups, sorted ascending by
// group median iff the level count lies in (orderByMedianMin,
// orderByMedianMax).
func orderedGroups(sample *anova.Sample) ([]anova.FactorLevel, [][]float64) {
	levels, groups := sample.Groups()
	if len(levels) <= orderByMedianMin || len(levels) >= orderByMedianMax {
		return levels, groups
	}

	type entry struct {
		level  anova.FactorLevel
		group  []float64
		median float64
	}
	entries := make([]entry, len(levels))
	for i := range levels {
		med, err := mstats.Median(groups[i])
		if err != nil {
			med = math.Inf(1)
		}
		entries[i] = entry{level: levels[i], group: groups[i], median: med}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].median < entries[j].median })

	outLevels := make([]anova.FactorLevel, len(entries))
	outGroups := make([][]float64, len(entries))
	for i, e := range entries {
		outLevels[i] = e.level
		outGroups[i] = e.group
	}
	return outLevels, outGroups
}

// fiveNumberSummary is [min, Q1, median, Q3, max], the order echarts
// boxplots expect.
func fiveNumberSummary(group []float64) []float64 {
	minV, _ := mstats.Min(group)
	maxV, _ := mstats.Max(group)
	med, _ := mstats.Median(group)
	q, err := mstats.Quartile(group)
	if err != nil {
		return []float64{minV, minV, med, maxV, maxV}
	}
	return []float64{minV, q.Q1, med, q.Q3, maxV}
}

func normalDensity(x, mean, sd float64) float64 {
	if sd <= 0 {
		return 0
	}
	z := (x - mean) / sd
	return math.Exp(-0.5*z*z) / (sd * math.Sqrt(2*math.Pi))
}

type renderable interface {
	Render(w io.Writer) error
}

// chartFragment renders a chart and extracts the embeddable div + script,
// dropping the full-page wrapper echarts emits.
func chartFragment(chart renderable) (template.HTML, error) {
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		return "", fmt.Errorf("rendering chart: %w", err)
	}
	return template.HTML(extractChartContent(buf.String())), nil
}

func extractChartContent(html string) string {
	trimmed := strings.TrimSpace(html)
	if !strings.HasPrefix(trimmed, "<!DOCTYPE") && !strings.HasPrefix(trimmed, "<html") {
		return html
	}

	start := strings.Index(html, `<div class="container">`)
	end := strings.Index(html, `</body>`)
	if start == -1 || end == -1 {
		return html
	}

	content := html[start:end]
	content = strings.ReplaceAll(content, `class="container"`, `class="echart-box"`)
	return removeStyleTags(content)
}

func removeStyleTags(content string) string {
	for {
		i := strings.Index(content, `<style>`)
		if i == -1 {
			return content
		}
		j := strings.Index(content[i:], `</style>`)
		if j == -1 {
			return content
		}
		content = content[:i] + content[i+j+len(`</style>`):]
	}
}
