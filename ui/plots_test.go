package ui

import (
	"math"
	"strings"
	"testing"

	"amesdash/domain/anova"
)

func boxSample(groups map[string][]float64, order []string) *anova.Sample {
	s := &anova.Sample{Variable: "housestyle", Response: "saleprice"}
	for _, level := range order {
		for _, v := range groups[level] {
			s.Factors = append(s.Factors, anova.FactorLevel(level))
			s.Values = append(s.Values, v)
		}
	}
	return s
}

func TestResidualsOfCenterEachGroup(t *testing.T) {
	s := boxSample(map[string][]float64{
		"a": {1, 2, 3},
		"b": {10, 20, 30},
	}, []string{"a", "b"})

	residuals := residualsOf(s)
	if len(residuals) != 6 {
		t.Fatalf("residual count = %d, want 6", len(residuals))
	}

	// Residuals within each group sum to zero.
	sumA := residuals[0] + residuals[1] + residuals[2]
	sumB := residuals[3] + residuals[4] + residuals[5]
	if math.Abs(sumA) > 1e-9 || math.Abs(sumB) > 1e-9 {
		t.Errorf("per-group residual sums = %v, %v, want 0, 0", sumA, sumB)
	}
}

func TestOrderedGroupsByMedianWindow(t *testing.T) {
	groups := map[string][]float64{}
	var order []string
	// Six levels with descending medians: the ordering rule applies.
	for i := 0; i < 6; i++ {
		name := string(rune('f' - i))
		groups[name] = []float64{float64(60 - 10*i), float64(62 - 10*i)}
		order = append(order, name)
	}

	levels, _ := orderedGroups(boxSample(groups, order))
	for i := 1; i < len(levels); i++ {
		if levels[i-1] > levels[i] {
			t.Fatalf("levels not ordered by ascending median: %v", levels)
		}
	}
}

func TestOrderedGroupsKeepsInsertionOrderOutsideWindow(t *testing.T) {
	// Three levels: below the ordering window, insertion order wins even
	// though medians are descending.
	s := boxSample(map[string][]float64{
		"c": {30, 31},
		"b": {20, 21},
		"a": {10, 11},
	}, []string{"c", "b", "a"})

	levels, _ := orderedGroups(s)
	want := []anova.FactorLevel{"c", "b", "a"}
	for i := range want {
		if levels[i] != want[i] {
			t.Fatalf("levels = %v, want insertion order %v", levels, want)
		}
	}
}

func TestFiveNumberSummaryIsMonotone(t *testing.T) {
	summary := fiveNumberSummary([]float64{5, 1, 9, 3, 7, 2, 8})
	if len(summary) != 5 {
		t.Fatalf("summary length = %d, want 5", len(summary))
	}
	for i := 1; i < 5; i++ {
		if summary[i] < summary[i-1] {
			t.Fatalf("summary not monotone: %v", summary)
		}
	}
	if summary[0] != 1 || summary[4] != 9 {
		t.Errorf("summary extremes = %v, want min 1 and max 9", summary)
	}
}

func TestPlotsProduceEmbeddableFragments(t *testing.T) {
	s := boxSample(map[string][]float64{
		"1Story": {100, 110, 120, 130, 140, 150},
		"2Story": {200, 210, 220, 230, 240, 250},
	}, []string{"1Story", "2Story"})

	hist, qq, err := ResidualPlots(s)
	if err != nil {
		t.Fatalf("ResidualPlots failed: %v", err)
	}
	box, err := PriceBoxplot(s)
	if err != nil {
		t.Fatalf("PriceBoxplot failed: %v", err)
	}

	for name, fragment := range map[string]string{
		"histogram": string(hist),
		"qq":        string(qq),
		"boxplot":   string(box),
	} {
		if strings.Contains(fragment, "<!DOCTYPE") || strings.Contains(fragment, "<html") {
			t.Errorf("%s fragment still carries the page wrapper", name)
		}
		if !strings.Contains(fragment, "<script") {
			t.Errorf("%s fragment has no init script", name)
		}
	}
}

func TestExtractChartContentPassthrough(t *testing.T) {
	fragment := `<div id="x"></div><script>1</script>`
	if got := extractChartContent(fragment); got != fragment {
		t.Errorf("non-page input must pass through unchanged, got %q", got)
	}
}

func TestInterpretationHTML(t *testing.T) {
	rendered := string(interpretationHTML())
	if !strings.Contains(rendered, "<h2") {
		t.Error("narrative should render markdown headings")
	}
	if strings.Contains(rendered, "##") {
		t.Error("raw markdown leaked into the rendered narrative")
	}
}
