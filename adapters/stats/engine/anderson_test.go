package engine

import "testing"

func TestAndersonDarlingNormalSample(t *testing.T) {
	result, err := AndersonDarling(normalScores(200))
	if err != nil {
		t.Fatalf("AndersonDarling failed: %v", err)
	}

	critical, ok := result.CriticalAt(5)
	if !ok {
		t.Fatal("no 5% critical value in the table")
	}
	if result.Statistic >= critical {
		t.Errorf("A² = %v, want below the 5%% critical value %v for normal-shaped data",
			result.Statistic, critical)
	}
}

func TestAndersonDarlingSkewedSample(t *testing.T) {
	result, err := AndersonDarling(exponentialScores(200))
	if err != nil {
		t.Fatalf("AndersonDarling failed: %v", err)
	}

	critical, _ := result.CriticalAt(5)
	if result.Statistic < critical {
		t.Errorf("A² = %v, want above the 5%% critical value %v for exponential-shaped data",
			result.Statistic, critical)
	}
}

func TestAndersonDarlingCriticalTable(t *testing.T) {
	result, err := AndersonDarling(normalScores(100))
	if err != nil {
		t.Fatalf("AndersonDarling failed: %v", err)
	}

	if len(result.SignificanceLevels) != len(result.CriticalValues) {
		t.Fatal("levels and critical values are not parallel")
	}
	// Critical values rise as the level tightens.
	for i := 1; i < len(result.CriticalValues); i++ {
		if result.CriticalValues[i] <= result.CriticalValues[i-1] {
			t.Errorf("critical values not increasing: %v", result.CriticalValues)
		}
	}
	if _, ok := result.CriticalAt(7); ok {
		t.Error("CriticalAt should miss levels outside the table")
	}
}

func TestAndersonDarlingRejectsBadInput(t *testing.T) {
	if _, err := AndersonDarling(normalScores(7)); err == nil {
		t.Error("expected error for n < 8")
	}
	if _, err := AndersonDarling([]float64{3, 3, 3, 3, 3, 3, 3, 3}); err == nil {
		t.Error("expected error for identical observations")
	}
}
