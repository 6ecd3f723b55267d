package models

import (
	"testing"
	"time"
)

func TestNewAnalysisState_IdentityOnly(t *testing.T) {
	s := NewAnalysisState("Acme Cloud", "300001", "2025-Q2", "computer", "A")

	if s.RunID == "" {
		t.Error("expected non-empty RunID")
	}
	if s.Statements != nil {
		t.Error("statements should be absent until fetched")
	}
	if len(s.Indicators) != 0 || len(s.ContextByFacet) != 0 || len(s.AnalysisTexts) != 0 {
		t.Error("expected empty result maps at creation")
	}
	if s.QualityScore != nil {
		t.Error("quality score should be absent until first check")
	}
}

func TestAnalysisState_SetIndicatorFirstWriteWins(t *testing.T) {
	s := NewAnalysisState("Acme", "300001", "2025-Q2", "computer", "A")

	v1 := 13.81
	v2 := 99.0
	s.SetIndicator(&Indicator{Name: "revenue_growth", Tier: TierCore, Value: &v1, Status: IndicatorOK})
	s.SetIndicator(&Indicator{Name: "revenue_growth", Tier: TierCore, Value: &v2, Status: IndicatorOK})

	got := s.Indicators["revenue_growth"]
	if got == nil || got.Value == nil || *got.Value != 13.81 {
		t.Fatalf("expected first indicator write to win, got %+v", got)
	}
}

func TestAnalysisState_ErrorLogAppendOnly(t *testing.T) {
	s := NewAnalysisState("Acme", "300001", "2025-Q2", "computer", "A")

	s.RecordError("retrieve_context", ErrKindRetrieval, "vector store unreachable")
	s.RecordError("compute_indicators", ErrKindCalculation, "non-numeric input")

	if len(s.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(s.Errors))
	}
	if s.Errors[0].Kind != ErrKindRetrieval || s.Errors[1].Kind != ErrKindCalculation {
		t.Error("error log order must match append order")
	}
}

func TestAnalysisState_BestReportRetained(t *testing.T) {
	s := NewAnalysisState("Acme", "300001", "2025-Q2", "computer", "A")

	s.Report = "first attempt"
	s.SetQualityScore(55)

	s.Report = "worse retry"
	s.SetQualityScore(40)

	if s.BestScore != 55 {
		t.Errorf("BestScore = %d, want 55", s.BestScore)
	}
	if s.BestReport != "first attempt" {
		t.Errorf("BestReport = %q, want the higher-scoring attempt", s.BestReport)
	}

	s.Report = "good retry"
	s.SetQualityScore(80)

	if s.BestScore != 80 || s.BestReport != "good retry" {
		t.Errorf("best tracking did not advance: score=%d report=%q", s.BestScore, s.BestReport)
	}
}

func TestAnalysisState_IndicatorsByTier(t *testing.T) {
	s := NewAnalysisState("Acme", "300001", "2025-Q2", "computer", "A")
	v := 1.0
	s.SetIndicator(&Indicator{Name: "a", Tier: TierCore, Value: &v, Status: IndicatorOK})
	s.SetIndicator(&Indicator{Name: "b", Tier: TierAuxiliary, Value: &v, Status: IndicatorOK})
	s.SetIndicator(&Indicator{Name: "c", Tier: TierCore, Value: &v, Status: IndicatorOK})

	if got := len(s.IndicatorsByTier(TierCore)); got != 2 {
		t.Errorf("core tier count = %d, want 2", got)
	}
	if got := len(s.IndicatorsByTier(TierSpecific)); got != 0 {
		t.Errorf("specific tier count = %d, want 0", got)
	}
}

func TestAnalysisState_ProcessingTime(t *testing.T) {
	s := NewAnalysisState("Acme", "300001", "2025-Q2", "computer", "A")
	s.StartedAt = time.Now().Add(-2 * time.Second)
	if s.ProcessingTime() < 2*time.Second {
		t.Error("expected at least 2s of processing time")
	}
}

func TestValue_MissingField(t *testing.T) {
	m := map[string]float64{"revenue": 100.5}
	if v := Value(m, "revenue"); v == nil || *v != 100.5 {
		t.Errorf("Value(revenue) = %v, want 100.5", v)
	}
	if v := Value(m, "cost"); v != nil {
		t.Errorf("Value(cost) = %v, want nil", v)
	}
	if v := Value(nil, "revenue"); v != nil {
		t.Errorf("Value(nil map) = %v, want nil", v)
	}
}
