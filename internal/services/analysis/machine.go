// Package analysis orchestrates the report pipeline as an explicit state machine
package analysis

import "github.com/bobmcallan/finsight/internal/models"

// Stage is one state of the pipeline machine.
type Stage int

const (
	StageFetchData Stage = iota
	StageComputeIndicators
	StageRetrieveContext
	StageAnalyzeCore
	StageAnalyzeAuxiliary
	StageAnalyzeSpecific
	StageGenerateReport
	StageQualityCheck
	StageDone
	StageAborted
)

var stageNames = map[Stage]string{
	StageFetchData:         "fetch_data",
	StageComputeIndicators: "compute_indicators",
	StageRetrieveContext:   "retrieve_context",
	StageAnalyzeCore:       "analyze_core",
	StageAnalyzeAuxiliary:  "analyze_auxiliary",
	StageAnalyzeSpecific:   "analyze_specific",
	StageGenerateReport:    "generate_report",
	StageQualityCheck:      "quality_check",
	StageDone:              "done",
	StageAborted:           "aborted",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the stage ends the run.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageAborted
}

// linearNext holds the unconditional forward edges. The only conditional
// edge in the machine is out of quality_check, resolved by Machine.Next.
var linearNext = map[Stage]Stage{
	StageFetchData:         StageComputeIndicators,
	StageComputeIndicators: StageRetrieveContext,
	StageRetrieveContext:   StageAnalyzeCore,
	StageAnalyzeCore:       StageAnalyzeAuxiliary,
	StageAnalyzeAuxiliary:  StageAnalyzeSpecific,
	StageAnalyzeSpecific:   StageGenerateReport,
	StageGenerateReport:    StageQualityCheck,
}

// Machine resolves stage transitions for one pipeline run.
type Machine struct {
	threshold  int
	maxRetries int
}

// NewMachine creates a transition resolver with the given quality threshold
// and regeneration budget.
func NewMachine(threshold, maxRetries int) *Machine {
	return &Machine{threshold: threshold, maxRetries: maxRetries}
}

// Next returns the stage following current. Out of quality_check the run
// loops back to generate_report only while the score is below threshold and
// the attempt budget is not exhausted.
func (m *Machine) Next(current Stage, state *models.AnalysisState) Stage {
	if next, ok := linearNext[current]; ok {
		return next
	}
	if current == StageQualityCheck {
		if m.ShouldRegenerate(state) {
			return StageGenerateReport
		}
		return StageDone
	}
	return StageDone
}

// ShouldRegenerate is the guard on the machine's single back-edge.
func (m *Machine) ShouldRegenerate(state *models.AnalysisState) bool {
	if state.QualityScore == nil {
		return false
	}
	return *state.QualityScore < m.threshold && state.Attempts < m.maxRetries
}

// Accepted reports whether the final score met the threshold.
func (m *Machine) Accepted(state *models.AnalysisState) bool {
	return state.QualityScore != nil && *state.QualityScore >= m.threshold
}
