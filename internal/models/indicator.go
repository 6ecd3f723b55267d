package models

// IndicatorStatus marks whether an indicator could be computed.
type IndicatorStatus string

const (
	IndicatorOK          IndicatorStatus = "ok"
	IndicatorUnavailable IndicatorStatus = "unavailable"
)

// IndicatorTier groups indicators by analytical priority, driven by the
// industry configuration.
type IndicatorTier string

const (
	TierCore      IndicatorTier = "core"
	TierAuxiliary IndicatorTier = "auxiliary"
	TierSpecific  IndicatorTier = "specific"
)

// Indicator is a deterministically computed financial metric. Value is nil
// when the inputs did not allow computation, in which case Status is
// unavailable and Display is "N/A".
type Indicator struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name,omitempty"`
	Tier        IndicatorTier   `json:"tier"`
	Value       *float64        `json:"value,omitempty"`
	Current     *float64        `json:"current,omitempty"`  // Base value for the current period
	Previous    *float64        `json:"previous,omitempty"` // Base value for the prior period
	Display     string          `json:"display"`
	Status      IndicatorStatus `json:"status"`
	Unit        string          `json:"unit,omitempty"`
	Label       string          `json:"label,omitempty"`        // Qualitative label from industry thresholds
	DeltaPoints *float64        `json:"delta_points,omitempty"` // Change vs prior period, in percentage points
}

// Available reports whether the indicator carries a usable value.
func (i *Indicator) Available() bool {
	return i.Status == IndicatorOK && i.Value != nil
}
