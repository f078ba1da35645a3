package models

import "fmt"

// Classification is the memoryless safety state derived from forecast vs threshold.
type Classification string

const (
	Nominal  Classification = "NOMINAL"
	Elevated Classification = "ELEVATED"
	Critical Classification = "CRITICAL"
)

// Level orders classifications for gauges: 0 nominal, 1 elevated, 2 critical.
func (c Classification) Level() int {
	switch c {
	case Critical:
		return 2
	case Elevated:
		return 1
	default:
		return 0
	}
}

// Recommendation is the operator action shown next to the alert.
func (c Classification) Recommendation() string {
	switch c {
	case Critical:
		return "Cut electric heating and start the backup generator."
	case Elevated:
		return "Reduce lighting."
	default:
		return "No action required."
	}
}

// Headline is the alert banner text for a given forecast.
func (c Classification) Headline(forecast float64) string {
	switch c {
	case Critical:
		return fmt.Sprintf("Peak detected: %.2f kW", forecast)
	case Elevated:
		return "High load"
	default:
		return "Grid nominal"
	}
}

// SessionStats cover every observed value currently in the history window.
type SessionStats struct {
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Cost float64 `json:"cost"`
}

// Snapshot is the derived display state for one tick. HasData is false for the
// "no data yet" sentinel, in which case every other field is zero.
type Snapshot struct {
	HasData        bool           `json:"has_data"`
	Observed       float64        `json:"observed"`
	Forecast       float64        `json:"forecast"`
	Delta          float64        `json:"delta"`
	InstantCost    float64        `json:"instant_cost"`
	LoadRatio      float64        `json:"load_ratio"`
	Classification Classification `json:"classification,omitempty"`
	Session        SessionStats   `json:"session"`
	Samples        int            `json:"samples"`
}

// NoData is the sentinel returned for an empty history window.
var NoData = Snapshot{}

// LoadLabel renders the gauge caption, e.g. "Load: 80%".
func (s Snapshot) LoadLabel() string {
	return fmt.Sprintf("Load: %d%%", int(s.LoadRatio*100))
}
