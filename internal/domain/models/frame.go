package models

import "time"

// History carries copies of the window for charting.
type History struct {
	Observed []float64 `json:"observed"`
	Forecast []float64 `json:"forecast"`
}

// Status reports degraded modes to the presentation layer.
type Status struct {
	InferenceAvailable bool     `json:"inference_available"`
	IngressConnected   bool     `json:"ingress_connected"`
	QueueDepth         int      `json:"queue_depth"`
	Warnings           []string `json:"warnings,omitempty"`
}

// Frame is what the tick loop hands to every sink once per tick.
type Frame struct {
	Tick     uint64    `json:"tick"`
	At       time.Time `json:"at"`
	Snapshot Snapshot  `json:"snapshot"`
	Settings Settings  `json:"settings"`
	History  History   `json:"history"`
	Status   Status    `json:"status"`
}
