package models

import "time"

// AlertEvent is published when the classification moves away from NOMINAL.
type AlertEvent struct {
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	Severity       Classification `json:"severity"`
	Previous       Classification `json:"previous"`
	Message        string         `json:"message"`
	Recommendation string         `json:"recommendation"`
	Metric         string         `json:"metric"`
	Value          float64        `json:"value"`
	Threshold      float64        `json:"threshold"`
}
