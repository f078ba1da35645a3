package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// SequenceLength is the number of samples the forecasting model consumes.
const SequenceLength = 24

// Reading is one window of a single feature, most recent sample last.
type Reading []float64

// Last returns the most recent sample.
func (r Reading) Last() float64 { return r[len(r)-1] }

// Validate enforces the model input shape: exactly SequenceLength finite samples.
func (r Reading) Validate() error {
	if len(r) != SequenceLength {
		return fmt.Errorf("%w: got %d samples, want %d", ErrInvalidInputShape, len(r), SequenceLength)
	}
	for i, v := range r {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: sample %d is not finite", ErrInvalidInputShape, i)
		}
	}
	return nil
}

// DecodeReading parses an inbound payload `{"data": [...]}`. The data field may
// be a flat array or an N x 1 array, the latter being what the field publisher
// emits.
func DecodeReading(b []byte) (Reading, error) {
	var msg struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	raw := bytes.TrimSpace(msg.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: missing data field", ErrMalformedPayload)
	}

	var flat []float64
	if err := json.Unmarshal(raw, &flat); err != nil {
		var nested [][]float64
		if err2 := json.Unmarshal(raw, &nested); err2 != nil {
			return nil, fmt.Errorf("%w: data is neither a number array nor a column: %v", ErrMalformedPayload, err)
		}
		flat = make([]float64, len(nested))
		for i, row := range nested {
			if len(row) != 1 {
				return nil, fmt.Errorf("%w: step %d has %d features, want 1", ErrInvalidInputShape, i, len(row))
			}
			flat[i] = row[0]
		}
	}

	r := Reading(flat)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// InferenceResult is the de-normalized pair produced for one Reading.
type InferenceResult struct {
	Observed float64 `json:"observed"`
	Forecast float64 `json:"forecast"`
}
