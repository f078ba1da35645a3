package inference

import (
	"encoding/json"
	"fmt"
	"os"
)

// MinMaxScaler is a fitted single-feature min-max scaler: y = x*Scale + Min.
type MinMaxScaler struct {
	Min   float64
	Scale float64
}

// scalerFile accepts either the fitted attributes (min_, scale_) or the data
// range the scaler was fitted on (data_min_, data_max_, feature_range).
type scalerFile struct {
	Min          []float64 `json:"min_"`
	Scale        []float64 `json:"scale_"`
	DataMin      []float64 `json:"data_min_"`
	DataMax      []float64 `json:"data_max_"`
	FeatureRange []float64 `json:"feature_range"`
}

// LoadScaler reads a JSON scaler artifact.
func LoadScaler(path string) (*MinMaxScaler, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler: %w", err)
	}
	return ParseScaler(b)
}

func ParseScaler(b []byte) (*MinMaxScaler, error) {
	var f scalerFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse scaler: %w", err)
	}

	switch {
	case len(f.Min) > 0 || len(f.Scale) > 0:
		if len(f.Min) != 1 || len(f.Scale) != 1 {
			return nil, fmt.Errorf("scaler must have exactly one feature, got min_=%d scale_=%d", len(f.Min), len(f.Scale))
		}
		if f.Scale[0] == 0 {
			return nil, fmt.Errorf("scaler scale_ is zero")
		}
		return &MinMaxScaler{Min: f.Min[0], Scale: f.Scale[0]}, nil

	case len(f.DataMin) == 1 && len(f.DataMax) == 1:
		lo, hi := 0.0, 1.0
		if len(f.FeatureRange) == 2 {
			lo, hi = f.FeatureRange[0], f.FeatureRange[1]
		}
		span := f.DataMax[0] - f.DataMin[0]
		if span == 0 {
			return nil, fmt.Errorf("scaler data range is empty")
		}
		scale := (hi - lo) / span
		return &MinMaxScaler{Min: lo - f.DataMin[0]*scale, Scale: scale}, nil

	default:
		return nil, fmt.Errorf("scaler has neither min_/scale_ nor data_min_/data_max_")
	}
}

func (s *MinMaxScaler) Transform(v float64) float64 { return v*s.Scale + s.Min }

func (s *MinMaxScaler) InverseTransform(v float64) float64 { return (v - s.Min) / s.Scale }
