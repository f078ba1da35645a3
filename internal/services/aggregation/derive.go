package aggregation

import (
	"math"

	"GridPulse/internal/domain/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// ElevatedFraction of the threshold above which load is ELEVATED.
	ElevatedFraction = 0.8
	// TicksPerHour converts the sum of per-tick kW readings into kWh; readings
	// are taken to be one minute apart.
	TicksPerHour = 60.0
)

// Classify maps a forecast onto the three safety states. The lower edge of
// ELEVATED is exclusive, the upper edge inclusive.
func Classify(forecast, threshold float64) models.Classification {
	switch {
	case forecast > threshold:
		return models.Critical
	case forecast > threshold*ElevatedFraction:
		return models.Elevated
	default:
		return models.Nominal
	}
}

// LoadRatio is forecast/threshold clamped to [0,1].
func LoadRatio(forecast, threshold float64) float64 {
	if threshold <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, forecast/threshold))
}

// Derive computes the snapshot for two equal-length series. It reads its
// inputs only, so repeated calls over unchanged series return identical values.
// Empty series yield models.NoData.
func Derive(observed, forecast []float64, s models.Settings) models.Snapshot {
	n := len(observed)
	if n == 0 || len(forecast) != n {
		return models.NoData
	}
	obs := observed[n-1]
	fc := forecast[n-1]
	sum := floats.Sum(observed)

	return models.Snapshot{
		HasData:        true,
		Observed:       obs,
		Forecast:       fc,
		Delta:          fc - obs,
		InstantCost:    obs * s.PricePerUnit,
		LoadRatio:      LoadRatio(fc, s.AlertThreshold),
		Classification: Classify(fc, s.AlertThreshold),
		Session: models.SessionStats{
			Max:  floats.Max(observed),
			Mean: stat.Mean(observed, nil),
			Cost: (sum / TicksPerHour) * s.PricePerUnit,
		},
		Samples: n,
	}
}
