package service

import (
	"context"

	"GridPulse/internal/domain/models"
)

// Model is a trained sequence model: one window in, one normalized value out.
type Model interface {
	Predict(ctx context.Context, sequence []float64) (float64, error)
}

// Scaler maps between physical units and the model's normalized space.
type Scaler interface {
	Transform(v float64) float64
	InverseTransform(v float64) float64
}

// Forecaster produces the observed/forecast pair for one reading.
type Forecaster interface {
	Infer(ctx context.Context, r models.Reading) (models.InferenceResult, error)
}
