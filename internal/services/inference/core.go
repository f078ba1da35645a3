package inference

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"GridPulse/internal/domain/models"
	"GridPulse/internal/domain/service"
	"GridPulse/pkg/config"
)

// Core turns one Reading into an observed/forecast pair in physical units.
type Core struct {
	model  service.Model
	scaler service.Scaler
}

func NewCore(model service.Model, scaler service.Scaler) (*Core, error) {
	if model == nil || scaler == nil {
		return nil, models.ErrInferenceUnavailable
	}
	return &Core{model: model, scaler: scaler}, nil
}

// Infer validates the window shape, de-normalizes the last sample and the
// model's one-step-ahead output.
func (c *Core) Infer(ctx context.Context, r models.Reading) (models.InferenceResult, error) {
	if err := r.Validate(); err != nil {
		return models.InferenceResult{}, err
	}
	observed := c.scaler.InverseTransform(r.Last())

	raw, err := c.model.Predict(ctx, r)
	if err != nil {
		return models.InferenceResult{}, fmt.Errorf("predict: %w", err)
	}
	forecast := c.scaler.InverseTransform(raw)
	if math.IsNaN(forecast) || math.IsInf(forecast, 0) || math.IsNaN(observed) || math.IsInf(observed, 0) {
		return models.InferenceResult{}, fmt.Errorf("inverse transform produced a non-finite value")
	}
	return models.InferenceResult{Observed: observed, Forecast: forecast}, nil
}

// Load builds the Core from the configured artifacts. Any missing or
// unreadable artifact yields an error wrapping ErrInferenceUnavailable; the
// caller runs without inference in that case.
func Load(cfg *config.Config) (*Core, error) {
	scaler, err := LoadScaler(cfg.Inference.ScalerPath)
	if err != nil {
		return nil, unavailable("scaler", err)
	}

	var model service.Model
	switch cfg.Inference.Model {
	case config.ModelHTTP:
		model = NewHTTPModel(cfg)
	default:
		lstm, err := LoadLSTM(cfg.Inference.ModelPath)
		if err != nil {
			return nil, unavailable("model", err)
		}
		model = lstm
	}
	return NewCore(model, scaler)
}

func unavailable(what string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s file not found: %v", models.ErrInferenceUnavailable, what, err)
	}
	return fmt.Errorf("%w: %s: %v", models.ErrInferenceUnavailable, what, err)
}
