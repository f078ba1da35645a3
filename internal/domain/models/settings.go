package models

import "fmt"

const (
	DefaultPricePerUnit   = 0.22
	DefaultAlertThreshold = 2.0
)

// Settings are the two operator-adjustable knobs. They reset to defaults on restart.
type Settings struct {
	PricePerUnit   float64 `json:"price_per_unit"`
	AlertThreshold float64 `json:"alert_threshold"`
}

func DefaultSettings() Settings {
	return Settings{PricePerUnit: DefaultPricePerUnit, AlertThreshold: DefaultAlertThreshold}
}

// SettingsBounds is the range the alert threshold may be moved within.
type SettingsBounds struct {
	ThresholdMin float64
	ThresholdMax float64
}

func (s Settings) Validate(b SettingsBounds) error {
	if s.AlertThreshold <= 0 {
		return fmt.Errorf("%w: alert threshold must be > 0", ErrInvalidSettings)
	}
	if s.PricePerUnit < 0 {
		return fmt.Errorf("%w: price per unit must be >= 0", ErrInvalidSettings)
	}
	if b.ThresholdMax > 0 && (s.AlertThreshold < b.ThresholdMin || s.AlertThreshold > b.ThresholdMax) {
		return fmt.Errorf("%w: alert threshold %.2f outside [%.2f, %.2f]",
			ErrInvalidSettings, s.AlertThreshold, b.ThresholdMin, b.ThresholdMax)
	}
	return nil
}

// SettingsRequest is a partial update; nil fields keep their current value.
type SettingsRequest struct {
	PricePerUnit   *float64 `json:"price_per_unit" validate:"omitempty,gte=0"`
	AlertThreshold *float64 `json:"alert_threshold" validate:"omitempty,gt=0"`
}

func (r SettingsRequest) Apply(s Settings) Settings {
	if r.PricePerUnit != nil {
		s.PricePerUnit = *r.PricePerUnit
	}
	if r.AlertThreshold != nil {
		s.AlertThreshold = *r.AlertThreshold
	}
	return s
}

// HistoryRequest selects the tail of the history window.
type HistoryRequest struct {
	Last int `query:"last" json:"last" default:"50" validate:"gte=1,lte=1000"`
}
