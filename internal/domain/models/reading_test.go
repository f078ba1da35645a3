package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / 100
	}
	return out
}

func TestDecodeReadingFlat(t *testing.T) {
	b, _ := json.Marshal(map[string]interface{}{"data": seq(24)})
	r, err := DecodeReading(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(r) != SequenceLength {
		t.Fatalf("len = %d", len(r))
	}
	if r.Last() != 0.23 {
		t.Fatalf("last = %v", r.Last())
	}
}

func TestDecodeReadingColumn(t *testing.T) {
	col := make([][]float64, 24)
	for i, v := range seq(24) {
		col[i] = []float64{v}
	}
	b, _ := json.Marshal(map[string]interface{}{"data": col})
	r, err := DecodeReading(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.Last() != 0.23 || r[0] != 0 {
		t.Fatalf("unexpected reading %v", r)
	}
}

func TestDecodeReadingRejects(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    error
	}{
		{"not json", "hello", ErrMalformedPayload},
		{"missing data", `{"values":[1,2]}`, ErrMalformedPayload},
		{"null data", `{"data":null}`, ErrMalformedPayload},
		{"strings", `{"data":["a","b"]}`, ErrMalformedPayload},
		{"short", `{"data":[1,2,3]}`, ErrInvalidInputShape},
		{"two features", `{"data":[[1,2],[3,4]]}`, ErrInvalidInputShape},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeReading([]byte(tc.payload))
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSettingsValidate(t *testing.T) {
	b := SettingsBounds{ThresholdMin: 1, ThresholdMax: 5}
	if err := DefaultSettings().Validate(b); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	bad := []Settings{
		{PricePerUnit: 0.22, AlertThreshold: 0},
		{PricePerUnit: -1, AlertThreshold: 2},
		{PricePerUnit: 0.22, AlertThreshold: 7},
	}
	for _, s := range bad {
		if err := s.Validate(b); !errors.Is(err, ErrInvalidSettings) {
			t.Fatalf("%+v: err = %v", s, err)
		}
	}
	// no upper bound configured
	if err := (Settings{PricePerUnit: 0.1, AlertThreshold: 40}).Validate(SettingsBounds{}); err != nil {
		t.Fatalf("unbounded: %v", err)
	}
}

func TestSettingsRequestApply(t *testing.T) {
	thr := 3.0
	got := SettingsRequest{AlertThreshold: &thr}.Apply(DefaultSettings())
	if got.AlertThreshold != 3.0 || got.PricePerUnit != DefaultPricePerUnit {
		t.Fatalf("apply = %+v", got)
	}
}

func TestClassificationText(t *testing.T) {
	if h := Critical.Headline(2.346); h != "Peak detected: 2.35 kW" {
		t.Fatalf("headline = %q", h)
	}
	if !strings.Contains(Critical.Recommendation(), "generator") {
		t.Fatalf("critical recommendation = %q", Critical.Recommendation())
	}
	if Nominal.Level() != 0 || Elevated.Level() != 1 || Critical.Level() != 2 {
		t.Fatalf("levels out of order")
	}
	if l := (Snapshot{LoadRatio: 0.8}).LoadLabel(); l != "Load: 80%" {
		t.Fatalf("label = %q", l)
	}
}
