package inference

import (
	"context"
	"math"
	"testing"
)

func TestLSTMZeroWeightsReturnsHeadBias(t *testing.T) {
	m, err := ParseLSTM([]byte(`{
		"lstm": {"units": 2,
			"kernel": [[0,0,0,0,0,0,0,0]],
			"recurrent_kernel": [[0,0,0,0,0,0,0,0],[0,0,0,0,0,0,0,0]],
			"bias": [0,0,0,0,0,0,0,0]},
		"dense": {"kernel": [[1],[1]], "bias": [0.7]}
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := m.Predict(context.Background(), make([]float64, 24))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(out-0.7) > 1e-12 {
		t.Fatalf("out = %v, want 0.7", out)
	}
}

func TestLSTMRecurrenceAcrossSteps(t *testing.T) {
	m, err := ParseLSTM([]byte(`{
		"lstm": {"units": 1,
			"kernel": [[0,0,0,0]],
			"recurrent_kernel": [[0,0,0,0]],
			"bias": [0,0,1,0]},
		"dense": {"kernel": [[2]], "bias": [0.5]}
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := m.Predict(context.Background(), make([]float64, 24))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}

	// every gate sees only its bias: i = f = o = 0.5, g = tanh(1)
	c := 0.0
	for i := 0; i < 24; i++ {
		c = 0.5*c + 0.5*math.Tanh(1)
	}
	want := 2*(0.5*math.Tanh(c)) + 0.5
	if math.Abs(out-want) > 1e-12 {
		t.Fatalf("out = %v, want %v", out, want)
	}
}

func TestLSTMUsesInput(t *testing.T) {
	m, err := ParseLSTM([]byte(`{
		"lstm": {"units": 1,
			"kernel": [[0,0,1,0]],
			"recurrent_kernel": [[0,0,0,0]],
			"bias": [0,0,0,0]},
		"dense": {"kernel": [[1]], "bias": [0]}
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := m.Predict(context.Background(), []float64{1})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	c := 0.5 * math.Tanh(1)
	want := 0.5 * math.Tanh(c)
	if math.Abs(out-want) > 1e-12 {
		t.Fatalf("out = %v, want %v", out, want)
	}
}

func TestParseLSTMRejectsBadShapes(t *testing.T) {
	for _, body := range []string{
		`{"lstm": {"units": 0}}`,
		`{"lstm": {"units": 1, "kernel": [[0,0,0]], "recurrent_kernel": [[0,0,0,0]], "bias": [0,0,0,0]}, "dense": {"kernel": [[1]], "bias": [0]}}`,
		`{"lstm": {"units": 1, "kernel": [[0,0,0,0]], "recurrent_kernel": [[0,0,0,0]], "bias": [0,0]}, "dense": {"kernel": [[1]], "bias": [0]}}`,
		`{"lstm": {"units": 1, "kernel": [[0,0,0,0]], "recurrent_kernel": [[0,0,0,0]], "bias": [0,0,0,0]}, "dense": {"kernel": [[1],[1]], "bias": [0]}}`,
	} {
		if _, err := ParseLSTM([]byte(body)); err == nil {
			t.Fatalf("expected error for %s", body)
		}
	}
}

func TestLSTMHonoursCancelledContext(t *testing.T) {
	m, err := ParseLSTM([]byte(`{
		"lstm": {"units": 1, "kernel": [[0,0,0,0]], "recurrent_kernel": [[0,0,0,0]], "bias": [0,0,0,0]},
		"dense": {"kernel": [[1]], "bias": [0]}
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Predict(ctx, []float64{1}); err == nil {
		t.Fatal("expected context error")
	}
}
