package inference

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"GridPulse/internal/domain/models"
	"GridPulse/pkg/config"
)

type fakeModel struct {
	out  float64
	err  error
	seen []float64
}

func (m *fakeModel) Predict(_ context.Context, seq []float64) (float64, error) {
	m.seen = seq
	return m.out, m.err
}

func window(last float64) models.Reading {
	r := make(models.Reading, models.SequenceLength)
	r[len(r)-1] = last
	return r
}

func TestInferDenormalizes(t *testing.T) {
	scaler := &MinMaxScaler{Min: 0, Scale: 0.5} // physical = normalized * 2
	model := &fakeModel{out: 0.9}
	core, err := NewCore(model, scaler)
	if err != nil {
		t.Fatalf("new core: %v", err)
	}

	res, err := core.Infer(context.Background(), window(0.6))
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if math.Abs(res.Observed-1.2) > 1e-12 || math.Abs(res.Forecast-1.8) > 1e-12 {
		t.Fatalf("result = %+v", res)
	}
	if len(model.seen) != models.SequenceLength {
		t.Fatalf("model saw %d steps", len(model.seen))
	}
}

func TestInferRejectsShape(t *testing.T) {
	core, _ := NewCore(&fakeModel{}, &MinMaxScaler{Scale: 1})
	_, err := core.Infer(context.Background(), models.Reading{1, 2, 3})
	if !errors.Is(err, models.ErrInvalidInputShape) {
		t.Fatalf("err = %v", err)
	}
}

func TestInferPropagatesModelError(t *testing.T) {
	boom := errors.New("boom")
	core, _ := NewCore(&fakeModel{err: boom}, &MinMaxScaler{Scale: 1})
	if _, err := core.Infer(context.Background(), window(0.1)); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewCoreRequiresBoth(t *testing.T) {
	if _, err := NewCore(nil, &MinMaxScaler{Scale: 1}); !errors.Is(err, models.ErrInferenceUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadMissingArtifacts(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	dir := t.TempDir()
	cfg.Inference.ScalerPath = filepath.Join(dir, "missing_scaler.json")
	cfg.Inference.ModelPath = filepath.Join(dir, "missing_model.json")

	if _, err := Load(cfg); !errors.Is(err, models.ErrInferenceUnavailable) {
		t.Fatalf("err = %v", err)
	}

	if err := os.WriteFile(cfg.Inference.ScalerPath, []byte(`{"min_":[0],"scale_":[1]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(cfg); !errors.Is(err, models.ErrInferenceUnavailable) {
		t.Fatalf("missing model: err = %v", err)
	}
}

func TestLoadFromFiles(t *testing.T) {
	cfg, _ := config.Load("")
	dir := t.TempDir()
	cfg.Inference.ScalerPath = filepath.Join(dir, "scaler.json")
	cfg.Inference.ModelPath = filepath.Join(dir, "model.json")
	_ = os.WriteFile(cfg.Inference.ScalerPath, []byte(`{"min_":[0],"scale_":[1]}`), 0o644)
	_ = os.WriteFile(cfg.Inference.ModelPath, []byte(`{
		"lstm": {"units": 1, "kernel": [[0,0,0,0]], "recurrent_kernel": [[0,0,0,0]], "bias": [0,0,0,0]},
		"dense": {"kernel": [[1]], "bias": [1.25]}
	}`), 0o644)

	core, err := Load(cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	res, err := core.Infer(context.Background(), window(0.4))
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if res.Observed != 0.4 || res.Forecast != 1.25 {
		t.Fatalf("result = %+v", res)
	}
}

func TestHTTPModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Instances) != 1 || len(req.Instances[0]) != models.SequenceLength || len(req.Instances[0][0]) != 1 {
			http.Error(w, "bad shape", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(predictResponse{Predictions: [][]float64{{0.42}}})
	}))
	defer srv.Close()

	cfg, _ := config.Load("")
	cfg.Inference.ServiceURL = srv.URL + "/"
	m := NewHTTPModel(cfg)

	out, err := m.Predict(context.Background(), window(0.1))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if out != 0.42 {
		t.Fatalf("out = %v", out)
	}
}

func TestHTTPModelServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg, _ := config.Load("")
	cfg.Inference.ServiceURL = srv.URL
	if _, err := NewHTTPModel(cfg).Predict(context.Background(), window(0.1)); err == nil {
		t.Fatal("expected error from 503")
	}
}
