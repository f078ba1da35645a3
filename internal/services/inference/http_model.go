package inference

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"GridPulse/pkg/config"
	xhttp "GridPulse/pkg/http"
)

// HTTPModel delegates prediction to a model server that exposes
// POST {service_url}/predict.
type HTTPModel struct {
	baseURL string
	client  *xhttp.Client
}

type predictRequest struct {
	// 1 batch x N steps x 1 feature, the tensor layout the server feeds the model.
	Instances [][][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
}

func NewHTTPModel(cfg *config.Config) *HTTPModel {
	timeout := cfg.Inference.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPModel{
		baseURL: strings.TrimRight(cfg.Inference.ServiceURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (m *HTTPModel) Predict(ctx context.Context, sequence []float64) (float64, error) {
	steps := make([][]float64, len(sequence))
	for i, v := range sequence {
		steps[i] = []float64{v}
	}
	var resp predictResponse
	if err := m.postJSON(ctx, "/predict", predictRequest{Instances: [][][]float64{steps}}, &resp); err != nil {
		return 0, err
	}
	if len(resp.Predictions) == 0 || len(resp.Predictions[0]) == 0 {
		return 0, fmt.Errorf("model server returned no prediction")
	}
	out := resp.Predictions[0][0]
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("model server returned non-finite prediction")
	}
	return out, nil
}

func (m *HTTPModel) postJSON(ctx context.Context, path string, payload, dest interface{}) error {
	if m.baseURL == "" {
		return fmt.Errorf("model server url not configured")
	}
	err := m.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     m.baseURL + path,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}
