package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
)

// LSTM is a single-layer LSTM followed by a one-unit dense head, the
// architecture of the exported load model. Weights use the Keras layout:
// gate blocks ordered input, forget, cell, output along the 4*units axis.
type LSTM struct {
	units     int
	inputDim  int
	kernel    *mat.Dense // inputDim x 4u
	recurrent *mat.Dense // u x 4u
	bias      *mat.VecDense
	head      *mat.VecDense // u
	headBias  float64
}

type lstmFile struct {
	LSTM struct {
		Units           int         `json:"units"`
		Kernel          [][]float64 `json:"kernel"`
		RecurrentKernel [][]float64 `json:"recurrent_kernel"`
		Bias            []float64   `json:"bias"`
	} `json:"lstm"`
	Dense struct {
		Kernel [][]float64 `json:"kernel"`
		Bias   []float64   `json:"bias"`
	} `json:"dense"`
}

// LoadLSTM reads exported weights from a JSON artifact.
func LoadLSTM(path string) (*LSTM, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return ParseLSTM(b)
}

func ParseLSTM(b []byte) (*LSTM, error) {
	var f lstmFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	u := f.LSTM.Units
	if u <= 0 {
		return nil, fmt.Errorf("model units must be positive, got %d", u)
	}
	kernel, err := dense(f.LSTM.Kernel, -1, 4*u, "kernel")
	if err != nil {
		return nil, err
	}
	recurrent, err := dense(f.LSTM.RecurrentKernel, u, 4*u, "recurrent_kernel")
	if err != nil {
		return nil, err
	}
	if len(f.LSTM.Bias) != 4*u {
		return nil, fmt.Errorf("bias has %d values, want %d", len(f.LSTM.Bias), 4*u)
	}
	head, err := dense(f.Dense.Kernel, u, 1, "dense.kernel")
	if err != nil {
		return nil, err
	}
	if len(f.Dense.Bias) != 1 {
		return nil, fmt.Errorf("dense.bias has %d values, want 1", len(f.Dense.Bias))
	}

	inputDim, _ := kernel.Dims()
	return &LSTM{
		units:     u,
		inputDim:  inputDim,
		kernel:    kernel,
		recurrent: recurrent,
		bias:      mat.NewVecDense(4*u, append([]float64(nil), f.LSTM.Bias...)),
		head:      mat.VecDenseCopyOf(head.ColView(0)),
		headBias:  f.Dense.Bias[0],
	}, nil
}

// dense builds a rows x cols matrix; rows < 0 accepts any row count.
func dense(rows [][]float64, wantRows, cols int, name string) (*mat.Dense, error) {
	if len(rows) == 0 || (wantRows >= 0 && len(rows) != wantRows) {
		return nil, fmt.Errorf("%s has %d rows, want %d", name, len(rows), wantRows)
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%s row %d has %d columns, want %d", name, i, len(r), cols)
		}
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// Predict runs the sequence (one feature per step) through the network and
// returns the raw, still normalized, output.
func (m *LSTM) Predict(ctx context.Context, sequence []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(sequence) == 0 {
		return 0, fmt.Errorf("empty sequence")
	}
	if m.inputDim != 1 {
		return 0, fmt.Errorf("model expects %d features per step, sequence has 1", m.inputDim)
	}

	u := m.units
	h := mat.NewVecDense(u, nil)
	c := make([]float64, u)
	z := mat.NewVecDense(4*u, nil)
	rec := mat.NewVecDense(4*u, nil)
	x := mat.NewVecDense(1, nil)

	for _, v := range sequence {
		x.SetVec(0, v)
		z.MulVec(m.kernel.T(), x)
		rec.MulVec(m.recurrent.T(), h)
		z.AddVec(z, rec)
		z.AddVec(z, m.bias)

		for j := 0; j < u; j++ {
			i := sigmoid(z.AtVec(j))
			f := sigmoid(z.AtVec(u + j))
			g := math.Tanh(z.AtVec(2*u + j))
			o := sigmoid(z.AtVec(3*u + j))
			c[j] = f*c[j] + i*g
			h.SetVec(j, o*math.Tanh(c[j]))
		}
	}

	out := mat.Dot(h, m.head) + m.headBias
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("model produced non-finite output")
	}
	return out, nil
}

func sigmoid(v float64) float64 { return 1 / (1 + math.Exp(-v)) }
