// Package model implements the fraud classifier: a standard scaler, a
// logistic-regression model trained by gradient descent, evaluation
// metrics, and the versioned artifact format that bundles them. No
// numeric library is involved; the math is small enough to carry
// directly.
package model

import (
	"fmt"
	"math"
)

// Scaler standardizes feature columns to zero mean and unit variance.
// Fit on training data only; inference reuses the stored moments.
type Scaler struct {
	Mean   []float64
	Std    []float64
	Fitted bool
}

// NewScaler returns an unfitted scaler. Transform on an unfitted scaler
// is the identity, which keeps the lazy default model usable.
func NewScaler() *Scaler {
	return &Scaler{}
}

// Fit computes per-column mean and standard deviation.
func (s *Scaler) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return fmt.Errorf("scaler: no rows to fit")
	}

	cols := len(rows[0])
	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)

	for _, row := range rows {
		if len(row) != cols {
			return fmt.Errorf("scaler: ragged row, want %d columns got %d", cols, len(row))
		}
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	n := float64(len(rows))
	for j := range s.Mean {
		s.Mean[j] /= n
	}

	for _, row := range rows {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
		if s.Std[j] == 0 {
			// Constant column; leave it centered but unscaled.
			s.Std[j] = 1
		}
	}

	s.Fitted = true
	return nil
}

// Transform standardizes a single vector.
func (s *Scaler) Transform(v []float64) []float64 {
	out := make([]float64, len(v))
	if !s.Fitted {
		copy(out, v)
		return out
	}
	for j, x := range v {
		out[j] = (x - s.Mean[j]) / s.Std[j]
	}
	return out
}

// TransformAll standardizes a matrix row by row.
func (s *Scaler) TransformAll(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = s.Transform(row)
	}
	return out
}
