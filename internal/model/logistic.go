package model

import (
	"fmt"
	"math"
)

// Logistic is a binary logistic-regression classifier. An untrained
// model has zero weights and predicts 0.5 for every input, which the
// scorer relies on for its lazy default: callers get a low-confidence
// score instead of an error when no trained model exists.
type Logistic struct {
	Weights []float64
	Bias    float64
	Trained bool
}

// Training hyperparameters. Fixed rather than configurable; the dataset
// is small and the run must be reproducible.
const (
	learningRate = 0.1
	epochs       = 500
	l2Penalty    = 0.001
)

// NewLogistic returns an untrained classifier for dim features.
func NewLogistic(dim int) *Logistic {
	return &Logistic{Weights: make([]float64, dim)}
}

// Fit trains on scaled feature rows with 0/1 labels using full-batch
// gradient descent.
func (m *Logistic) Fit(rows [][]float64, labels []int) error {
	if len(rows) == 0 {
		return fmt.Errorf("logistic: no training rows")
	}
	if len(rows) != len(labels) {
		return fmt.Errorf("logistic: %d rows but %d labels", len(rows), len(labels))
	}

	dim := len(rows[0])
	m.Weights = make([]float64, dim)
	m.Bias = 0
	n := float64(len(rows))

	grad := make([]float64, dim)
	for epoch := 0; epoch < epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		var biasGrad float64

		for i, row := range rows {
			err := m.PredictProba(row) - float64(labels[i])
			for j, x := range row {
				grad[j] += err * x
			}
			biasGrad += err
		}

		for j := range m.Weights {
			m.Weights[j] -= learningRate * (grad[j]/n + l2Penalty*m.Weights[j])
		}
		m.Bias -= learningRate * biasGrad / n
	}

	m.Trained = true
	return nil
}

// PredictProba returns the probability of the positive (fraud) class.
func (m *Logistic) PredictProba(v []float64) float64 {
	z := m.Bias
	for j, w := range m.Weights {
		if j < len(v) {
			z += w * v[j]
		}
	}
	return sigmoid(z)
}

// Predict returns the 0/1 class at the 0.5 decision boundary.
func (m *Logistic) Predict(v []float64) int {
	if m.PredictProba(v) >= 0.5 {
		return 1
	}
	return 0
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
