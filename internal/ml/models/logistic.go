package models

import "math"

// LogisticRegression is L2-regularised logistic regression trained by
// full-batch gradient descent. C is the inverse regularisation strength.
type LogisticRegression struct {
	MaxIter      int       `json:"max_iter"`
	LearningRate float64   `json:"learning_rate"`
	C            float64   `json:"c"`
	Tol          float64   `json:"tol"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
}

// NewLogisticRegression returns a model with C=1 and the given iteration cap.
func NewLogisticRegression(maxIter int) *LogisticRegression {
	return &LogisticRegression{MaxIter: maxIter, LearningRate: 0.1, C: 1, Tol: 1e-6}
}

// Name implements Classifier.
func (m *LogisticRegression) Name() string { return "LogisticRegression" }

// Fit implements Classifier.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	cols, err := checkFit(X, y)
	if err != nil {
		return err
	}
	if m.MaxIter <= 0 {
		m.MaxIter = 100
	}
	if m.LearningRate <= 0 {
		m.LearningRate = 0.1
	}
	if m.C <= 0 {
		m.C = 1
	}

	n := float64(len(X))
	w := make([]float64, cols)
	grad := make([]float64, cols)
	b := 0.0

	for iter := 0; iter < m.MaxIter; iter++ {
		for j := range grad {
			grad[j] = w[j] / (m.C * n)
		}
		gb := 0.0
		for i, row := range X {
			r := (sigmoid(dot(w, row)+b) - float64(y[i])) / n
			for j, v := range row {
				grad[j] += r * v
			}
			gb += r
		}

		largest := math.Abs(gb)
		for j := range w {
			w[j] -= m.LearningRate * grad[j]
			largest = math.Max(largest, math.Abs(grad[j]))
		}
		b -= m.LearningRate * gb
		if largest < m.Tol {
			break
		}
	}

	m.Weights, m.Bias = w, b
	return nil
}

func (m *LogisticRegression) featureCount() int { return len(m.Weights) }

// PredictProba implements Classifier.
func (m *LogisticRegression) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		if m.Weights == nil {
			out[i] = 0.5
			continue
		}
		out[i] = sigmoid(dot(m.Weights, row) + m.Bias)
	}
	return out
}
