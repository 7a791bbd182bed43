// Package models implements the binary classifiers trained by the ML pipelines.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

var (
	// ErrInvalidInput is returned by Fit for empty, ragged or non-binary training data.
	ErrInvalidInput = errors.New("invalid training data")
	// ErrUnknownModel is returned by Load for an unrecognised model kind.
	ErrUnknownModel = errors.New("unknown model kind")
	// ErrFeatureMismatch is returned when a row's width differs from the training data.
	ErrFeatureMismatch = errors.New("feature count mismatch")
)

// Classifier is a binary classifier producing positive-class probabilities.
type Classifier interface {
	Name() string
	Fit(X [][]float64, y []int) error
	PredictProba(X [][]float64) []float64
}

// featureCounter reports the row width a fitted model expects, or 0 when unfitted.
type featureCounter interface {
	featureCount() int
}

// CheckRows returns ErrFeatureMismatch if any row of X is not as wide as the
// data c was fitted on. Unfitted models accept any width.
func CheckRows(c Classifier, X [][]float64) error {
	fc, ok := c.(featureCounter)
	if !ok {
		return nil
	}
	want := fc.featureCount()
	if want == 0 {
		return nil
	}
	for i, row := range X {
		if len(row) != want {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureMismatch, i, len(row), want)
		}
	}
	return nil
}

// Predict checks row widths and thresholds PredictProba at 0.5.
func Predict(c Classifier, X [][]float64) ([]int, error) {
	if err := CheckRows(c, X); err != nil {
		return nil, err
	}
	proba := c.PredictProba(X)
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

func checkFit(X [][]float64, y []int) (int, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("%w: no rows", ErrInvalidInput)
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: %d rows but %d labels", ErrInvalidInput, len(X), len(y))
	}
	cols := len(X[0])
	for i, row := range X {
		if len(row) != cols {
			return 0, fmt.Errorf("%w: row %d has %d values, want %d", ErrInvalidInput, i, len(row), cols)
		}
		if y[i] != 0 && y[i] != 1 {
			return 0, fmt.Errorf("%w: label %d is not 0 or 1", ErrInvalidInput, y[i])
		}
	}
	return cols, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func dot(w, x []float64) float64 {
	s := 0.0
	for i := range w {
		s += w[i] * x[i]
	}
	return s
}

type envelope struct {
	Kind  string          `json:"kind"`
	Model json.RawMessage `json:"model"`
}

func kindOf(c Classifier) (string, error) {
	switch c.(type) {
	case *LogisticRegression:
		return "logistic_regression", nil
	case *DecisionTree:
		return "decision_tree", nil
	case *RandomForest:
		return "random_forest", nil
	case *LinearSVM:
		return "linear_svm", nil
	case *GradientBoosting:
		return "gradient_boosting", nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnknownModel, c)
	}
}

// Save writes c as JSON tagged with its kind.
func Save(path string, c Classifier) error {
	kind, err := kindOf(c)
	if err != nil {
		return err
	}
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c.Name(), err)
	}
	data, err := json.Marshal(envelope{Kind: kind, Model: body})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a classifier written by Save.
func Load(path string) (Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}

	var c Classifier
	switch env.Kind {
	case "logistic_regression":
		c = &LogisticRegression{}
	case "decision_tree":
		c = &DecisionTree{}
	case "random_forest":
		c = &RandomForest{}
	case "linear_svm":
		c = &LinearSVM{}
	case "gradient_boosting":
		c = &GradientBoosting{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, env.Kind)
	}
	if err := json.Unmarshal(env.Model, c); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", env.Kind, err)
	}
	return c, nil
}
