package models

import (
	"math"
	"math/rand"
)

// RandomForest averages bootstrap-trained trees that each consider
// sqrt(features) candidates per split.
type RandomForest struct {
	NEstimators int             `json:"n_estimators"`
	MaxDepth    int             `json:"max_depth"`
	Seed        int64           `json:"seed"`
	Trees       []*DecisionTree `json:"trees"`
}

// NewRandomForest returns a forest of n trees.
func NewRandomForest(n int, seed int64) *RandomForest {
	return &RandomForest{NEstimators: n, Seed: seed}
}

// Name implements Classifier.
func (f *RandomForest) Name() string { return "RandomForest" }

// Fit implements Classifier.
func (f *RandomForest) Fit(X [][]float64, y []int) error {
	cols, err := checkFit(X, y)
	if err != nil {
		return err
	}
	if f.NEstimators <= 0 {
		f.NEstimators = 100
	}

	rng := rand.New(rand.NewSource(f.Seed))
	features := max(1, int(math.Sqrt(float64(cols))))
	n := len(X)

	f.Trees = make([]*DecisionTree, f.NEstimators)
	bx := make([][]float64, n)
	by := make([]int, n)
	for t := range f.Trees {
		for i := 0; i < n; i++ {
			j := rng.Intn(n)
			bx[i], by[i] = X[j], y[j]
		}
		tree := &DecisionTree{
			MaxDepth:        f.MaxDepth,
			MinSamplesSplit: 2,
			MaxFeatures:     features,
			Seed:            rng.Int63(),
		}
		if err := tree.Fit(bx, by); err != nil {
			return err
		}
		f.Trees[t] = tree
	}
	return nil
}

func (f *RandomForest) featureCount() int {
	if len(f.Trees) == 0 {
		return 0
	}
	return f.Trees[0].featureCount()
}

// PredictProba implements Classifier.
func (f *RandomForest) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(f.Trees) == 0 {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for _, t := range f.Trees {
		for i, p := range t.PredictProba(X) {
			out[i] += p
		}
	}
	for i := range out {
		out[i] /= float64(len(f.Trees))
	}
	return out
}
