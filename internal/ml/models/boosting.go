package models

import "sort"

// GradientBoosting fits regression trees to the gradient and hessian of the
// logistic loss, in the manner of XGBoost's exact greedy algorithm.
type GradientBoosting struct {
	NEstimators    int     `json:"n_estimators"`
	LearningRate   float64 `json:"learning_rate"`
	MaxDepth       int     `json:"max_depth"`
	Lambda         float64 `json:"lambda"`
	MinChildWeight float64 `json:"min_child_weight"`
	Features       int     `json:"n_features"`
	Trees          []*Node `json:"trees"`
}

// NewGradientBoosting returns a model with XGBoost's default hyperparameters.
func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{
		NEstimators:    100,
		LearningRate:   0.3,
		MaxDepth:       6,
		Lambda:         1,
		MinChildWeight: 1,
	}
}

// Name implements Classifier.
func (m *GradientBoosting) Name() string { return "XGBoost" }

// Fit implements Classifier.
func (m *GradientBoosting) Fit(X [][]float64, y []int) error {
	cols, err := checkFit(X, y)
	if err != nil {
		return err
	}
	defaults := NewGradientBoosting()
	if m.NEstimators <= 0 {
		m.NEstimators = defaults.NEstimators
	}
	if m.LearningRate <= 0 {
		m.LearningRate = defaults.LearningRate
	}
	if m.MaxDepth <= 0 {
		m.MaxDepth = defaults.MaxDepth
	}

	n := len(X)
	margin := make([]float64, n)
	b := &boostBuilder{
		X:        X,
		cols:     cols,
		g:        make([]float64, n),
		h:        make([]float64, n),
		maxDepth: m.MaxDepth,
		lambda:   m.Lambda,
		minChild: m.MinChildWeight,
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	m.Trees = make([]*Node, 0, m.NEstimators)
	for round := 0; round < m.NEstimators; round++ {
		for i := range margin {
			p := sigmoid(margin[i])
			b.g[i] = p - float64(y[i])
			b.h[i] = p * (1 - p)
		}
		tree := b.grow(idx, 0)
		for i, row := range X {
			margin[i] += m.LearningRate * tree.eval(row)
		}
		m.Trees = append(m.Trees, tree)
	}
	m.Features = cols
	return nil
}

func (m *GradientBoosting) featureCount() int {
	if len(m.Trees) == 0 {
		return 0
	}
	return m.Features
}

// PredictProba implements Classifier.
func (m *GradientBoosting) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		margin := 0.0
		for _, t := range m.Trees {
			margin += m.LearningRate * t.eval(row)
		}
		out[i] = sigmoid(margin)
	}
	return out
}

type boostBuilder struct {
	X        [][]float64
	cols     int
	g, h     []float64
	maxDepth int
	lambda   float64
	minChild float64
}

func (b *boostBuilder) score(g, h float64) float64 {
	return g * g / (h + b.lambda)
}

func (b *boostBuilder) grow(idx []int, depth int) *Node {
	var G, H float64
	for _, i := range idx {
		G += b.g[i]
		H += b.h[i]
	}
	leaf := &Node{Value: -G / (H + b.lambda)}
	if depth >= b.maxDepth || len(idx) < 2 {
		return leaf
	}

	parent := b.score(G, H)
	bestGain, bestFeature, bestThreshold := 0.0, -1, 0.0
	sorted := make([]int, len(idx))

	for f := 0; f < b.cols; f++ {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		var gl, hl float64
		for k := 0; k < len(sorted)-1; k++ {
			gl += b.g[sorted[k]]
			hl += b.h[sorted[k]]
			lo, hi := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			gr, hr := G-gl, H-hl
			if hl < b.minChild || hr < b.minChild {
				continue
			}
			gain := (b.score(gl, hl) + b.score(gr, hr) - parent) / 2
			if gain > bestGain {
				bestGain, bestFeature, bestThreshold = gain, f, splitPoint(lo, hi)
			}
		}
	}
	if bestFeature < 0 {
		return leaf
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][bestFeature] <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leaf
	}
	return &Node{
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Left:      b.grow(left, depth+1),
		Right:     b.grow(right, depth+1),
		Value:     leaf.Value,
	}
}
