package models

import (
	"math"
	"math/rand"
	"sort"
)

// Node is a binary decision tree node. Leaves carry Value: a positive-class
// probability in classification trees, an additive score in boosted trees.
type Node struct {
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      *Node   `json:"left,omitempty"`
	Right     *Node   `json:"right,omitempty"`
	Value     float64 `json:"value"`
}

// Leaf reports whether n has no children.
func (n *Node) Leaf() bool { return n.Left == nil }

func (n *Node) eval(x []float64) float64 {
	for !n.Leaf() {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// Depth is the number of edges on the longest root-to-leaf path.
func (n *Node) Depth() int {
	if n == nil || n.Leaf() {
		return 0
	}
	return 1 + max(n.Left.Depth(), n.Right.Depth())
}

// DecisionTree is a CART classifier using Gini impurity.
// MaxDepth 0 grows until leaves are pure; MaxFeatures 0 considers every feature.
type DecisionTree struct {
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MaxFeatures     int   `json:"max_features"`
	Seed            int64 `json:"seed"`
	Features        int   `json:"n_features"`
	Root            *Node `json:"root"`
}

// NewDecisionTree returns an unbounded tree seeded for reproducible tie-breaking.
func NewDecisionTree(seed int64) *DecisionTree {
	return &DecisionTree{MinSamplesSplit: 2, Seed: seed}
}

// Name implements Classifier.
func (t *DecisionTree) Name() string { return "DecisionTree" }

// Fit implements Classifier.
func (t *DecisionTree) Fit(X [][]float64, y []int) error {
	cols, err := checkFit(X, y)
	if err != nil {
		return err
	}
	if t.MinSamplesSplit < 2 {
		t.MinSamplesSplit = 2
	}

	b := &treeBuilder{
		X:           X,
		y:           y,
		cols:        cols,
		maxDepth:    t.MaxDepth,
		minSplit:    t.MinSamplesSplit,
		maxFeatures: t.MaxFeatures,
		rng:         rand.New(rand.NewSource(t.Seed)),
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.Root = b.grow(idx, 0)
	t.Features = cols
	return nil
}

func (t *DecisionTree) featureCount() int {
	if t.Root == nil {
		return 0
	}
	return t.Features
}

// PredictProba implements Classifier.
func (t *DecisionTree) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		if t.Root == nil {
			out[i] = 0.5
			continue
		}
		out[i] = t.Root.eval(row)
	}
	return out
}

type treeBuilder struct {
	X           [][]float64
	y           []int
	cols        int
	maxDepth    int
	minSplit    int
	maxFeatures int
	rng         *rand.Rand
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}

// candidates returns the features to try at one node, in random order.
func (b *treeBuilder) candidates() []int {
	perm := b.rng.Perm(b.cols)
	if b.maxFeatures > 0 && b.maxFeatures < b.cols {
		return perm[:b.maxFeatures]
	}
	return perm
}

func (b *treeBuilder) grow(idx []int, depth int) *Node {
	pos := 0
	for _, i := range idx {
		pos += b.y[i]
	}
	leaf := &Node{Value: float64(pos) / float64(len(idx))}
	if pos == 0 || pos == len(idx) || len(idx) < b.minSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return leaf
	}

	bestFeature, bestThreshold := -1, 0.0
	bestImpurity := math.Inf(1)
	sorted := make([]int, len(idx))
	total := len(idx)

	for _, f := range b.candidates() {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		leftPos := 0
		for k := 0; k < total-1; k++ {
			leftPos += b.y[sorted[k]]
			lo, hi := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			nl, nr := k+1, total-k-1
			impurity := (float64(nl)*gini(leftPos, nl) + float64(nr)*gini(pos-leftPos, nr)) / float64(total)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = f
				bestThreshold = splitPoint(lo, hi)
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

// splitPoint returns the midpoint of lo and hi, or lo when the two are
// adjacent floats and the midpoint rounds up to hi.
func splitPoint(lo, hi float64) float64 {
	thr := lo + (hi-lo)/2
	if thr >= hi || math.IsInf(thr, 0) {
		return lo
	}
	return thr
}
