// Package metrics scores binary classifiers: confusion matrices, precision
// and recall, ROC curves and text classification reports.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrSingleClass is returned when a ROC AUC is requested for labels of one class.
var ErrSingleClass = errors.New("ROC AUC is undefined when only one class is present")

// Confusion counts predictions per (true, predicted) label pair.
type Confusion struct {
	Labels []int
	Counts [][]int
}

// NewConfusion builds the matrix over the sorted union of labels.
func NewConfusion(yTrue, yPred []int) Confusion {
	labels := unionLabels(yTrue, yPred)
	pos := make(map[int]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}
	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		counts[pos[yTrue[i]]][pos[yPred[i]]]++
	}
	return Confusion{Labels: labels, Counts: counts}
}

// String renders the matrix in the bracketed row style of a numpy array.
func (c Confusion) String() string {
	width := 1
	for _, row := range c.Counts {
		for _, v := range row {
			width = max(width, len(strconv.Itoa(v)))
		}
	}

	var sb strings.Builder
	sb.WriteString("[")
	for i, row := range c.Counts {
		if i > 0 {
			sb.WriteString("\n ")
		}
		sb.WriteString("[")
		for j, v := range row {
			if j > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "%*d", width, v)
		}
		sb.WriteString("]")
	}
	sb.WriteString("]")
	return sb.String()
}

func unionLabels(a, b []int) []int {
	seen := make(map[int]bool)
	var labels []int
	for _, s := range [][]int{a, b} {
		for _, v := range s {
			if !seen[v] {
				seen[v] = true
				labels = append(labels, v)
			}
		}
	}
	sort.Ints(labels)
	return labels
}

// Accuracy is the fraction of matching predictions.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

type counts struct{ tp, fp, fn int }

func countFor(label int, yTrue, yPred []int) counts {
	var c counts
	for i := range yTrue {
		switch {
		case yPred[i] == label && yTrue[i] == label:
			c.tp++
		case yPred[i] == label:
			c.fp++
		case yTrue[i] == label:
			c.fn++
		}
	}
	return c
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func f1(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Precision for the positive class 1; zero when nothing is predicted positive.
func Precision(yTrue, yPred []int) float64 {
	c := countFor(1, yTrue, yPred)
	return ratio(c.tp, c.tp+c.fp)
}

// Recall for the positive class 1; zero when there are no positives.
func Recall(yTrue, yPred []int) float64 {
	c := countFor(1, yTrue, yPred)
	return ratio(c.tp, c.tp+c.fn)
}

// F1 is the harmonic mean of Precision and Recall.
func F1(yTrue, yPred []int) float64 {
	return f1(Precision(yTrue, yPred), Recall(yTrue, yPred))
}

// ROC is a receiver operating characteristic curve. Points are ordered by
// decreasing threshold and start at (0, 0) with an infinite threshold.
type ROC struct {
	FPR        []float64
	TPR        []float64
	Thresholds []float64
}

// ROCCurve computes one point per distinct score.
func ROCCurve(yTrue []int, scores []float64) ROC {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	var pos, neg int
	for _, y := range yTrue {
		if y == 1 {
			pos++
		} else {
			neg++
		}
	}

	roc := ROC{FPR: []float64{0}, TPR: []float64{0}, Thresholds: []float64{math.Inf(1)}}
	var tp, fp int
	for k, i := range idx {
		if yTrue[i] == 1 {
			tp++
		} else {
			fp++
		}
		if k+1 < len(idx) && scores[idx[k+1]] == scores[i] {
			continue
		}
		roc.FPR = append(roc.FPR, ratio(fp, neg))
		roc.TPR = append(roc.TPR, ratio(tp, pos))
		roc.Thresholds = append(roc.Thresholds, scores[i])
	}
	return roc
}

// AUC integrates y over x with the trapezoid rule.
func AUC(x, y []float64) float64 {
	area := 0.0
	for i := 1; i < len(x); i++ {
		area += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	return area
}

// ROCAUC is the area under the ROC curve of scores.
func ROCAUC(yTrue []int, scores []float64) (float64, error) {
	if len(unionLabels(yTrue, nil)) < 2 {
		return 0, ErrSingleClass
	}
	roc := ROCCurve(yTrue, scores)
	return AUC(roc.FPR, roc.TPR), nil
}
