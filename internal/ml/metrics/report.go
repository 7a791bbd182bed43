package metrics

import (
	"fmt"
	"strconv"
	"strings"
)

// ClassScore is one row of a classification report.
type ClassScore struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report holds per-class scores and their averages.
type Report struct {
	Classes     []ClassScore
	Accuracy    float64
	MacroAvg    ClassScore
	WeightedAvg ClassScore
}

// NewReport scores every label seen in yTrue or yPred.
func NewReport(yTrue, yPred []int) Report {
	var r Report
	total := len(yTrue)
	for _, label := range unionLabels(yTrue, yPred) {
		c := countFor(label, yTrue, yPred)
		p, rec := ratio(c.tp, c.tp+c.fp), ratio(c.tp, c.tp+c.fn)
		r.Classes = append(r.Classes, ClassScore{
			Label:     strconv.Itoa(label),
			Precision: p,
			Recall:    rec,
			F1:        f1(p, rec),
			Support:   c.tp + c.fn,
		})
	}

	r.Accuracy = Accuracy(yTrue, yPred)
	r.MacroAvg = ClassScore{Label: "macro avg", Support: total}
	r.WeightedAvg = ClassScore{Label: "weighted avg", Support: total}
	n := float64(len(r.Classes))
	for _, c := range r.Classes {
		r.MacroAvg.Precision += c.Precision / n
		r.MacroAvg.Recall += c.Recall / n
		r.MacroAvg.F1 += c.F1 / n
		if total > 0 {
			w := float64(c.Support) / float64(total)
			r.WeightedAvg.Precision += c.Precision * w
			r.WeightedAvg.Recall += c.Recall * w
			r.WeightedAvg.F1 += c.F1 * w
		}
	}
	return r
}

// String lays the report out in aligned columns with two decimals.
func (r Report) String() string {
	width := len(r.WeightedAvg.Label)
	for _, c := range r.Classes {
		width = max(width, len(c.Label))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	row := func(c ClassScore) {
		fmt.Fprintf(&sb, "%*s  %9.2f %9.2f %9.2f %9d\n", width, c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	for _, c := range r.Classes {
		row(c)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%*s  %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.MacroAvg.Support)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return sb.String()
}

// ClassificationReport is NewReport(yTrue, yPred).String().
func ClassificationReport(yTrue, yPred []int) string {
	return NewReport(yTrue, yPred).String()
}
