package pipeline

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeCSVFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// writeMetrics writes one row per model, best ROC AUC first.
func writeMetrics(path string, results []ModelResult) error {
	sorted := append([]ModelResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ROCAUC > sorted[j].ROCAUC })

	rows := make([][]string, 0, len(sorted))
	for _, r := range sorted {
		rows = append(rows, []string{
			r.Name,
			formatFloat(r.Accuracy),
			formatFloat(r.Precision),
			formatFloat(r.Recall),
			formatFloat(r.F1),
			formatFloat(r.ROCAUC),
		})
	}
	return writeCSVFile(path, []string{"model", "accuracy", "precision", "recall", "f1_score", "roc_auc"}, rows)
}

// writeROC writes every curve point as model,fpr,tpr,threshold.
func writeROC(path string, results []ModelResult) error {
	var rows [][]string
	for _, r := range results {
		for i := range r.ROC.FPR {
			rows = append(rows, []string{
				r.Name,
				formatFloat(r.ROC.FPR[i]),
				formatFloat(r.ROC.TPR[i]),
				formatFloat(r.ROC.Thresholds[i]),
			})
		}
	}
	return writeCSVFile(path, []string{"model", "fpr", "tpr", "threshold"}, rows)
}

// writeReports writes each model's classification report under a heading.
func writeReports(path string, results []ModelResult) error {
	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "=== %s ===\n%s\n\n", r.Name, r.Report)
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}
