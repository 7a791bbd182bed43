// Package observability provides boxed summaries printed in verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/taskkit/internal/ml/digits"
	"github.com/jonathan/taskkit/internal/ml/pipeline"
	"github.com/jonathan/taskkit/internal/scraper"
)

const (
	// boxWidth is the outer width of a box in columns
	boxWidth = 60
	// maxItemsToShow caps list sections
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to width runes, marking the cut with "...".
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", inner, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", inner, truncate(line, inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintModelScores outputs held-out scores per model, best ROC-AUC first.
func (p *Printer) PrintModelScores(results []pipeline.ModelResult) {
	if len(results) == 0 {
		return
	}

	ranked := make([]pipeline.ModelResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].ROCAUC > ranked[j].ROCAUC })

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-20s %6s %6s %6s %6s %6s\n", "Model", "Acc", "Prec", "Rec", "F1", "AUC"))
	for _, r := range ranked {
		sb.WriteString(fmt.Sprintf("%-20s %6.3f %6.3f %6.3f %6.3f %6.3f\n",
			truncate(r.Name, 20), r.Accuracy, r.Precision, r.Recall, r.F1, r.ROCAUC))
	}
	sb.WriteString(fmt.Sprintf("\nBest: %s", ranked[0].Name))

	p.printBox("MODEL SCORES", sb.String())
}

// PrintScrapeSummary outputs the product count, price range and the priciest items.
func (p *Printer) PrintScrapeSummary(query string, a scraper.Analysis) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Query:    %s\n", query))
	sb.WriteString(fmt.Sprintf("Products: %d (%d unique)\n", a.Total, a.UniqueNames))
	if a.Price.Count > 0 {
		sb.WriteString(fmt.Sprintf("Prices:   %.2f - %.2f (mean %.2f)\n", a.Price.Min, a.Price.Max, a.Price.Mean))
	} else {
		sb.WriteString("Prices:   none parsed\n")
	}
	if a.Rating.Count > 0 {
		sb.WriteString(fmt.Sprintf("Ratings:  mean %.2f over %d products\n", a.Rating.Mean, a.Rating.Count))
	}

	if len(a.TopPriced) > 0 {
		sb.WriteString("\nMost expensive:\n")
		count := min(len(a.TopPriced), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", truncate(a.TopPriced[i].Name, 40)))
		}
		if len(a.TopPriced) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(a.TopPriced)-maxItemsToShow))
		}
	}

	p.printBox("SCRAPE SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTrainingHistory outputs per-epoch loss and accuracy for the digit network.
func (p *Printer) PrintTrainingHistory(history []digits.EpochStats) {
	if len(history) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-6s %8s %8s %8s %8s\n", "Epoch", "Loss", "Acc", "ValLoss", "ValAcc"))
	for _, s := range history {
		sb.WriteString(fmt.Sprintf("%-6d %8.4f %8.4f %8.4f %8.4f\n", s.Epoch, s.Loss, s.Accuracy, s.ValLoss, s.ValAccuracy))
	}
	last := history[len(history)-1]
	sb.WriteString(fmt.Sprintf("\nFinal validation accuracy: %.2f%%", last.ValAccuracy*100))

	p.printBox("TRAINING HISTORY", sb.String())
}
