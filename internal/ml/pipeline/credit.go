package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/taskkit/internal/ml/dataset"
	"github.com/jonathan/taskkit/internal/ml/models"
)

// CreditOptions configures RunCredit. Zero values take the defaults below.
type CreditOptions struct {
	DataPath   string // default credit_data.csv
	OutDir     string // default current directory
	Rows       int    // rows generated when DataPath is missing, default 500
	Seed       int64  // default 42
	TestSize   float64
	Trees      int // random forest size, default 300
	OnProgress ProgressCallback
}

func (o *CreditOptions) normalize() {
	if o.DataPath == "" {
		o.DataPath = "credit_data.csv"
	}
	if o.OutDir == "" {
		o.OutDir = "."
	}
	if o.Rows <= 0 {
		o.Rows = 500
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
	if o.TestSize <= 0 {
		o.TestSize = 0.2
	}
	if o.Trees <= 0 {
		o.Trees = 300
	}
}

// CreditModels are the credit-scoring models in report order.
func CreditModels(seed int64, trees int) []ModelSpec {
	return []ModelSpec{
		{Name: "LogisticRegression", Scaled: true, New: func() models.Classifier { return models.NewLogisticRegression(1000) }},
		{Name: "DecisionTree", New: func() models.Classifier { return models.NewDecisionTree(seed) }},
		{Name: "RandomForest", New: func() models.Classifier { return models.NewRandomForest(trees, seed) }},
	}
}

// CreditOutputs are the files RunCredit writes, relative to OutDir.
var CreditOutputs = []string{"metrics.csv", "classification_reports.txt", "roc_curves.csv", "model_*.json", "scaler.json"}

// RunCredit trains the credit-scoring models and writes metrics, reports,
// ROC points, fitted models and the scaler. Missing data is generated and saved.
func RunCredit(ctx context.Context, opts CreditOptions, logger *zap.Logger, out io.Writer) ([]ModelResult, error) {
	opts.normalize()

	emitProgress(opts.OnProgress, "load", "", opts.DataPath)
	ds, err := dataset.LoadCSV(opts.DataPath, dataset.CreditTarget)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("generating credit data", zap.String("path", opts.DataPath), zap.Int("rows", opts.Rows))
		ds = dataset.GenerateCredit(opts.Rows, opts.Seed)
		if err := ds.SaveCSV(opts.DataPath); err != nil {
			return nil, fmt.Errorf("failed to save generated data: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	raw, scaled, scaler, err := prepare(ds, opts.TestSize, opts.Seed)
	if err != nil {
		return nil, err
	}

	results, err := TrainAll(ctx, CreditModels(opts.Seed, opts.Trees), raw, scaled, logger, opts.OnProgress)
	if err != nil {
		return nil, err
	}

	emitProgress(opts.OnProgress, "write", "", opts.OutDir)
	path := func(name string) string { return filepath.Join(opts.OutDir, name) }
	for _, r := range results {
		if err := models.Save(path("model_"+strings.ToLower(r.Name)+".json"), r.Model); err != nil {
			return nil, fmt.Errorf("failed to save %s: %w", r.Name, err)
		}
	}
	if err := scaler.Save(path("scaler.json")); err != nil {
		return nil, fmt.Errorf("failed to save scaler: %w", err)
	}
	if err := writeMetrics(path("metrics.csv"), results); err != nil {
		return nil, fmt.Errorf("failed to write metrics: %w", err)
	}
	if err := writeReports(path("classification_reports.txt"), results); err != nil {
		return nil, fmt.Errorf("failed to write reports: %w", err)
	}
	if err := writeROC(path("roc_curves.csv"), results); err != nil {
		return nil, fmt.Errorf("failed to write ROC curves: %w", err)
	}

	_, err = fmt.Fprintf(out, "Done. Files saved: %s, %s\n", opts.DataPath, strings.Join(CreditOutputs, ", "))
	return results, err
}
