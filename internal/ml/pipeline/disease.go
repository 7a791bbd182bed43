package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jonathan/taskkit/internal/ml/dataset"
	"github.com/jonathan/taskkit/internal/ml/models"
)

// DiseaseOptions configures RunDisease.
type DiseaseOptions struct {
	DataPath   string // empty uses dataset.GenerateDiagnostic
	Target     string // default "target"
	OutDir     string // default current directory
	Seed       int64  // default 42
	TestSize   float64
	OnProgress ProgressCallback
}

func (o *DiseaseOptions) normalize() {
	if o.Target == "" {
		o.Target = "target"
	}
	if o.OutDir == "" {
		o.OutDir = "."
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
	if o.TestSize <= 0 {
		o.TestSize = 0.2
	}
}

// DiseaseModels are the disease-prediction models in report order.
func DiseaseModels(seed int64) []ModelSpec {
	return []ModelSpec{
		{Name: "Logistic Regression", Scaled: true, New: func() models.Classifier { return models.NewLogisticRegression(500) }},
		{Name: "Random Forest", New: func() models.Classifier { return models.NewRandomForest(100, seed) }},
		{Name: "SVM", Scaled: true, New: func() models.Classifier { return models.NewLinearSVM(seed) }},
		{Name: "XGBoost", Scaled: true, New: func() models.Classifier { return models.NewGradientBoosting() }},
	}
}

// RunDisease trains the disease-prediction models on a labelled CSV, or on
// generated Wisconsin-style diagnostic data when no path is given, and prints a confusion matrix, classification report and ROC AUC per model.
// ROC points are written to roc_points.csv in OutDir.
//
//nolint:errcheck // console output
func RunDisease(ctx context.Context, opts DiseaseOptions, logger *zap.Logger, out io.Writer) ([]ModelResult, error) {
	opts.normalize()

	ds, err := loadDiseaseData(opts, logger)
	if err != nil {
		return nil, err
	}
	emitProgress(opts.OnProgress, "load", "", fmt.Sprintf("%d rows", ds.Len()))
	logger.Debug("dataset loaded", zap.Int("rows", ds.Len()), zap.Int("features", ds.NumFeatures()))

	fmt.Fprintf(out, "Dataset Shape: (%d, %d)\n", ds.Len(), ds.NumFeatures())
	fmt.Fprintln(out, "Target distribution:")
	for _, c := range ds.ClassCounts() {
		fmt.Fprintf(out, "%d    %d\n", c.Label, c.Count)
	}

	raw, scaled, _, err := prepare(ds, opts.TestSize, opts.Seed)
	if err != nil {
		return nil, err
	}
	results, err := TrainAll(ctx, DiseaseModels(opts.Seed), raw, scaled, logger, opts.OnProgress)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		fmt.Fprintf(out, "\n===== %s =====\n", r.Name)
		fmt.Fprintf(out, "Confusion Matrix:\n%s\n", r.Confusion)
		fmt.Fprintf(out, "Classification Report:\n%s\n", r.Report)
		fmt.Fprintf(out, "ROC-AUC Score: %.4f\n", r.ROCAUC)
	}

	rocPath := filepath.Join(opts.OutDir, "roc_points.csv")
	if err := writeROC(rocPath, results); err != nil {
		return nil, fmt.Errorf("failed to write ROC points: %w", err)
	}
	fmt.Fprintf(out, "\nROC points saved to %s\n", rocPath)
	return results, nil
}

func loadDiseaseData(opts DiseaseOptions, logger *zap.Logger) (*dataset.Dataset, error) {
	if opts.DataPath == "" {
		logger.Info("no dataset given, using generated diagnostic data", zap.Int64("seed", opts.Seed))
		return dataset.GenerateDiagnostic(opts.Seed), nil
	}
	return dataset.LoadCSV(opts.DataPath, opts.Target)
}
