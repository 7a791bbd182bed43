// Package pipeline runs the credit-scoring and disease-prediction training
// programs: load data, split, scale, train models concurrently, report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/taskkit/internal/ml/dataset"
	"github.com/jonathan/taskkit/internal/ml/metrics"
	"github.com/jonathan/taskkit/internal/ml/models"
)

// ProgressEvent reports one pipeline step.
type ProgressEvent struct {
	Step    string
	Model   string
	Message string
}

// ProgressCallback is called as the pipeline advances.
type ProgressCallback func(event ProgressEvent)

func emitProgress(cb ProgressCallback, step, model, message string) {
	if cb != nil {
		cb(ProgressEvent{Step: step, Model: model, Message: message})
	}
}

// ModelSpec names a model and whether it trains on scaled features.
type ModelSpec struct {
	Name   string
	New    func() models.Classifier
	Scaled bool
}

// Split is a train/test partition of one feature representation.
type Split struct {
	TrainX [][]float64
	TrainY []int
	TestX  [][]float64
	TestY  []int
}

// ModelResult is a fitted model with its held-out scores.
type ModelResult struct {
	Name        string
	Model       models.Classifier
	Predictions []int
	Proba       []float64
	Accuracy    float64
	Precision   float64
	Recall      float64
	F1          float64
	ROCAUC      float64
	Confusion   metrics.Confusion
	Report      string
	ROC         metrics.ROC
}

// prepare splits ds and scales a copy of it with a scaler fitted on the
// training rows.
func prepare(ds *dataset.Dataset, testSize float64, seed int64) (raw, scaled Split, scaler *dataset.StandardScaler, err error) {
	train, test, err := dataset.TrainTestSplit(ds, testSize, seed, true)
	if err != nil {
		return raw, scaled, nil, fmt.Errorf("failed to split dataset: %w", err)
	}
	raw = Split{TrainX: train.X, TrainY: train.Y, TestX: test.X, TestY: test.Y}

	scaler = &dataset.StandardScaler{}
	scaled = Split{TrainY: train.Y, TestY: test.Y}
	if scaled.TrainX, err = scaler.FitTransform(train.X); err != nil {
		return raw, scaled, nil, fmt.Errorf("failed to scale training data: %w", err)
	}
	if scaled.TestX, err = scaler.Transform(test.X); err != nil {
		return raw, scaled, nil, fmt.Errorf("failed to scale test data: %w", err)
	}
	return raw, scaled, scaler, nil
}

// TrainAll fits every model concurrently and returns results in the order of specs.
func TrainAll(ctx context.Context, specs []ModelSpec, raw, scaled Split, logger *zap.Logger, onProgress ProgressCallback) ([]ModelResult, error) {
	results := make([]ModelResult, len(specs))
	g, gCtx := errgroup.WithContext(ctx)

	for i, spec := range specs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			data := raw
			if spec.Scaled {
				data = scaled
			}

			emitProgress(onProgress, "train", spec.Name, "training")
			start := time.Now()
			result, err := evaluate(spec, data)
			if err != nil {
				return fmt.Errorf("%s: %w", spec.Name, err)
			}
			logger.Info("model trained",
				zap.String("model", spec.Name),
				zap.Bool("scaled", spec.Scaled),
				zap.Duration("elapsed", time.Since(start)),
				zap.Float64("roc_auc", result.ROCAUC))
			emitProgress(onProgress, "train", spec.Name, "done")

			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func evaluate(spec ModelSpec, data Split) (ModelResult, error) {
	model := spec.New()
	if err := model.Fit(data.TrainX, data.TrainY); err != nil {
		return ModelResult{}, fmt.Errorf("failed to fit: %w", err)
	}

	pred, err := models.Predict(model, data.TestX)
	if err != nil {
		return ModelResult{}, err
	}
	proba := model.PredictProba(data.TestX)
	auc, err := metrics.ROCAUC(data.TestY, proba)
	if err != nil {
		return ModelResult{}, err
	}

	return ModelResult{
		Name:        spec.Name,
		Model:       model,
		Predictions: pred,
		Proba:       proba,
		Accuracy:    metrics.Accuracy(data.TestY, pred),
		Precision:   metrics.Precision(data.TestY, pred),
		Recall:      metrics.Recall(data.TestY, pred),
		F1:          metrics.F1(data.TestY, pred),
		ROCAUC:      auc,
		Confusion:   metrics.NewConfusion(data.TestY, pred),
		Report:      metrics.ClassificationReport(data.TestY, pred),
		ROC:         metrics.ROCCurve(data.TestY, proba),
	}, nil
}
