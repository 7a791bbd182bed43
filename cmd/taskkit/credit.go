package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/taskkit/internal/ml/pipeline"
	"github.com/jonathan/taskkit/internal/observability"
)

var (
	creditData   string
	creditOutDir string
	creditRows   int
	creditTrees  int
	creditSeed   int64
)

var creditCmd = &cobra.Command{
	Use:   "credit",
	Short: "Train and compare credit-scoring classifiers",
	Long: `Train logistic regression, a decision tree and a random forest on credit data and write
metrics.csv, classification_reports.txt, roc_curves.csv, the fitted models and the scaler.
A synthetic dataset is generated and saved first when the data file does not exist.`,
	RunE: runCredit,
}

func init() {
	creditCmd.Flags().StringVar(&creditData, "data", "", "Credit CSV (default credit_data.csv in data_dir)")
	creditCmd.Flags().StringVar(&creditOutDir, "out-dir", "", "Directory for models and metrics (default .)")
	creditCmd.Flags().IntVar(&creditRows, "rows", 500, "Rows to generate when the data file is missing")
	creditCmd.Flags().IntVar(&creditTrees, "trees", 300, "Random forest size")
	creditCmd.Flags().Int64Var(&creditSeed, "seed", 0, "Random seed (default 42)")
	rootCmd.AddCommand(creditCmd)
}

func runCredit(cmd *cobra.Command, _ []string) error {
	opts := pipeline.CreditOptions{
		DataPath: dataPath(creditData, "credit_data.csv"),
		OutDir:   firstNonEmpty(creditOutDir, fileCfg.OutputDir),
		Rows:     creditRows,
		Seed:     firstNonZero(creditSeed, fileCfg.Seed),
		Trees:    creditTrees,
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	p := startProgress(cmd.ErrOrStderr(), "loading data")
	opts.OnProgress = progressUpdater(p)
	results, err := pipeline.RunCredit(ctx, opts, logger, cmd.OutOrStdout())
	p.Stop()
	if err != nil {
		return err
	}
	if isVerbose() {
		observability.NewPrinter(cmd.OutOrStdout()).PrintModelScores(results)
	}
	return nil
}

// progressUpdater feeds pipeline events into the spinner suffix.
func progressUpdater(p *progress) pipeline.ProgressCallback {
	return func(e pipeline.ProgressEvent) {
		msg := e.Message
		if e.Model != "" {
			msg = fmt.Sprintf("%s: %s", e.Model, e.Message)
		}
		p.Update(msg)
	}
}

// dataPath resolves a dataset flag, falling back to name inside the configured data_dir.
func dataPath(flag, name string) string {
	if flag != "" {
		return flag
	}
	if fileCfg.DataDir != "" {
		return filepath.Join(fileCfg.DataDir, name)
	}
	return name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int64) int64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
