package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/taskkit/internal/scraper"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Summarise a scraped product file",
	Long: `Read a product CSV or JSON file (default amazon_products.csv) and print price and rating
statistics, a price histogram and the most expensive products.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := fileCfg.Output
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		path = "amazon_products.csv"
	}

	products, err := loadProducts(path)
	if err != nil {
		return err
	}
	logger.Debug("products loaded", zap.String("path", path), zap.Int("count", len(products)))

	scraper.Analyze(products).Report(cmd.OutOrStdout())
	return nil
}
