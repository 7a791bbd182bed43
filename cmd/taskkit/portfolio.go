package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/taskkit/internal/console"
	"github.com/jonathan/taskkit/internal/portfolio"
)

var portfolioOut string

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Total a stock portfolio from typed holdings",
	Long: `Prompt for stock symbols and share counts until "done", print each holding and the
total investment, and save the same report to a text file.`,
	RunE: runPortfolio,
}

func init() {
	portfolioCmd.Flags().StringVarP(&portfolioOut, "out", "o", "portfolio.txt", "Report file")
	rootCmd.AddCommand(portfolioCmd)
}

func runPortfolio(cmd *cobra.Command, _ []string) error {
	c := console.New(cmd.InOrStdin(), cmd.OutOrStdout())
	t := portfolio.NewTracker(nil)
	if err := portfolio.Run(c, t); err != nil {
		return err
	}
	if err := t.SaveReport(portfolioOut); err != nil {
		return err
	}
	c.Success("\nPortfolio saved to %s", portfolioOut)
	logger.Debug("portfolio saved", zap.String("path", portfolioOut), zap.Int("total", t.Total()))
	return nil
}
