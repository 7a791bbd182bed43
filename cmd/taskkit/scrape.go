package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/taskkit/internal/config"
	"github.com/jonathan/taskkit/internal/observability"
	"github.com/jonathan/taskkit/internal/schemas"
	"github.com/jonathan/taskkit/internal/scraper"
)

var (
	scrapeQuery      string
	scrapePages      int
	scrapeLayout     string
	scrapeOutput     string
	scrapeBaseURL    string
	scrapeUseBrowser bool
	scrapeAnalyze    bool
	scrapeMinDelay   time.Duration
	scrapeMaxDelay   time.Duration
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape product search results to CSV or JSON",
	Long: `Fetch search result pages for a query, extract product name, price, rating and link,
and save them. Output ending in .json is written as JSON and validated against the product
schema; anything else is written as CSV.`,
	RunE: runScrape,
}

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeQuery, "query", "q", "", "Search query (default \"laptop\")")
	scrapeCmd.Flags().IntVarP(&scrapePages, "pages", "p", 0, "Number of result pages (default 2)")
	scrapeCmd.Flags().StringVar(&scrapeLayout, "layout", "", "Result layout: search-result or result-item (default search-result)")
	scrapeCmd.Flags().StringVarP(&scrapeOutput, "out", "o", "", "Output file (default amazon_products.csv)")
	scrapeCmd.Flags().StringVar(&scrapeBaseURL, "base-url", scraper.DefaultBaseURL, "Storefront base URL")
	scrapeCmd.Flags().BoolVar(&scrapeUseBrowser, "browser", false, "Fall back to headless Chrome when a page fails or has no items")
	scrapeCmd.Flags().BoolVar(&scrapeAnalyze, "analyze", false, "Print the analysis report after saving")
	scrapeCmd.Flags().DurationVar(&scrapeMinDelay, "min-delay", scraper.DefaultMinDelay, "Minimum pause between pages")
	scrapeCmd.Flags().DurationVar(&scrapeMaxDelay, "max-delay", scraper.DefaultMaxDelay, "Maximum pause between pages")
	rootCmd.AddCommand(scrapeCmd)
}

func scrapeSettings() (config.Config, error) {
	flags := config.Config{
		Query:      scrapeQuery,
		Pages:      scrapePages,
		Layout:     scrapeLayout,
		Output:     scrapeOutput,
		UseBrowser: scrapeUseBrowser,
	}
	cfg := flags.MergeWithDefaults(fileCfg)
	cfg = cfg.MergeWithDefaults(config.Config{Query: "laptop", Pages: 2, Output: "amazon_products.csv"})
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if cfg.Pages < 1 {
		return cfg, fmt.Errorf("--pages must be at least 1")
	}
	if scrapeMinDelay < 0 || scrapeMaxDelay < scrapeMinDelay {
		return cfg, fmt.Errorf("delays must satisfy 0 <= --min-delay <= --max-delay")
	}
	return cfg, nil
}

//nolint:errcheck // console output
func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, err := scrapeSettings()
	if err != nil {
		return err
	}
	layout, err := scraper.ParseLayout(cfg.Layout)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	ctx, stop := signalContext(cmd)
	defer stop()

	s := scraper.New(layout, logger)
	s.BaseURL = strings.TrimRight(scrapeBaseURL, "/")
	s.MinDelay, s.MaxDelay = scrapeMinDelay, scrapeMaxDelay
	if cfg.UseBrowser {
		s.Fallback = scraper.BrowserFetcher{Timeout: 60 * time.Second, Logger: logger}
	}

	p := startProgress(cmd.ErrOrStderr(), "starting")
	s.OnPage = func(page int, pageURL string) {
		p.Update(fmt.Sprintf("page %d/%d", page, cfg.Pages))
		fmt.Fprintf(out, "Scraping page %d: %s\n", page, pageURL)
	}
	products, err := s.Search(ctx, cfg.Query, cfg.Pages)
	p.Stop()
	if err != nil {
		if len(products) == 0 {
			return err
		}
		logger.Warn("scrape stopped early, saving partial results", zap.Error(err))
	}
	logger.Info("scrape finished", zap.String("query", cfg.Query), zap.Int("products", len(products)))

	if err := saveProducts(cfg.Output, products); err != nil {
		return err
	}
	fmt.Fprintf(out, "Data saved to %s (%d products)\n", cfg.Output, len(products))

	if scrapeAnalyze || isVerbose() {
		analysis := scraper.Analyze(products)
		fmt.Fprintln(out)
		if isVerbose() {
			observability.NewPrinter(out).PrintScrapeSummary(cfg.Query, analysis)
		}
		if scrapeAnalyze {
			analysis.Report(out)
		}
	}
	return nil
}

// saveProducts writes JSON for .json paths, CSV otherwise.
func saveProducts(path string, products []scraper.Product) error {
	var buf bytes.Buffer
	if isJSON(path) {
		if err := scraper.WriteJSON(&buf, products); err != nil {
			return err
		}
		if err := schemas.ValidateProducts(buf.Bytes()); err != nil {
			return fmt.Errorf("scraped products failed validation: %w", err)
		}
	} else if err := scraper.WriteCSV(&buf, products); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// loadProducts reads a CSV or JSON product file; JSON is schema-checked first.
func loadProducts(path string) ([]scraper.Product, error) {
	if isJSON(path) {
		if err := schemas.ValidateProductsFile(path); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return scraper.ReadJSON(data)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return scraper.ReadCSV(f)
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
