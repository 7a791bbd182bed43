package scraper

import (
	"context"
	"math/rand"
	"net/url"
	"strconv"
	"time"

	"github.com/jonathan/taskkit/internal/fetch"
	"go.uber.org/zap"
)

// DefaultBaseURL is the storefront searched when none is configured.
const DefaultBaseURL = "https://www.amazon.in"

// Default pause between pages, inclusive on both ends.
const (
	DefaultMinDelay = 2 * time.Second
	DefaultMaxDelay = 5 * time.Second
)

// PageFetcher returns the HTML for a results page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// HTTPFetcher fetches pages with plain HTTP.
type HTTPFetcher struct {
	Options *fetch.Options
}

// Fetch implements PageFetcher.
func (f HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	result, err := fetch.URL(ctx, pageURL, f.Options)
	if err != nil {
		return "", err
	}
	return result.HTML, nil
}

// BrowserFetcher renders pages with headless Chrome.
type BrowserFetcher struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// Fetch implements PageFetcher.
func (f BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	return fetch.WithBrowser(ctx, pageURL, f.Timeout, f.Logger)
}

// Scraper walks search result pages for a query.
type Scraper struct {
	BaseURL  string
	Layout   Layout
	MinDelay time.Duration
	MaxDelay time.Duration

	Fetcher  PageFetcher
	Fallback PageFetcher // used when Fetcher fails or a page has no items; nil disables

	// OnPage is called before each page is fetched.
	OnPage func(page int, pageURL string)

	logger *zap.Logger
	rand   *rand.Rand
}

// New returns a scraper with the default storefront, delays and HTTP fetcher.
func New(layout Layout, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		BaseURL:  DefaultBaseURL,
		Layout:   layout,
		MinDelay: DefaultMinDelay,
		MaxDelay: DefaultMaxDelay,
		Fetcher:  HTTPFetcher{Options: fetch.DefaultOptions()},
		logger:   logger,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// PageURL builds the search URL for one results page.
func (s *Scraper) PageURL(query string, page int) (string, error) {
	return fetch.BuildURL(s.BaseURL+"/s", url.Values{
		"k":    {query},
		"page": {strconv.Itoa(page)},
	})
}

// Search scrapes pages 1..pages for query. Pages that fail to load are logged
// and skipped. Returns what was collected when ctx is cancelled.
func (s *Scraper) Search(ctx context.Context, query string, pages int) ([]Product, error) {
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.rand == nil {
		s.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.Fetcher == nil {
		s.Fetcher = HTTPFetcher{Options: fetch.DefaultOptions()}
	}

	all := make([]Product, 0)

	for page := 1; page <= pages; page++ {
		if page > 1 {
			if err := s.pause(ctx); err != nil {
				return all, err
			}
		}

		pageURL, err := s.PageURL(query, page)
		if err != nil {
			return all, err
		}

		s.logger.Info("Scraping page", zap.Int("page", page), zap.String("url", pageURL))
		if s.OnPage != nil {
			s.OnPage(page, pageURL)
		}

		products, err := s.scrapePage(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			s.logger.Warn("Failed to fetch page", zap.Int("page", page), zap.Error(err))
			continue
		}

		s.logger.Debug("Parsed page", zap.Int("page", page), zap.Int("products", len(products)))
		all = append(all, products...)
	}

	return all, nil
}

func (s *Scraper) scrapePage(ctx context.Context, pageURL string) ([]Product, error) {
	html, err := s.Fetcher.Fetch(ctx, pageURL)
	if err == nil {
		var products []Product
		products, err = Parse(s.Layout, html, s.BaseURL)
		if err == nil && (len(products) > 0 || s.Fallback == nil) {
			return products, nil
		}
	}

	if s.Fallback == nil {
		return nil, err
	}

	s.logger.Debug("Falling back to browser rendering", zap.String("url", pageURL))
	html, ferr := s.Fallback.Fetch(ctx, pageURL)
	if ferr != nil {
		return nil, ferr
	}
	return Parse(s.Layout, html, s.BaseURL)
}

// pause sleeps for a random whole-second delay in [MinDelay, MaxDelay].
func (s *Scraper) pause(ctx context.Context) error {
	d := s.delay()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Scraper) delay() time.Duration {
	if s.MaxDelay <= s.MinDelay {
		return s.MinDelay
	}
	lo := int64(s.MinDelay / time.Second)
	hi := int64(s.MaxDelay / time.Second)
	if hi <= lo {
		return s.MinDelay
	}
	return time.Duration(lo+s.rand.Int63n(hi-lo+1)) * time.Second
}
