package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	searchResultSelector = `div[data-component-type="s-search-result"]`
	resultItemSelector   = ".s-result-item"

	primaryLinkSelector  = "a.a-link-normal.s-underline-text.s-underline-link-text.s-link-style.a-text-normal"
	fallbackLinkSelector = "a.a-link-normal.s-no-outline"
	priceSelector        = "span.a-price-whole"
	ratingSelector       = "span.a-icon-alt"
)

// ParseError reports HTML that could not be parsed at all.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Parse extracts products from a results page. baseURL resolves relative links.
func Parse(layout Layout, html string, baseURL string) ([]Product, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &ParseError{Message: fmt.Sprintf("invalid base URL: %s (must have scheme and host)", baseURL), Cause: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{Message: "failed to parse HTML", Cause: err}
	}

	switch layout {
	case LayoutResultItem:
		return parseResultItems(doc, base), nil
	default:
		return parseSearchResults(doc, base), nil
	}
}

func parseSearchResults(doc *goquery.Document, base *url.URL) []Product {
	products := make([]Product, 0)
	doc.Find(searchResultSelector).Each(func(_ int, item *goquery.Selection) {
		p := Product{Name: NA, Price: NA, Rating: NA, Link: NA}

		if title := item.Find("h2").First().Find("span").First(); title.Length() > 0 {
			p.Name = orNA(title.Text())
		}

		link := item.Find(primaryLinkSelector).First()
		if link.Length() == 0 {
			link = item.Find(fallbackLinkSelector).First()
		}
		if href, ok := link.Attr("href"); ok {
			p.Link = resolveLink(base, href)
		}

		if price := item.Find(priceSelector).First(); price.Length() > 0 {
			p.Price = orNA(price.Text())
		}
		if rating := item.Find(ratingSelector).First(); rating.Length() > 0 {
			p.Rating = orNA(rating.Text())
		}

		products = append(products, p)
	})
	return products
}

func parseResultItems(doc *goquery.Document, base *url.URL) []Product {
	products := make([]Product, 0)
	doc.Find(resultItemSelector).Each(func(_ int, item *goquery.Selection) {
		p := Product{Name: NA, Price: NA, Rating: NA, Link: NA}

		if name := item.Find("h2 span").First(); name.Length() > 0 {
			p.Name = orNA(name.Text())
		}
		if price := item.Find(".a-price-whole").First(); price.Length() > 0 {
			p.Price = orNA(strings.ReplaceAll(strings.TrimSpace(price.Text()), ",", ""))
		}
		if rating := item.Find(ratingSelector).First(); rating.Length() > 0 {
			p.Rating = orNA(rating.Text())
		}
		if link := item.Find("a.a-link-normal").First(); link.Length() > 0 {
			href, _ := link.Attr("href")
			if strings.TrimSpace(href) != "" {
				if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
					p.Link = base.ResolveReference(ref).String()
				}
			}
		}

		products = append(products, p)
	})
	return products
}
