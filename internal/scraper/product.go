// Package scraper collects product records from storefront search results
// and summarises them.
package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

// NA marks a field that could not be found on the page.
const NA = "N/A"

// Product is one search result row.
type Product struct {
	Name   string `json:"name"`
	Price  string `json:"price"`
	Rating string `json:"rating"`
	Link   string `json:"link"`
}

// Layout selects how result items are located and read.
type Layout string

const (
	// LayoutSearchResult reads div[data-component-type="s-search-result"] items.
	LayoutSearchResult Layout = "search-result"
	// LayoutResultItem reads every .s-result-item and normalises prices.
	LayoutResultItem Layout = "result-item"
)

// ParseLayout validates a layout name. Empty selects LayoutSearchResult.
func ParseLayout(s string) (Layout, error) {
	switch Layout(strings.TrimSpace(s)) {
	case "", LayoutSearchResult:
		return LayoutSearchResult, nil
	case LayoutResultItem:
		return LayoutResultItem, nil
	default:
		return "", fmt.Errorf("unknown layout %q (want %s or %s)", s, LayoutSearchResult, LayoutResultItem)
	}
}

// resolveLink turns an item href into an absolute product URL.
// Product detail links (/dp/) lose their tracking query string.
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return NA
	}
	if strings.Contains(href, "/dp/") {
		href = strings.SplitN(href, "?", 2)[0]
	}
	ref, err := url.Parse(href)
	if err != nil {
		return NA
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}

func orNA(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return NA
	}
	return s
}
