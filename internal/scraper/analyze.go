package scraper

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// HistogramBins is the number of price buckets in an analysis.
const HistogramBins = 20

// TopN is how many of the most expensive products are listed.
const TopN = 10

var ratingPattern = regexp.MustCompile(`[0-9.]+`)

// ParsePrice converts a scraped price such as "54,990." to a number.
func ParsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == NA {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseRating returns the first number in a rating such as "4.3 out of 5 stars".
func ParseRating(s string) (float64, bool) {
	m := ratingPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Stats is a describe-style summary of one numeric column.
// Std is the sample standard deviation; NaN when Count < 2.
type Stats struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Q25   float64
	Q50   float64
	Q75   float64
	Max   float64
}

// Describe summarises values. An empty input yields Count 0 and NaN fields.
func Describe(values []float64) Stats {
	if len(values) == 0 {
		nan := math.NaN()
		return Stats{Mean: nan, Std: nan, Min: nan, Q25: nan, Q50: nan, Q75: nan, Max: nan}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	std := math.NaN()
	if len(sorted) > 1 {
		var ss float64
		for _, v := range sorted {
			ss += (v - mean) * (v - mean)
		}
		std = math.Sqrt(ss / float64(len(sorted)-1))
	}

	return Stats{
		Count: len(sorted),
		Mean:  mean,
		Std:   std,
		Min:   sorted[0],
		Q25:   quantile(sorted, 0.25),
		Q50:   quantile(sorted, 0.50),
		Q75:   quantile(sorted, 0.75),
		Max:   sorted[len(sorted)-1],
	}
}

// quantile uses linear interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// Bin is one histogram bucket covering [Lo, Hi); the last bucket includes Hi.
type Bin struct {
	Lo, Hi float64
	Count  int
}

// Histogram splits values into n equal-width bins over their range.
// A single distinct value is spread over [v-0.5, v+0.5]. NaN and infinite
// values are ignored.
func Histogram(values []float64, n int) []Bin {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 || n <= 0 {
		return nil
	}
	lo, hi := finite[0], finite[0]
	for _, v := range finite {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	// Work on halves so spans near the float64 limits stay finite.
	span := hi/2 - lo/2
	edge := func(i int) float64 {
		switch i {
		case 0:
			return lo
		case n:
			return hi
		}
		return 2 * (lo/2 + span/float64(n)*float64(i))
	}

	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lo = edge(i)
		bins[i].Hi = edge(i + 1)
	}

	for _, v := range finite {
		i := int((v/2 - lo/2) / span * float64(n))
		bins[min(max(i, 0), n-1)].Count++
	}
	return bins
}

// PricedProduct pairs a product with its numeric price.
type PricedProduct struct {
	Product
	PriceValue float64
}

// Analysis is the numeric view of a scraped product set.
type Analysis struct {
	Total       int
	UniqueNames int
	Price       Stats
	Rating      Stats
	PriceBins   []Bin
	TopPriced   []PricedProduct
}

// Analyze converts prices and ratings to numbers and summarises them.
// Unparsable values are treated as missing.
func Analyze(products []Product) Analysis {
	var prices, ratings []float64
	var priced []PricedProduct
	names := make(map[string]bool)

	for _, p := range products {
		if p.Name != NA {
			names[p.Name] = true
		}
		if v, ok := ParsePrice(p.Price); ok {
			prices = append(prices, v)
			priced = append(priced, PricedProduct{Product: p, PriceValue: v})
		}
		if v, ok := ParseRating(p.Rating); ok {
			ratings = append(ratings, v)
		}
	}

	sort.SliceStable(priced, func(i, j int) bool { return priced[i].PriceValue > priced[j].PriceValue })
	if len(priced) > TopN {
		priced = priced[:TopN]
	}

	return Analysis{
		Total:       len(products),
		UniqueNames: len(names),
		Price:       Describe(prices),
		Rating:      Describe(ratings),
		PriceBins:   Histogram(prices, HistogramBins),
		TopPriced:   priced,
	}
}

const barWidth = 40

// Report writes the summary, histogram and top list as text.
//
//nolint:errcheck // report output goes to the console
func (a Analysis) Report(w io.Writer) {
	fmt.Fprintln(w, "Dataset Summary:")
	fmt.Fprintf(w, "  products: %d (unique names: %d)\n\n", a.Total, a.UniqueNames)
	fmt.Fprintf(w, "  %-6s %12s %12s\n", "", "Price", "Rating")
	rows := []struct {
		label string
		p, r  float64
	}{
		{"count", float64(a.Price.Count), float64(a.Rating.Count)},
		{"mean", a.Price.Mean, a.Rating.Mean},
		{"std", a.Price.Std, a.Rating.Std},
		{"min", a.Price.Min, a.Rating.Min},
		{"25%", a.Price.Q25, a.Rating.Q25},
		{"50%", a.Price.Q50, a.Rating.Q50},
		{"75%", a.Price.Q75, a.Rating.Q75},
		{"max", a.Price.Max, a.Rating.Max},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %-6s %12s %12s\n", row.label, formatStat(row.p), formatStat(row.r))
	}

	fmt.Fprintln(w, "\nPrice Distribution:")
	maxCount := 0
	for _, b := range a.PriceBins {
		maxCount = max(maxCount, b.Count)
	}
	for _, b := range a.PriceBins {
		bar := 0
		if maxCount > 0 {
			bar = b.Count * barWidth / maxCount
		}
		fmt.Fprintf(w, "  %12.2f - %-12.2f | %-*s %d\n", b.Lo, b.Hi, barWidth, strings.Repeat("#", bar), b.Count)
	}

	fmt.Fprintf(w, "\nTop %d Expensive Products:\n", TopN)
	for i, p := range a.TopPriced {
		fmt.Fprintf(w, "  %2d. %12.2f  %s\n", i+1, p.PriceValue, p.Name)
	}
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
