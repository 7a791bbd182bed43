// Package portfolio totals a stock portfolio against a fixed price table.
package portfolio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// DefaultPrices are the hardcoded per-share prices in dollars.
var DefaultPrices = map[string]int{
	"APPLE":     180,
	"TESLA":     250,
	"MICROSOFT": 310,
	"GOOGLE":    140,
	"AMAZON":    130,
	"SAMSUNG":   143,
}

// DefaultSymbols lists DefaultPrices in display order.
var DefaultSymbols = []string{"APPLE", "TESLA", "MICROSOFT", "GOOGLE", "AMAZON", "SAMSUNG"}

var (
	// ErrUnknownSymbol is returned for symbols missing from the price table.
	ErrUnknownSymbol = errors.New("stock not available")
	// ErrNegativeQuantity is returned for share counts below zero.
	ErrNegativeQuantity = errors.New("quantity must be non-negative")
	// ErrQuantityTooLarge is returned when a holding or the total would overflow int.
	ErrQuantityTooLarge = errors.New("quantity too large")
)

// Holding is the accumulated position in one stock.
type Holding struct {
	Symbol   string
	Quantity int
	Price    int
}

// Value is quantity times price.
func (h Holding) Value() int { return h.Quantity * h.Price }

// String renders the report line for h.
func (h Holding) String() string {
	return fmt.Sprintf("%s: %d shares × $%d = $%d", h.Symbol, h.Quantity, h.Price, h.Value())
}

// Tracker accumulates holdings in the order symbols were first added.
type Tracker struct {
	prices map[string]int
	order  []string
	qty    map[string]int
}

// NewTracker returns a tracker pricing against prices, or DefaultPrices when nil.
func NewTracker(prices map[string]int) *Tracker {
	if prices == nil {
		prices = DefaultPrices
	}
	return &Tracker{prices: prices, qty: make(map[string]int)}
}

// Normalize upper-cases and trims a symbol.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Known reports whether symbol has a price.
func (t *Tracker) Known(symbol string) bool {
	_, ok := t.prices[Normalize(symbol)]
	return ok
}

// Add records quantity more shares of symbol.
func (t *Tracker) Add(symbol string, quantity int) error {
	symbol = Normalize(symbol)
	if _, ok := t.prices[symbol]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	if err := t.checkCapacity(symbol, quantity); err != nil {
		return err
	}
	if _, seen := t.qty[symbol]; !seen {
		t.order = append(t.order, symbol)
	}
	t.qty[symbol] += quantity
	return nil
}

// checkCapacity rejects quantity if the holding's value or the portfolio total
// would no longer fit in an int.
func (t *Tracker) checkCapacity(symbol string, quantity int) error {
	price, held := t.prices[symbol], t.qty[symbol]
	if quantity > math.MaxInt-held {
		return fmt.Errorf("%w: %s", ErrQuantityTooLarge, symbol)
	}
	if price <= 0 {
		return nil
	}
	if held+quantity > math.MaxInt/price || quantity*price > math.MaxInt-t.Total() {
		return fmt.Errorf("%w: %s", ErrQuantityTooLarge, symbol)
	}
	return nil
}

// Holdings returns positions in insertion order.
func (t *Tracker) Holdings() []Holding {
	out := make([]Holding, 0, len(t.order))
	for _, s := range t.order {
		out = append(out, Holding{Symbol: s, Quantity: t.qty[s], Price: t.prices[s]})
	}
	return out
}

// Total is the summed value of every holding.
func (t *Tracker) Total() int {
	total := 0
	for _, h := range t.Holdings() {
		total += h.Value()
	}
	return total
}

// WriteReport writes one line per holding, a blank line, then the total.
func (t *Tracker) WriteReport(w io.Writer) error {
	return t.write(w, "Total Investment")
}

// WriteSummary is WriteReport with the console's "Total Investment Value" label.
func (t *Tracker) WriteSummary(w io.Writer) error {
	return t.write(w, "Total Investment Value")
}

func (t *Tracker) write(w io.Writer, totalLabel string) error {
	for _, h := range t.Holdings() {
		if _, err := fmt.Fprintln(w, h.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%s: $%d\n", totalLabel, t.Total())
	return err
}

// SaveReport writes the report to path.
func (t *Tracker) SaveReport(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := t.WriteReport(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}
