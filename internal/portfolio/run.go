package portfolio

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/jonathan/taskkit/internal/console"
)

// Run collects holdings from c until "done" or end of input, then prints the report.
func Run(c *console.Console, t *Tracker) error {
	c.Title("Stock Portfolio Tracker")
	c.Info("Available stocks: %s", strings.Join(DefaultSymbols, ", "))

	for {
		symbol, err := c.Prompt("\nEnter stock symbol (or 'done' to finish): ")
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		symbol = Normalize(symbol)
		if symbol == "DONE" {
			break
		}
		if !t.Known(symbol) {
			c.Warn("Stock not available. Try again.")
			continue
		}

		err = addQuantity(c, t, symbol)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}

	c.Title("\nYour Portfolio:")
	return t.WriteSummary(c.Out())
}

// addQuantity prompts until a share count for symbol is accepted by t.
func addQuantity(c *console.Console, t *Tracker, symbol string) error {
	for {
		answer, err := c.Prompt("Enter quantity of " + symbol + ": ")
		if err != nil {
			return err
		}
		q, err := strconv.Atoi(answer)
		if err != nil || q < 0 {
			c.Warn("Please enter a valid whole number.")
			continue
		}
		err = t.Add(symbol, q)
		if errors.Is(err, ErrQuantityTooLarge) {
			c.Warn("Quantity is too large for this portfolio.")
			continue
		}
		return err
	}
}
