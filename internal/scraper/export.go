package scraper

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// CSVHeader is the first row of every product CSV.
var CSVHeader = []string{"Product Name", "Price", "Rating", "Link"}

// WriteCSV writes products with CSVHeader.
func WriteCSV(w io.Writer, products []Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, p := range products {
		if err := cw.Write([]string{p.Name, p.Price, p.Rating, p.Link}); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a product CSV. Columns are matched by header name so extra
// or reordered columns are tolerated; missing columns read as N/A.
func ReadCSV(r io.Reader) ([]Product, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return NA
		}
		return orNA(row[i])
	}

	products := make([]Product, 0)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		products = append(products, Product{
			Name:   field(row, "Product Name"),
			Price:  field(row, "Price"),
			Rating: field(row, "Rating"),
			Link:   field(row, "Link"),
		})
	}
	return products, nil
}

// WriteJSON writes products as an indented JSON array.
func WriteJSON(w io.Writer, products []Product) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if products == nil {
		products = []Product{}
	}
	if err := enc.Encode(products); err != nil {
		return fmt.Errorf("failed to encode products: %w", err)
	}
	return nil
}

// ReadJSON decodes a JSON array of products.
func ReadJSON(data []byte) ([]Product, error) {
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse products JSON: %w", err)
	}
	return products, nil
}
