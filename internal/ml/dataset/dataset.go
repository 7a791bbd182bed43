// Package dataset holds tabular binary-classification data and the
// preprocessing steps used before training.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrShape is returned when rows, labels and feature names disagree in size.
var ErrShape = errors.New("dataset shape mismatch")

// Dataset is a feature matrix with integer class labels.
type Dataset struct {
	FeatureNames []string
	Target       string
	X            [][]float64
	Y            []int
}

// Len is the number of rows.
func (d *Dataset) Len() int { return len(d.X) }

// NumFeatures is the number of feature columns.
func (d *Dataset) NumFeatures() int { return len(d.FeatureNames) }

// Validate checks that every row has one value per feature and one label.
func (d *Dataset) Validate() error {
	if len(d.X) != len(d.Y) {
		return fmt.Errorf("%w: %d rows but %d labels", ErrShape, len(d.X), len(d.Y))
	}
	for i, row := range d.X {
		if len(row) != len(d.FeatureNames) {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrShape, i, len(row), len(d.FeatureNames))
		}
	}
	return nil
}

// Subset returns the rows at idx. Rows are shared, not copied.
func (d *Dataset) Subset(idx []int) *Dataset {
	out := &Dataset{
		FeatureNames: d.FeatureNames,
		Target:       d.Target,
		X:            make([][]float64, len(idx)),
		Y:            make([]int, len(idx)),
	}
	for i, j := range idx {
		out.X[i] = d.X[j]
		out.Y[i] = d.Y[j]
	}
	return out
}

// ClassCount is the number of rows carrying one label.
type ClassCount struct {
	Label int
	Count int
}

// ClassCounts returns label frequencies, most common first.
func (d *Dataset) ClassCounts() []ClassCount {
	counts := make(map[int]int)
	for _, y := range d.Y {
		counts[y]++
	}
	out := make([]ClassCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, ClassCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// LoadCSV reads a dataset from a CSV file with a header row.
func LoadCSV(path, target string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	ds, err := ReadCSV(f, target)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ds, nil
}

// ReadCSV parses CSV data whose target column holds the class label and
// whose remaining columns are numeric features.
func ReadCSV(r io.Reader, target string) (*Dataset, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	targetIdx := -1
	ds := &Dataset{Target: target}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == target {
			targetIdx = i
			continue
		}
		ds.FeatureNames = append(ds.FeatureNames, name)
	}
	if targetIdx < 0 {
		return nil, fmt.Errorf("target column %q not found", target)
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make([]float64, 0, len(ds.FeatureNames))
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, header[i], err)
			}
			if i == targetIdx {
				if v != math.Trunc(v) {
					return nil, fmt.Errorf("line %d: label %v is not an integer", line, v)
				}
				ds.Y = append(ds.Y, int(v))
				continue
			}
			row = append(row, v)
		}
		ds.X = append(ds.X, row)
	}
	return ds, nil
}

// SaveCSV writes the dataset to path with the target as the last column.
func (d *Dataset) SaveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.WriteCSV(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteCSV writes a header row then one row per sample.
func (d *Dataset) WriteCSV(w io.Writer) error {
	if err := d.Validate(); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string{}, d.FeatureNames...), d.Target)); err != nil {
		return err
	}
	record := make([]string, d.NumFeatures()+1)
	for i, row := range d.X {
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		record[len(row)] = strconv.Itoa(d.Y[i])
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
