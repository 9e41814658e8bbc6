package trainer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/kestrelhq/kestrel/internal/features"
)

// Dataset is a labeled feature matrix in the shared column order.
type Dataset struct {
	Rows   [][]float64
	Labels []int
}

// Len returns the number of examples.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// labelColumn is the CSV header for the label, appended after the
// feature columns.
const labelColumn = "is_fraud"

// ParseCSV reads a labeled dataset from CSV. The header must contain
// every feature column plus is_fraud; column order in the file is free,
// rows are reordered into the contract order.
func ParseCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", ErrBadDataset, err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}

	required := append(append([]string(nil), features.Names...), labelColumn)
	var missing []string
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns %v", ErrBadDataset, missing)
	}

	ds := &Dataset{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadDataset, line, err)
		}

		row := make([]float64, features.Count)
		for j, name := range features.Names {
			v, err := strconv.ParseFloat(record[idx[name]], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: column %s: %v", ErrBadDataset, line, name, err)
			}
			row[j] = v
		}

		label, err := strconv.Atoi(record[idx[labelColumn]])
		if err != nil || (label != 0 && label != 1) {
			return nil, fmt.Errorf("%w: line %d: is_fraud must be 0 or 1", ErrBadDataset, line)
		}

		ds.Rows = append(ds.Rows, row)
		ds.Labels = append(ds.Labels, label)
	}

	return ds, nil
}
