package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/b0tShaman/neuro-blocks/ml"
)

// LoadCSV reads a numeric CSV file, one matrix row per line.
func LoadCSV(path string) (*ml.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ReadCSV parses rows of float values. Blank lines and lines starting with
// '#' are skipped; every row must have the same number of fields.
func ReadCSV(r io.Reader) (*ml.Matrix, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	var rows [][]float64
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				line, _ := reader.FieldPos(i)
				return nil, fmt.Errorf("line %d field %d: %w", line, i+1, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return ml.FromRows(rows)
}
