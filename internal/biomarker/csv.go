package biomarker

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// RowError ties a validation failure to its 1-based data row number.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// ReadCSV parses a delimited upload with a header row into validated records.
// Unknown columns (patient name, status labels, notes) are ignored; a header
// missing any required column rejects the whole file with MissingFieldError.
// Malformed rows are collected as RowErrors while the remaining rows are
// still returned, so one bad line does not sink a batch.
func ReadCSV(r io.Reader, policy RangePolicy) ([]Record, []RowError, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	// Map canonical fields to their column positions.
	colFor := make(map[string]int, FieldCount)
	for col, name := range header {
		if FieldIndex(name) >= 0 {
			colFor[name] = col
		}
	}

	var missing []string
	for _, name := range FieldNames {
		if _, ok := colFor[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, nil, &MissingFieldError{Fields: missing}
	}

	var (
		records []Record
		rowErrs []RowError
	)
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: row, Err: err})
			continue
		}

		raw := make(map[string]float64, FieldCount)
		var typeErr error
		for _, name := range FieldNames {
			col := colFor[name]
			if col >= len(fields) {
				typeErr = &InvalidTypeError{Field: name, Value: ""}
				break
			}
			v, err := strconv.ParseFloat(fields[col], 64)
			if err != nil {
				typeErr = &InvalidTypeError{Field: name, Value: fields[col]}
				break
			}
			raw[name] = v
		}
		if typeErr != nil {
			rowErrs = append(rowErrs, RowError{Row: row, Err: typeErr})
			continue
		}

		rec, err := FromMap(raw, policy)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: row, Err: err})
			continue
		}
		records = append(records, rec)
	}

	return records, rowErrs, nil
}
