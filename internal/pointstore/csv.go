package pointstore

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var requiredHeaders = []string{"name", "lat", "lng"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads name/lat/lng candidates from CSV bytes. Header names are
// case-sensitive and may appear in any order; extra columns are ignored.
// Records too short to hold the required columns are dropped here, the rest
// are validated by AddMany.
func ParseCSV(data []byte) ([]Row, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("input is not valid UTF-8")
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.ReuseRecord = false

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ImportStructureError{Missing: requiredHeaders}
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	// a repeated header resolves to its last column
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	var missing []string
	for _, h := range requiredHeaders {
		if _, ok := idx[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, &ImportStructureError{Missing: missing}
	}

	ni, lai, lgi := idx["name"], idx["lat"], idx["lng"]
	need := max(ni, lai, lgi) + 1

	var rows []Row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				// malformed quoting on one line only costs that record
				continue
			}
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		if len(rec) < need {
			continue
		}
		rows = append(rows, Row{Name: rec[ni], Lat: rec[lai], Lng: rec[lgi]})
	}
	return rows, nil
}
