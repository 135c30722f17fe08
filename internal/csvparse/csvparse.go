// Package csvparse turns uploaded CSV schedules into header-keyed rows.
package csvparse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"nrm-schedules/internal/models"
)

var (
	ErrEmpty     = errors.New("csv file is empty")
	ErrNotCSV    = errors.New("file is not a .csv file")
	ErrTooLarge  = errors.New("csv file is too large")
	ErrMalformed = errors.New("csv file is malformed")
)

// Table is a parsed schedule: headers in file order and one row per data line.
type Table struct {
	Headers []string
	Rows    []models.Row
}

// Validate rejects uploads before any parsing or network work.
func Validate(fileName string, size int64, maxBytes int64) error {
	if !strings.EqualFold(filepath.Ext(fileName), ".csv") {
		return ErrNotCSV
	}
	if size <= 0 {
		return ErrEmpty
	}
	if maxBytes > 0 && size > maxBytes {
		return ErrTooLarge
	}
	return nil
}

func ParseString(s string) (Table, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads the first record as headers. Rows shorter than the header get
// empty strings for the missing cells; extra cells are dropped.
func Parse(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	records = dropBlank(records)
	if len(records) == 0 {
		return Table{}, ErrEmpty
	}

	headers := normalizeHeaders(records[0])
	rows := make([]models.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(models.Row, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return Table{Headers: headers, Rows: rows}, nil
}

func dropBlank(records [][]string) [][]string {
	out := records[:0]
	for _, rec := range records {
		blank := true
		for _, f := range rec {
			if strings.TrimSpace(f) != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, rec)
		}
	}
	return out
}

// normalizeHeaders trims names, strips a UTF-8 BOM and makes every name unique.
func normalizeHeaders(raw []string) []string {
	used := make(map[string]bool, len(raw))
	headers := make([]string, len(raw))
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		if used[h] {
			base := h
			for n := 2; used[h]; n++ {
				h = fmt.Sprintf("%s_%d", base, n)
			}
		}
		used[h] = true
		headers[i] = h
	}
	return headers
}
