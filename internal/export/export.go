// Package export writes schedule rows to xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"nrm-schedules/internal/models"
	"nrm-schedules/internal/nrm"
)

const (
	ContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxSheetName = 31
	defaultSheet = "Sheet1"
)

var sheetNameReplacer = strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")")

// Rows writes a single sheet with a header row followed by one line per row.
func Rows(sheet string, headers []string, rows []models.Row) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	name := SheetName(sheet, nil)
	if err := f.SetSheetName(defaultSheet, name); err != nil {
		return nil, err
	}
	if err := writeTable(f, name, headers, rows); err != nil {
		return nil, err
	}
	return f.WriteToBuffer()
}

// Groups writes one sheet per NRM section in NRM code order. Headers are the union of row keys
// in the order given, with unseen keys appended.
func Groups(headers []string, groups []models.Group) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if len(groups) == 0 {
		if err := writeTable(f, defaultSheet, headers, nil); err != nil {
			return nil, err
		}
		return f.WriteToBuffer()
	}

	groups = append([]models.Group(nil), groups...)
	nrm.SortGroups(groups)

	used := map[string]bool{}
	for i, g := range groups {
		name := SheetName(g.Section, used)
		used[strings.ToLower(name)] = true

		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
		if err := writeTable(f, name, groupHeaders(headers, g.Rows), g.Rows); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	return f.WriteToBuffer()
}

// SheetName makes s a valid, unique Excel sheet name. used holds lowercased
// names already taken and may be nil.
func SheetName(s string, used map[string]bool) string {
	name := strings.TrimSpace(sheetNameReplacer.Replace(s))
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Section"
	}
	name = truncate(name, maxSheetName)

	if !used[strings.ToLower(name)] {
		return name
	}
	for n := 2; ; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate := truncate(name, maxSheetName-len(suffix)) + suffix
		if !used[strings.ToLower(candidate)] {
			return candidate
		}
	}
}

func writeTable(f *excelize.File, sheet string, headers []string, rows []models.Row) error {
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for r, row := range rows {
		values := make([]interface{}, len(headers))
		for i, h := range headers {
			values[i] = row[h]
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

func groupHeaders(headers []string, rows []models.Row) []string {
	out := append([]string(nil), headers...)
	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		seen[h] = true
	}
	for _, row := range rows {
		var extra []string
		for k := range row {
			if !seen[k] {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		for _, k := range extra {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
