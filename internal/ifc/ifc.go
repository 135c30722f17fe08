// Package ifc validates model uploads and links schedule rows to model
// elements for cross-highlighting.
package ifc

import (
	"errors"
	"path/filepath"
	"strings"

	"nrm-schedules/internal/guid"
	"nrm-schedules/internal/models"
)

type FileKind string

const (
	KindIFC      FileKind = "ifc"
	KindFragment FileKind = "frag"
)

var (
	ErrUnsupported = errors.New("model file must be .ifc or .frag")
	ErrEmpty       = errors.New("model file is empty")
	ErrTooLarge    = errors.New("model file is too large")
	ErrBadLink     = errors.New("link needs a schedule, a schedule column and a model property")
	ErrNotLinked   = errors.New("model is not linked to a schedule")
)

// Classify validates an upload and reports whether it is a model or converted geometry.
func Classify(fileName string, size, maxBytes int64) (FileKind, error) {
	var kind FileKind
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".ifc":
		kind = KindIFC
	case ".frag":
		kind = KindFragment
	default:
		return "", ErrUnsupported
	}
	if size <= 0 {
		return "", ErrEmpty
	}
	if maxBytes > 0 && size > maxBytes {
		return "", ErrTooLarge
	}
	return kind, nil
}

// ValidateLink checks the link is complete and the column exists in headers.
func ValidateLink(link models.ModelLink, headers []string) error {
	if link.ScheduleID == "" || strings.TrimSpace(link.ScheduleColumn) == "" || strings.TrimSpace(link.ModelProperty) == "" {
		return ErrBadLink
	}
	for _, h := range headers {
		if h == link.ScheduleColumn {
			return nil
		}
	}
	return ErrBadLink
}

// Highlight returns the indexes of rows whose linked column value matches one
// of the selected element property values. Surrounding space is ignored, and
// case only for hex UUIDs since IFC GlobalIds are case-sensitive.
func Highlight(rows []models.Row, link models.ModelLink, selected []string) ([]int, error) {
	if link.ScheduleColumn == "" {
		return nil, ErrNotLinked
	}
	want := make(map[string]bool, len(selected))
	for _, v := range selected {
		if v = normalize(v); v != "" {
			want[v] = true
		}
	}

	out := []int{}
	for i, row := range rows {
		if want[normalize(row[link.ScheduleColumn])] {
			out = append(out, i)
		}
	}
	return out, nil
}

// SelectRows is the reverse direction: given row indexes picked in the table,
// return the model property values to select in the viewer.
func SelectRows(rows []models.Row, link models.ModelLink, indexes []int) ([]string, error) {
	if link.ScheduleColumn == "" {
		return nil, ErrNotLinked
	}
	seen := map[string]bool{}
	out := []string{}
	for _, i := range indexes {
		if i < 0 || i >= len(rows) {
			continue
		}
		v := strings.TrimSpace(rows[i][link.ScheduleColumn])
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}

// Suggestion proposes a link column from the schedule's GUID-like column.
type Suggestion struct {
	ScheduleColumn string       `json:"schedule_column,omitempty"`
	ModelProperty  string       `json:"model_property,omitempty"`
	Found          bool         `json:"found"`
	Scores         []guid.Score `json:"scores"`
}

// Suggest picks the GUID column and pairs it with the IFC GlobalId property.
func Suggest(headers []string, rows []models.Row) Suggestion {
	s := Suggestion{Scores: guid.ScoreColumns(headers, rows)}
	if col, ok := guid.Detect(headers, rows); ok {
		s.ScheduleColumn = col
		s.ModelProperty = "GlobalId"
		s.Found = true
	}
	return s
}

func normalize(v string) string {
	v = strings.TrimSpace(v)
	if guid.IsUUID(v) {
		return strings.ToLower(v)
	}
	return v
}
