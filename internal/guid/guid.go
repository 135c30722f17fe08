// Package guid finds the schedule column most likely to hold element GUIDs.
package guid

import (
	"regexp"
	"strings"

	"nrm-schedules/internal/models"
)

// Threshold is the minimum share of non-empty values that must look like GUIDs.
const Threshold = 0.5

var (
	uuidPattern    = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	ifcGUIDPattern = regexp.MustCompile(`^[0-9A-Za-z_$]{22}$`)
)

type Score struct {
	Column string  `json:"column"`
	Score  float64 `json:"score"`
}

// IsUUID reports whether v is a hex UUID. Hex UUIDs compare case-insensitively;
// IFC GlobalIds do not.
func IsUUID(v string) bool {
	return uuidPattern.MatchString(strings.TrimSpace(v))
}

// LooksLikeGUID reports whether v matches the UUID or IFC GlobalId shape.
func LooksLikeGUID(v string) bool {
	v = strings.TrimSpace(v)
	return uuidPattern.MatchString(v) || ifcGUIDPattern.MatchString(v)
}

// ScoreColumns returns the GUID score of every header in order.
func ScoreColumns(headers []string, rows []models.Row) []Score {
	scores := make([]Score, 0, len(headers))
	for _, h := range headers {
		var total, hits int
		for _, row := range rows {
			v := strings.TrimSpace(row[h])
			if v == "" {
				continue
			}
			total++
			if LooksLikeGUID(v) {
				hits++
			}
		}
		s := Score{Column: h}
		if total > 0 {
			s.Score = float64(hits) / float64(total)
		}
		scores = append(scores, s)
	}
	return scores
}

// Detect picks the highest scoring column at or above Threshold. Earlier
// headers win ties. ok is false when no column qualifies.
func Detect(headers []string, rows []models.Row) (column string, ok bool) {
	best := -1.0
	for _, s := range ScoreColumns(headers, rows) {
		if s.Score < Threshold || s.Score <= best {
			continue
		}
		best = s.Score
		column = s.Column
		ok = true
	}
	return column, ok
}
