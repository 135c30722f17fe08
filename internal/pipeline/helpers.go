package pipeline

import (
	"bytes"
	"io"
	"sort"

	"nrm-schedules/internal/models"

	"gorm.io/datatypes"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

func jsonMetadata(m models.ScheduleMetadata) datatypes.JSONType[models.ScheduleMetadata] {
	return datatypes.NewJSONType(m)
}

func clearProcessed(sched *models.Schedule) {
	sched.ExtractedURL = ""
	sched.StandardizedURL = ""
	sched.GroupedURL = ""
}

// headersOf recovers column names from stored rows. JSON objects lose column
// order, so names are sorted.
func headersOf(rows []models.Row) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}
