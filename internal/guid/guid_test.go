package guid

import (
	"testing"

	"nrm-schedules/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeGUID(t *testing.T) {
	assert.True(t, LooksLikeGUID("3f2504e0-4f89-11d3-9a0c-0305e82c3301"))
	assert.True(t, LooksLikeGUID(" 2O2Fr$t4X7Zf8NOew3FLOH "))
	assert.False(t, LooksLikeGUID("Wall A"))
	assert.False(t, LooksLikeGUID("3f2504e0-4f89-11d3-9a0c"))
}

func TestDetect_PicksHighestScoringColumn(t *testing.T) {
	headers := []string{"Name", "Tag", "GlobalId"}
	rows := []models.Row{
		{"Name": "Wall A", "Tag": "3f2504e0-4f89-11d3-9a0c-0305e82c3301", "GlobalId": "3f2504e0-4f89-11d3-9a0c-0305e82c3302"},
		{"Name": "Wall B", "Tag": "T-2", "GlobalId": "3f2504e0-4f89-11d3-9a0c-0305e82c3303"},
		{"Name": "Wall C", "Tag": "3f2504e0-4f89-11d3-9a0c-0305e82c3304", "GlobalId": "3f2504e0-4f89-11d3-9a0c-0305e82c3305"},
		{"Name": "Wall D", "Tag": "T-4", "GlobalId": ""},
	}

	col, ok := Detect(headers, rows)
	assert.True(t, ok)
	assert.Equal(t, "GlobalId", col)
}

func TestDetect_ExactlyHalfQualifies(t *testing.T) {
	headers := []string{"Ref"}
	rows := []models.Row{
		{"Ref": "3f2504e0-4f89-11d3-9a0c-0305e82c3301"},
		{"Ref": "not a guid"},
	}

	col, ok := Detect(headers, rows)
	assert.True(t, ok)
	assert.Equal(t, "Ref", col)
}

func TestDetect_NoColumnReachesThreshold(t *testing.T) {
	headers := []string{"Name", "Ref"}
	rows := []models.Row{
		{"Name": "Wall A", "Ref": "3f2504e0-4f89-11d3-9a0c-0305e82c3301"},
		{"Name": "Wall B", "Ref": "R2"},
		{"Name": "Wall C", "Ref": "R3"},
	}

	_, ok := Detect(headers, rows)
	assert.False(t, ok)
}

func TestDetect_TieGoesToFirstHeader(t *testing.T) {
	headers := []string{"A", "B"}
	rows := []models.Row{
		{"A": "3f2504e0-4f89-11d3-9a0c-0305e82c3301", "B": "3f2504e0-4f89-11d3-9a0c-0305e82c3302"},
	}

	col, ok := Detect(headers, rows)
	assert.True(t, ok)
	assert.Equal(t, "A", col)
}

func TestScoreColumns_EmptyColumn(t *testing.T) {
	scores := ScoreColumns([]string{"Empty"}, []models.Row{{"Empty": ""}, {}})
	assert.Equal(t, []Score{{Column: "Empty", Score: 0}}, scores)
}
