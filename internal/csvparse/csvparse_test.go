package csvparse

import (
	"testing"

	"nrm-schedules/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RowsKeyedByHeaders(t *testing.T) {
	table, err := ParseString("Name,Qty\nWall A,3\nWall B,5")
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Qty"}, table.Headers)
	assert.Equal(t, []models.Row{
		{"Name": "Wall A", "Qty": "3"},
		{"Name": "Wall B", "Qty": "5"},
	}, table.Rows)
}

func TestParse_QuotedFields(t *testing.T) {
	table, err := ParseString("Description,Code\n\"Door, fire rated\",D1\n\"12\"\" pipe\",P2\n")
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, "Door, fire rated", table.Rows[0]["Description"])
	assert.Equal(t, `12" pipe`, table.Rows[1]["Description"])
	assert.Equal(t, "P2", table.Rows[1]["Code"])
}

func TestParse_EmbeddedNewlineInQuotedField(t *testing.T) {
	table, err := ParseString("Name,Notes\nSlab,\"line one\nline two\"\n")
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "line one\nline two", table.Rows[0]["Notes"])
}

func TestParse_RaggedRowsAndBlankLines(t *testing.T) {
	table, err := ParseString("A,B,C\n1,2\n\n4,5,6,7\n")
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, models.Row{"A": "1", "B": "2", "C": ""}, table.Rows[0])
	assert.Equal(t, models.Row{"A": "4", "B": "5", "C": "6"}, table.Rows[1])
}

func TestParse_HeaderNormalization(t *testing.T) {
	table, err := ParseString("\ufeff Type ,Qty,,Qty\nx,1,y,2\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"Type", "Qty", "Column 3", "Qty_2"}, table.Headers)
	assert.Equal(t, "2", table.Rows[0]["Qty_2"])

	table, err = ParseString("Qty,Qty_2,Qty\n1,2,3\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"Qty", "Qty_2", "Qty_3"}, table.Headers)
	assert.Equal(t, models.Row{"Qty": "1", "Qty_2": "2", "Qty_3": "3"}, table.Rows[0])
}

func TestParse_Empty(t *testing.T) {
	_, err := ParseString("")
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = ParseString("\n\n")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestParse_HeaderOnly(t *testing.T) {
	table, err := ParseString("Name,Qty\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Qty"}, table.Headers)
	assert.Empty(t, table.Rows)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		file string
		size int64
		want error
	}{
		{name: "ok", file: "doors.csv", size: 10},
		{name: "upper case extension", file: "DOORS.CSV", size: 10},
		{name: "wrong extension", file: "doors.xlsx", size: 10, want: ErrNotCSV},
		{name: "empty", file: "doors.csv", size: 0, want: ErrEmpty},
		{name: "too large", file: "doors.csv", size: 101, want: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file, tt.size, 100)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
