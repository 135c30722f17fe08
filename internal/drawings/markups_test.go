package drawings

import (
	"testing"

	"nrm-schedules/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutMarkupAddsAndReplaces(t *testing.T) {
	cal, err := NewCalibration(d("10"), d("1"), "m")
	require.NoError(t, err)

	m, id, err := PutMarkup(models.Markups{}, cal, KindPolyline, "", "wall", []models.Point{{X: 0, Y: 0}, {X: 30, Y: 40}})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.True(t, m.Polylines[id].Length.Equal(d("5")))

	m, same, err := PutMarkup(m, cal, KindPolyline, id, "wall", []models.Point{{X: 0, Y: 0}, {X: 100, Y: 0}})
	require.NoError(t, err)
	assert.Equal(t, id, same)
	assert.Len(t, m.Polylines, 1)
	assert.True(t, m.Polylines[id].Length.Equal(d("10")))

	_, _, err = PutMarkup(m, cal, KindPolygon, "missing", "", []models.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}})
	assert.ErrorIs(t, err, ErrMarkupNotFound)
}

func TestPutMarkupValidatesPoints(t *testing.T) {
	var cal models.Calibration
	_, _, err := PutMarkup(models.Markups{}, cal, KindPolygon, "", "", []models.Point{{X: 0, Y: 0}, {X: 1, Y: 1}})
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, _, err = PutMarkup(models.Markups{}, cal, KindCount, "", "", nil)
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, _, err = PutMarkup(models.Markups{}, cal, KindPolyline, "", "", []models.Point{{X: -1e308, Y: 0}, {X: 1e308, Y: 0}})
	assert.ErrorIs(t, err, ErrBadPoints)

	m, id, err := PutMarkup(models.Markups{}, cal, KindCount, "", "sockets", []models.Point{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}})
	require.NoError(t, err)
	assert.Equal(t, 3, m.Counts[id].Total)
}

func TestDeleteMarkup(t *testing.T) {
	var cal models.Calibration
	m, id, err := PutMarkup(models.Markups{}, cal, KindCount, "", "", []models.Point{{X: 1, Y: 1}})
	require.NoError(t, err)

	m, err = DeleteMarkup(m, KindCount, id)
	require.NoError(t, err)
	assert.Empty(t, m.Counts)

	_, err = DeleteMarkup(m, KindCount, id)
	assert.ErrorIs(t, err, ErrMarkupNotFound)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("polygons")
	require.NoError(t, err)
	assert.Equal(t, KindPolygon, k)

	_, err = ParseKind("circles")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
