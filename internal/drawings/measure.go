// Package drawings splits PDF drawings into pages and measures markups on them.
package drawings

import (
	"errors"
	"math"
	"strings"

	"nrm-schedules/internal/models"

	"github.com/shopspring/decimal"
)

const (
	// PixelUnit is reported for measurements on uncalibrated drawings.
	PixelUnit = "px"

	measurePrecision = 4
)

var (
	ErrBadCalibration = errors.New("calibration distances must be positive and a unit is required")
	ErrTooFewPoints   = errors.New("not enough points for markup")
	ErrBadPoints      = errors.New("markup points are out of range")
)

// NewCalibration builds a scale from a measured pixel distance and the real
// distance it represents.
func NewCalibration(pixelDistance, realDistance decimal.Decimal, unit string) (models.Calibration, error) {
	unit = strings.TrimSpace(unit)
	if !pixelDistance.IsPositive() || !realDistance.IsPositive() || unit == "" {
		return models.Calibration{}, ErrBadCalibration
	}
	return models.Calibration{PixelDistance: pixelDistance, RealDistance: realDistance, Unit: unit}, nil
}

// Scale returns real units per pixel, or 1 when the drawing is uncalibrated.
func Scale(c models.Calibration) decimal.Decimal {
	if !c.PixelDistance.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return c.RealDistance.Div(c.PixelDistance)
}

// Unit returns the calibrated unit or PixelUnit.
func Unit(c models.Calibration) string {
	if !c.PixelDistance.IsPositive() || c.Unit == "" {
		return PixelUnit
	}
	return c.Unit
}

// PolylineLength sums segment lengths and converts them to real units.
func PolylineLength(points []models.Point, c models.Calibration) (decimal.Decimal, error) {
	if len(points) < 2 {
		return decimal.Zero, ErrTooFewPoints
	}
	total := decimal.Zero
	for i := 1; i < len(points); i++ {
		dx := points[i].X - points[i-1].X
		dy := points[i].Y - points[i-1].Y
		seg := math.Hypot(dx, dy)
		if !finite(seg) {
			return decimal.Zero, ErrBadPoints
		}
		total = total.Add(decimal.NewFromFloat(seg))
	}
	return total.Mul(Scale(c)).Round(measurePrecision), nil
}

// PolygonArea uses the shoelace formula; the polygon is closed implicitly.
func PolygonArea(points []models.Point, c models.Calibration) (decimal.Decimal, error) {
	if len(points) < 3 {
		return decimal.Zero, ErrTooFewPoints
	}
	var twice float64
	for i := range points {
		j := (i + 1) % len(points)
		twice += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	if !finite(twice) {
		return decimal.Zero, ErrBadPoints
	}
	area := decimal.NewFromFloat(math.Abs(twice) / 2)
	scale := Scale(c)
	return area.Mul(scale).Mul(scale).Round(measurePrecision), nil
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Recalculate refreshes every derived length and area after a calibration change.
func Recalculate(m models.Markups, c models.Calibration) models.Markups {
	for id, pl := range m.Polylines {
		if l, err := PolylineLength(pl.Points, c); err == nil {
			pl.Length = l
			m.Polylines[id] = pl
		}
	}
	for id, pg := range m.Polygons {
		if a, err := PolygonArea(pg.Points, c); err == nil {
			pg.Area = a
			m.Polygons[id] = pg
		}
	}
	for id, ct := range m.Counts {
		ct.Total = len(ct.Points)
		m.Counts[id] = ct
	}
	return m
}

// EnsureMarkups makes the three collections non-nil.
func EnsureMarkups(m models.Markups) models.Markups {
	if m.Polylines == nil {
		m.Polylines = map[string]models.Polyline{}
	}
	if m.Polygons == nil {
		m.Polygons = map[string]models.Polygon{}
	}
	if m.Counts == nil {
		m.Counts = map[string]models.Count{}
	}
	return m
}

type Totals struct {
	Unit          string          `json:"unit"`
	TotalLength   decimal.Decimal `json:"total_length"`
	TotalArea     decimal.Decimal `json:"total_area"`
	TotalCount    int             `json:"total_count"`
	PolylineCount int             `json:"polyline_count"`
	PolygonCount  int             `json:"polygon_count"`
}

// Summarize totals the markups of one drawing.
func Summarize(m models.Markups, c models.Calibration) Totals {
	t := Totals{Unit: Unit(c), TotalLength: decimal.Zero, TotalArea: decimal.Zero}
	for _, pl := range m.Polylines {
		t.TotalLength = t.TotalLength.Add(pl.Length)
		t.PolylineCount++
	}
	for _, pg := range m.Polygons {
		t.TotalArea = t.TotalArea.Add(pg.Area)
		t.PolygonCount++
	}
	for _, ct := range m.Counts {
		t.TotalCount += ct.Total
	}
	return t
}
