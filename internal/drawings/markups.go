package drawings

import (
	"errors"

	"nrm-schedules/internal/models"

	"github.com/google/uuid"
)

type Kind string

const (
	KindPolyline Kind = "polylines"
	KindPolygon  Kind = "polygons"
	KindCount    Kind = "counts"
)

var (
	ErrUnknownKind    = errors.New("markup kind must be polylines, polygons or counts")
	ErrMarkupNotFound = errors.New("markup not found")
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindPolyline, KindPolygon, KindCount:
		return k, nil
	}
	return "", ErrUnknownKind
}

// PutMarkup measures the points and stores the markup under id. An empty id
// adds a new markup with a generated id; the id used is returned.
func PutMarkup(m models.Markups, c models.Calibration, kind Kind, id, label string, points []models.Point) (models.Markups, string, error) {
	m = EnsureMarkups(m)
	if id == "" {
		id = uuid.NewString()
	} else if !hasMarkup(m, kind, id) {
		return m, "", ErrMarkupNotFound
	}

	switch kind {
	case KindPolyline:
		length, err := PolylineLength(points, c)
		if err != nil {
			return m, "", err
		}
		m.Polylines[id] = models.Polyline{Label: label, Points: points, Length: length}
	case KindPolygon:
		area, err := PolygonArea(points, c)
		if err != nil {
			return m, "", err
		}
		m.Polygons[id] = models.Polygon{Label: label, Points: points, Area: area}
	case KindCount:
		if len(points) == 0 {
			return m, "", ErrTooFewPoints
		}
		m.Counts[id] = models.Count{Label: label, Points: points, Total: len(points)}
	default:
		return m, "", ErrUnknownKind
	}
	return m, id, nil
}

func DeleteMarkup(m models.Markups, kind Kind, id string) (models.Markups, error) {
	m = EnsureMarkups(m)
	if !hasMarkup(m, kind, id) {
		return m, ErrMarkupNotFound
	}
	switch kind {
	case KindPolyline:
		delete(m.Polylines, id)
	case KindPolygon:
		delete(m.Polygons, id)
	case KindCount:
		delete(m.Counts, id)
	}
	return m, nil
}

func hasMarkup(m models.Markups, kind Kind, id string) bool {
	var ok bool
	switch kind {
	case KindPolyline:
		_, ok = m.Polylines[id]
	case KindPolygon:
		_, ok = m.Polygons[id]
	case KindCount:
		_, ok = m.Counts[id]
	}
	return ok
}
