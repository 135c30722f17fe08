package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Calibration maps pixel distances on the page to real-world distances.
// A zero PixelDistance means the drawing is not calibrated.
type Calibration struct {
	PixelDistance decimal.Decimal `json:"pixel_distance"`
	RealDistance  decimal.Decimal `json:"real_distance"`
	Unit          string          `json:"unit"`
}

type Polyline struct {
	Label  string          `json:"label,omitempty"`
	Points []Point         `json:"points"`
	Length decimal.Decimal `json:"length"`
}

type Polygon struct {
	Label  string          `json:"label,omitempty"`
	Points []Point         `json:"points"`
	Area   decimal.Decimal `json:"area"`
}

type Count struct {
	Label  string  `json:"label,omitempty"`
	Points []Point `json:"points"`
	Total  int     `json:"total"`
}

// Markups holds the three markup collections of a drawing, each keyed by generated id.
type Markups struct {
	Polylines map[string]Polyline `json:"polylines"`
	Polygons  map[string]Polygon  `json:"polygons"`
	Counts    map[string]Count    `json:"counts"`
}

// Drawing is one page of an uploaded PDF.
type Drawing struct {
	Document
	ProjectID string `gorm:"size:36;index;not null" json:"project_id"`
	OwnerID   string `gorm:"size:36;index" json:"owner_id"`

	FileName   string `gorm:"size:255;not null" json:"file_name"`
	SourceName string `gorm:"size:255" json:"source_name"`
	Page       int    `json:"page"`
	URL        string `gorm:"size:512" json:"url"`

	Calibration datatypes.JSONType[Calibration] `json:"calibration"`
	Markups     datatypes.JSONType[Markups]     `json:"markups"`
}
