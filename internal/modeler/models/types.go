package models

import (
	"encoding/json"
	"fmt"
)

// ============================================================
// Geometry primitives
// ============================================================

// Point is a 2D point in drawing units. It serialises as [x, y].
type Point struct {
	X float64
	Y float64
}

// MarshalJSON writes the point as [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON accepts both [x, y] (optionally [x, y, z]) and {"x":..,"y":..}.
func (p *Point) UnmarshalJSON(data []byte) error {
	var arr []float64
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) < 2 {
			return fmt.Errorf("point needs at least 2 coordinates, got %d", len(arr))
		}
		p.X, p.Y = arr[0], arr[1]
		return nil
	}

	var obj struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	if obj.X == nil || obj.Y == nil {
		return fmt.Errorf("point: x and y are required")
	}
	p.X, p.Y = *obj.X, *obj.Y
	return nil
}

// Point3 is a 3D point; Z is vertical.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ============================================================
// Drawing entities (input contract)
// ============================================================

type EntityType string

const (
	EntityPolyline EntityType = "polyline"
	EntityCircle   EntityType = "circle"
	EntityArc      EntityType = "arc"
	EntitySpline   EntityType = "spline"
	EntityText     EntityType = "text"
	EntityInsert   EntityType = "insert"
)

// Entity is one parsed drawing entity. Geometry holds one of the *Geometry
// structs below, matching Type.
type Entity struct {
	Type     EntityType
	Layer    string
	Handle   string
	Geometry interface{}
	// Index is the position of the entity in the input document. It is
	// what element errors report, since skipped entities leave gaps.
	Index int
}

type PolylineGeometry struct {
	Vertices []Point
	Closed   bool
}

type CircleGeometry struct {
	Center Point
	Radius float64
}

// ArcGeometry angles are in degrees, counter-clockwise from +X.
type ArcGeometry struct {
	Center     Point
	Radius     float64
	StartAngle float64
	EndAngle   float64
}

type SplineGeometry struct {
	ControlPoints []Point
}

type TextGeometry struct {
	Text     string
	Position Point
}

type InsertGeometry struct {
	Block    string
	Position Point
	Rotation float64
	XScale   float64
	YScale   float64
}

// ============================================================
// Building model
// ============================================================

// Polygon is a closed, counter-clockwise ring. The closing vertex is not
// repeated. Entity is the position of the source entity in the slice the
// polygon was extracted from.
type Polygon struct {
	Points []Point
	Layer  string
	Handle string
	Entity int
}

// MarshalJSON writes the bare point list; layer and handle stay internal.
func (p Polygon) MarshalJSON() ([]byte, error) {
	if p.Points == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.Points)
}

func (p *Polygon) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &p.Points)
}

type Floor struct {
	Level    int       `json:"level"`
	ZOffset  float64   `json:"z_offset"`
	Height   float64   `json:"height"`
	Polygons []Polygon `json:"polygons"`
}

type TextLabel struct {
	Text         string `json:"text"`
	Position     Point  `json:"position"`
	PolygonIndex *int   `json:"polygon_index"`
	FloorLevel   int    `json:"floor_level"`
}

type OpeningKind string

const (
	OpeningDoor   OpeningKind = "door"
	OpeningWindow OpeningKind = "window"
)

type OpeningSource string

const (
	SourceInsertion OpeningSource = "insertion"
	SourceRectangle OpeningSource = "rectangle"
)

// Opening is a door or window bound to one wall segment. PolygonIndex
// indexes Floors[level].Polygons for the floor whose Level equals FloorLevel.
type Opening struct {
	Kind         OpeningKind   `json:"type"`
	Position     Point         `json:"position"`
	Width        float64       `json:"width"`
	Height       float64       `json:"height"`
	Rotation     float64       `json:"rotation"`
	ZOffset      float64       `json:"z_offset"`
	PolygonIndex int           `json:"polygon_index"`
	WallSegment  int           `json:"wall_segment"`
	FloorLevel   int           `json:"floor_level"`
	Source       OpeningSource `json:"source"`
	Layer        string        `json:"layer,omitempty"`
	Name         string        `json:"name,omitempty"`
}

// BoxExtent is the size of an opening cut volume along the wall,
// through the wall, and vertically.
type BoxExtent struct {
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height float64 `json:"height"`
}

// OpeningCutPose is the placed cutting box for one opening.
type OpeningCutPose struct {
	Center      Point3    `json:"center"`
	RotationDeg float64   `json:"rotation_deg"`
	Extent      BoxExtent `json:"box_extent"`
}

// Model is the reconstructed building for one input document.
type Model struct {
	ID            string      `json:"id,omitempty"`
	Floors        []Floor     `json:"floors"`
	Openings      []Opening   `json:"openings"`
	Labels        []TextLabel `json:"labels"`
	WallThickness float64     `json:"wall_thickness"`
	IsMultistory  bool        `json:"is_multistory"`
	Diagnostics   Diagnostics `json:"diagnostics"`
}

// FloorByLevel returns the floor with the given level.
func (m *Model) FloorByLevel(level int) (*Floor, bool) {
	for i := range m.Floors {
		if m.Floors[i].Level == level {
			return &m.Floors[i], true
		}
	}
	return nil, false
}
