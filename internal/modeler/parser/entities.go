package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"plan-modeler/internal/modeler/models"
)

// ============================================================
// JSON Structures
// ============================================================

// Document is the parsed-drawing payload handed over by the vector file reader.
type Document struct {
	Entities      []RawEntity        `json:"entities"`
	WallThickness *float64           `json:"wall_thickness,omitempty"`
	FloorHeights  map[string]float64 `json:"floor_heights,omitempty"`
}

type RawEntity struct {
	Type     string          `json:"type"`
	Layer    string          `json:"layer"`
	Handle   string          `json:"handle,omitempty"`
	Geometry json.RawMessage `json:"geometry"`
}

type polylineJSON struct {
	Vertices []models.Point `json:"vertices"`
	Closed   bool           `json:"closed"`
}

type circleJSON struct {
	Center models.Point `json:"center"`
	Radius float64      `json:"radius"`
}

type arcJSON struct {
	Center     models.Point `json:"center"`
	Radius     float64      `json:"radius"`
	StartAngle float64      `json:"start_angle"`
	EndAngle   float64      `json:"end_angle"`
}

type splineJSON struct {
	ControlPoints []models.Point `json:"control_points"`
}

type textJSON struct {
	Text     string       `json:"text"`
	Position models.Point `json:"position"`
}

type insertJSON struct {
	Block    string       `json:"block"`
	Position models.Point `json:"position"`
	Rotation float64      `json:"rotation"`
	XScale   *float64     `json:"x_scale,omitempty"`
	YScale   *float64     `json:"y_scale,omitempty"`
}

// ============================================================
// Parser
// ============================================================

// Result holds the decoded entities and the entities that had to be skipped.
type Result struct {
	Entities []models.Entity
	Skipped  []*models.ElementError
}

// DecodeDocument reads a Document from r.
func DecodeDocument(r io.Reader) (*Document, error) {
	var doc Document
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// ParseEntities converts raw entities into typed ones. A malformed or
// unsupported entity is skipped and reported; it never fails the document.
func ParseEntities(raw []RawEntity) Result {
	var res Result

	for i, re := range raw {
		entity, err := parseEntity(re)
		if err != nil {
			res.Skipped = append(res.Skipped, err.withIndex(i))
			continue
		}
		entity.Index = i
		res.Entities = append(res.Entities, entity)
	}

	return res
}

type entityError struct {
	kind  models.ErrorKind
	layer string
	err   error
}

func (e *entityError) withIndex(i int) *models.ElementError {
	return &models.ElementError{Kind: e.kind, Index: i, Layer: e.layer, Err: e.err}
}

func parseEntity(re RawEntity) (models.Entity, *entityError) {
	entityType, ok := normalizeType(re.Type)
	if !ok {
		return models.Entity{}, &entityError{
			kind:  models.KindUnsupportedEntity,
			layer: re.Layer,
			err:   fmt.Errorf("unsupported entity type %q", re.Type),
		}
	}

	entity := models.Entity{
		Type:   entityType,
		Layer:  re.Layer,
		Handle: re.Handle,
	}

	geometry, err := decodeGeometry(entityType, re.Geometry)
	if err != nil {
		return models.Entity{}, &entityError{
			kind:  models.KindEntityParse,
			layer: re.Layer,
			err:   fmt.Errorf("%s geometry: %w", entityType, err),
		}
	}
	entity.Geometry = geometry

	return entity, nil
}

func decodeGeometry(t models.EntityType, data json.RawMessage) (interface{}, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, fmt.Errorf("missing geometry")
	}

	switch t {
	case models.EntityPolyline:
		var g polylineJSON
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, err
		}
		return models.PolylineGeometry{Vertices: g.Vertices, Closed: g.Closed}, nil

	case models.EntityCircle:
		var g circleJSON
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, err
		}
		if g.Radius <= 0 {
			return nil, fmt.Errorf("radius must be positive, got %g", g.Radius)
		}
		return models.CircleGeometry{Center: g.Center, Radius: g.Radius}, nil

	case models.EntityArc:
		var g arcJSON
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, err
		}
		if g.Radius <= 0 {
			return nil, fmt.Errorf("radius must be positive, got %g", g.Radius)
		}
		return models.ArcGeometry{Center: g.Center, Radius: g.Radius, StartAngle: g.StartAngle, EndAngle: g.EndAngle}, nil

	case models.EntitySpline:
		var g splineJSON
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, err
		}
		return models.SplineGeometry{ControlPoints: g.ControlPoints}, nil

	case models.EntityText:
		var g textJSON
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, err
		}
		return models.TextGeometry{Text: g.Text, Position: g.Position}, nil

	case models.EntityInsert:
		var g insertJSON
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, err
		}
		if g.Block == "" {
			return nil, fmt.Errorf("block name required")
		}
		return models.InsertGeometry{
			Block:    g.Block,
			Position: g.Position,
			Rotation: g.Rotation,
			XScale:   scaleOrOne(g.XScale),
			YScale:   scaleOrOne(g.YScale),
		}, nil
	}

	return nil, fmt.Errorf("no decoder for %q", t)
}

func normalizeType(t string) (models.EntityType, bool) {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "polyline", "lwpolyline":
		return models.EntityPolyline, true
	case "circle":
		return models.EntityCircle, true
	case "arc":
		return models.EntityArc, true
	case "spline":
		return models.EntitySpline, true
	case "text", "mtext":
		return models.EntityText, true
	case "insert", "block":
		return models.EntityInsert, true
	}
	return "", false
}

func scaleOrOne(v *float64) float64 {
	if v == nil || *v == 0 {
		return 1
	}
	return *v
}
