package models

import (
	"errors"
	"fmt"
)

// ============================================================
// Fatal document errors
// ============================================================

var (
	ErrNoEntities     = errors.New("document contains no entities")
	ErrNoClosedShapes = errors.New("no entities produced a valid polygon")
)

// ============================================================
// Element errors
// ============================================================

// ErrorKind classifies a failure isolated to a single element.
type ErrorKind string

const (
	KindEntityParse       ErrorKind = "entity_parse"
	KindUnsupportedEntity ErrorKind = "unsupported_entity"
	KindInvalidPolygon    ErrorKind = "invalid_polygon"
	KindOpeningUnassigned ErrorKind = "opening_unassigned"
	KindWallOffsetFailed  ErrorKind = "wall_offset_failed"
	KindOpeningCutFailed  ErrorKind = "opening_cut_failed"
)

// ElementError records why one entity, opening or wall was dropped or degraded.
type ElementError struct {
	Kind  ErrorKind
	Index int
	Layer string
	Err   error
}

func (e *ElementError) Error() string {
	if e.Layer != "" {
		return fmt.Sprintf("%s: element %d (layer %q): %v", e.Kind, e.Index, e.Layer, e.Err)
	}
	return fmt.Sprintf("%s: element %d: %v", e.Kind, e.Index, e.Err)
}

func (e *ElementError) Unwrap() error {
	return e.Err
}

// Diagnostics counts non-fatal anomalies met while building a model.
type Diagnostics struct {
	Entities           int `json:"entities"`
	Polygons           int `json:"polygons"`
	SkippedEntities    int `json:"skipped_entities"`
	InvalidPolygons    int `json:"invalid_polygons"`
	OpenShapes         int `json:"open_shapes"`
	UnassignedOpenings int `json:"unassigned_openings"`
	WallOffsetFailures int `json:"wall_offset_failures"`
	OpeningCutFailures int `json:"opening_cut_failures"`
}

// Record bumps the counter matching err's kind.
func (d *Diagnostics) Record(err *ElementError) {
	if err == nil {
		return
	}
	switch err.Kind {
	case KindEntityParse, KindUnsupportedEntity:
		d.SkippedEntities++
	case KindInvalidPolygon:
		d.InvalidPolygons++
	case KindOpeningUnassigned:
		d.UnassignedOpenings++
	case KindWallOffsetFailed:
		d.WallOffsetFailures++
	case KindOpeningCutFailed:
		d.OpeningCutFailures++
	}
}

// RecordAll records every error in errs.
func (d *Diagnostics) RecordAll(errs []*ElementError) {
	for _, err := range errs {
		d.Record(err)
	}
}
