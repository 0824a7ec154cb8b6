package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"plan-modeler/internal/modeler/geom"
	"plan-modeler/internal/modeler/mapper"
	"plan-modeler/internal/modeler/parser"
)

// ============================================================
// Pipeline tuning
// ============================================================

// Pipeline holds the reconstruction tuning read from the YAML file named by
// PIPELINE_CONFIG.
type Pipeline struct {
	CircleSegments int               `yaml:"circle_segments"`
	SplineSamples  int               `yaml:"spline_samples"`
	ArcMode        geom.ArcMode      `yaml:"arc_mode"`
	WallTolerance  float64           `yaml:"wall_tolerance"`
	FloorHeight    float64           `yaml:"floor_height"`
	WallThickness  float64           `yaml:"wall_thickness"`
	Vocabulary     parser.Vocabulary `yaml:"vocabulary"`
}

func DefaultPipeline() *Pipeline {
	return &Pipeline{
		CircleSegments: geom.DefaultCircleSegments,
		SplineSamples:  geom.DefaultSplineSamples,
		ArcMode:        geom.ArcPie,
		WallTolerance:  500,
		FloorHeight:    3000,
		WallThickness:  200,
		Vocabulary:     parser.DefaultVocabulary(),
	}
}

// LoadPipeline reads the YAML file at path over DefaultPipeline. An empty
// path returns the defaults.
func LoadPipeline(path string) (*Pipeline, error) {
	p := DefaultPipeline()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse pipeline config %s: %w", path, err)
	}
	return p, p.Validate()
}

// Validate checks that the values are usable by the pipeline.
func (p *Pipeline) Validate() error {
	if p.CircleSegments < 3 {
		return fmt.Errorf("circle_segments must be >= 3")
	}
	if p.SplineSamples < 2 {
		return fmt.Errorf("spline_samples must be >= 2")
	}
	switch p.ArcMode {
	case geom.ArcPie, geom.ArcChord:
	default:
		return fmt.Errorf("unsupported arc_mode %q (use pie or chord)", p.ArcMode)
	}
	if p.WallTolerance <= 0 {
		return fmt.Errorf("wall_tolerance must be > 0")
	}
	if p.FloorHeight <= 0 {
		return fmt.Errorf("floor_height must be > 0")
	}
	if p.WallThickness < 0 {
		return fmt.Errorf("wall_thickness must be >= 0")
	}
	if len(p.Vocabulary.Door) == 0 || len(p.Vocabulary.Window) == 0 {
		return fmt.Errorf("vocabulary needs door and window keywords")
	}
	return nil
}

// ConverterOptions turns the tuning into converter options.
func (p *Pipeline) ConverterOptions(logger *slog.Logger) mapper.Options {
	return mapper.Options{
		CircleSegments: p.CircleSegments,
		SplineSamples:  p.SplineSamples,
		ArcMode:        p.ArcMode,
		WallTolerance:  p.WallTolerance,
		FloorHeight:    p.FloorHeight,
		WallThickness:  p.WallThickness,
		Vocabulary:     p.Vocabulary,
		Logger:         logger,
	}
}
