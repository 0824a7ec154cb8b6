// Command reconstruct converts an entity document into a floor plan model
// and optionally writes its solid and preview outputs.
//
// Usage:
//
//	reconstruct -in plan.json -out model.json
//	reconstruct -in plan.json -scad model.scad -stl model.stl
//	reconstruct -in plan.json -svg floor0.svg -level 0
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"plan-modeler/internal/common/config"
	"plan-modeler/internal/modeler/mapper"
	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/solid"
	"plan-modeler/internal/modeler/solid/mesh"
	"plan-modeler/internal/modeler/solid/scad"
)

type options struct {
	in        string
	out       string
	scadPath  string
	stlPath   string
	svgPath   string
	level     int
	config    string
	thickness float64
	openscad  string
}

func main() {
	var opts options
	flag.StringVar(&opts.in, "in", "-", "entity document (JSON), - for stdin")
	flag.StringVar(&opts.out, "out", "-", "model output (JSON), - for stdout, empty to skip")
	flag.StringVar(&opts.scadPath, "scad", "", "write the OpenSCAD script of the assembly")
	flag.StringVar(&opts.stlPath, "stl", "", "write an STL of the assembly")
	flag.StringVar(&opts.svgPath, "svg", "", "write an SVG preview of one floor")
	flag.IntVar(&opts.level, "level", 0, "floor level of the SVG preview")
	flag.StringVar(&opts.config, "config", "", "pipeline tuning YAML")
	flag.Float64Var(&opts.thickness, "thickness", -1, "wall thickness, overrides the document; negative keeps it")
	flag.StringVar(&opts.openscad, "openscad", "", "openscad binary; when set the STL is compiled from the script")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, opts, os.Stdin, os.Stdout); err != nil {
		logger.Error("reconstruct: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, opts options, stdin io.Reader, stdout io.Writer) error {
	pipeline, err := config.LoadPipeline(opts.config)
	if err != nil {
		return err
	}

	in := stdin
	if opts.in != "-" {
		f, err := os.Open(opts.in)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	m, err := mapper.New(pipeline.ConverterOptions(logger)).Convert(in)
	if err != nil {
		return err
	}
	if opts.thickness >= 0 {
		m.WallThickness = opts.thickness
	}
	logger.Info("model reconstructed",
		"floors", len(m.Floors),
		"openings", len(m.Openings),
		"labels", len(m.Labels),
		"skipped_entities", m.Diagnostics.SkippedEntities,
		"invalid_polygons", m.Diagnostics.InvalidPolygons,
		"open_shapes", m.Diagnostics.OpenShapes,
	)

	if err := writeModel(m, opts.out, stdout); err != nil {
		return err
	}
	if opts.svgPath != "" {
		svg, err := mapper.NewRenderer().Render(m, opts.level)
		if err != nil {
			return fmt.Errorf("render floor %d: %w", opts.level, err)
		}
		if err := os.WriteFile(opts.svgPath, []byte(svg), 0o644); err != nil {
			return fmt.Errorf("write svg: %w", err)
		}
	}
	if opts.scadPath == "" && opts.stlPath == "" {
		return nil
	}
	return writeSolids(ctx, logger, m, opts)
}

func writeModel(m *models.Model, path string, stdout io.Writer) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// writeSolids builds the OpenSCAD script when a script or an openscad STL is
// requested, and the in-process mesh otherwise.
func writeSolids(ctx context.Context, logger *slog.Logger, m *models.Model, opts options) error {
	builderOpts := solid.Options{WallThickness: m.WallThickness, Logger: logger}

	if opts.scadPath != "" || opts.openscad != "" {
		kernel := scad.NewKernel()
		assembly, problems, err := solid.NewWallBuilder(kernel, builderOpts).Build(m)
		logProblems(logger, "scad", problems)
		if err != nil {
			return fmt.Errorf("build scad: %w", err)
		}
		script, err := kernel.Render(assembly)
		if err != nil {
			return fmt.Errorf("render scad: %w", err)
		}
		if opts.scadPath != "" {
			if err := os.WriteFile(opts.scadPath, []byte(script), 0o644); err != nil {
				return fmt.Errorf("write scad: %w", err)
			}
		}
		if opts.stlPath != "" && opts.openscad != "" {
			return compileSTL(ctx, logger, script, opts)
		}
	}
	if opts.stlPath == "" || opts.openscad != "" {
		return nil
	}

	assembly, problems, err := solid.NewWallBuilder(mesh.NewKernel(), builderOpts).Build(m)
	logProblems(logger, "mesh", problems)
	if err != nil {
		return fmt.Errorf("build mesh: %w", err)
	}
	var buf bytes.Buffer
	if err := mesh.WriteSTL(&buf, "plan", assembly); err != nil {
		return fmt.Errorf("encode stl: %w", err)
	}
	return os.WriteFile(opts.stlPath, buf.Bytes(), 0o644)
}

func compileSTL(ctx context.Context, logger *slog.Logger, script string, opts options) error {
	dir, err := os.MkdirTemp("", "reconstruct-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	compiler, err := scad.NewCompiler(opts.openscad, dir)
	if err != nil {
		return err
	}
	data, res, err := compiler.CompileToBytes(ctx, script, "plan", scad.FormatSTL)
	if err != nil {
		return fmt.Errorf("compile stl: %w", err)
	}
	for _, w := range res.Warnings {
		logger.Warn("openscad warning", "warning", w)
	}
	return os.WriteFile(opts.stlPath, data, 0o644)
}

func logProblems(logger *slog.Logger, backend string, problems []*models.ElementError) {
	for _, p := range problems {
		logger.Warn("element degraded", "backend", backend, "kind", p.Kind, "error", p.Err)
	}
}
