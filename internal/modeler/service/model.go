package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"plan-modeler/internal/modeler/mapper"
	"plan-modeler/internal/modeler/metrics"
	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/repository"
	"plan-modeler/internal/modeler/solid"
	"plan-modeler/internal/modeler/solid/mesh"
	"plan-modeler/internal/modeler/solid/scad"
	"plan-modeler/internal/modeler/storage"
)

var (
	ErrIDRequired         = errors.New("model id is required")
	ErrNotFound           = errors.New("model not found")
	ErrReaderNil          = errors.New("reader is nil")
	ErrUnknownBackend     = errors.New("unknown backend")
	ErrBackendUnavailable = errors.New("backend is not configured")
	ErrArtifactNotFound   = errors.New("artifact not found")
	ErrUnknownFormat      = errors.New("unknown render format")
	ErrInvalidModel       = errors.New("invalid model")
)

const presignExpiry = 15 * time.Minute

var tracer = otel.Tracer("plan-modeler/service")

// Backend names a solid backend.
type Backend string

const (
	// BackendSCAD stores the OpenSCAD script of the assembly.
	BackendSCAD Backend = "scad"
	// BackendMesh stores an ASCII STL built in-process. It cannot cut
	// openings or hollow rooms.
	BackendMesh Backend = "mesh"
	// BackendOpenSCAD compiles the script to STL with the openscad binary.
	BackendOpenSCAD Backend = "openscad"
)

// ParseBackend maps a query value to a Backend; empty means scad.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "":
		return BackendSCAD, nil
	case BackendSCAD, BackendMesh, BackendOpenSCAD:
		return Backend(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
}

// BuildResult describes a stored solid artifact.
type BuildResult struct {
	ModelID     string             `json:"model_id"`
	Backend     Backend            `json:"backend"`
	ArtifactKey string             `json:"artifact_key"`
	Size        int64              `json:"size"`
	URL         string             `json:"url,omitempty"`
	Problems    []string           `json:"problems"`
	Diagnostics models.Diagnostics `json:"diagnostics"`
}

// RenderOptions selects the floor and the image format of a preview.
type RenderOptions struct {
	Level  int
	Format string
	Width  int
}

// ModelService defines the use cases around reconstructed models.
type ModelService interface {
	// Reconstruct converts an entity document and persists the model.
	Reconstruct(ctx context.Context, r io.Reader) (*models.Model, error)

	Get(ctx context.Context, id string) (*models.Model, error)

	// Delete removes a model and every stored artifact.
	Delete(ctx context.Context, id string) error

	// Build runs the wall builder and story composer on a stored model and
	// stores the result for the backend.
	Build(ctx context.Context, id string, backend Backend) (*BuildResult, error)

	// Artifact opens the stored artifact of a backend.
	Artifact(ctx context.Context, id string, backend Backend) (io.ReadCloser, storage.ObjectInfo, error)

	// Render draws one floor of m; it returns the image and its content type.
	Render(ctx context.Context, m *models.Model, opts RenderOptions) ([]byte, string, error)

	Ping(ctx context.Context) error
}

// Options wires the service. Compiler, Metrics and Logger are optional.
type Options struct {
	Converter *mapper.Converter
	Renderer  *mapper.Renderer
	Repo      repository.ModelRepository
	Store     storage.Storage
	Compiler  *scad.Compiler
	Metrics   *metrics.Pipeline
	Logger    *slog.Logger
}

type modelService struct {
	conv     *mapper.Converter
	renderer *mapper.Renderer
	repo     repository.ModelRepository
	store    storage.Storage
	compiler *scad.Compiler
	metrics  *metrics.Pipeline
	logger   *slog.Logger
	newID    func() string
}

func NewModelService(opts Options) ModelService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Converter == nil {
		opts.Converter = mapper.New(mapper.Options{Logger: opts.Logger})
	}
	if opts.Renderer == nil {
		opts.Renderer = mapper.NewRenderer()
	}
	return &modelService{
		conv:     opts.Converter,
		renderer: opts.Renderer,
		repo:     opts.Repo,
		store:    opts.Store,
		compiler: opts.Compiler,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		newID:    uuid.NewString,
	}
}

// ============================================================
// Models
// ============================================================

func (s *modelService) Reconstruct(ctx context.Context, r io.Reader) (*models.Model, error) {
	ctx, span := tracer.Start(ctx, "ModelService.Reconstruct")
	defer span.End()

	if r == nil {
		return nil, fail(span, ErrReaderNil)
	}

	start := time.Now()
	m, err := s.conv.Convert(r)
	s.metrics.ObserveReconstruct(m, time.Since(start), err)
	if err != nil {
		return nil, fail(span, err)
	}

	m.ID = s.newID()
	span.SetAttributes(
		attribute.String("model.id", m.ID),
		attribute.Int("model.floors", len(m.Floors)),
		attribute.Int("model.openings", len(m.Openings)),
	)

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fail(span, fmt.Errorf("save model: %w", err))
	}
	return m, nil
}

func (s *modelService) Get(ctx context.Context, id string) (*models.Model, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *modelService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}

	artifacts, err := s.repo.ListArtifacts(ctx, id)
	if err != nil {
		return fmt.Errorf("list artifacts: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	for _, a := range artifacts {
		if err := s.store.Delete(ctx, a.Key); err != nil {
			s.logger.Warn("artifact not removed", "model_id", id, "key", a.Key, "error", err)
		}
	}
	return nil
}

func (s *modelService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// ============================================================
// Solid artifacts
// ============================================================

type export struct {
	data        []byte
	ext         string
	contentType string
}

func (s *modelService) Build(ctx context.Context, id string, backend Backend) (*BuildResult, error) {
	ctx, span := tracer.Start(ctx, "ModelService.Build",
		trace.WithAttributes(attribute.String("model.id", id), attribute.String("backend", string(backend))))
	defer span.End()

	backend, err := ParseBackend(string(backend))
	if err != nil {
		return nil, fail(span, err)
	}
	if backend == BackendOpenSCAD && s.compiler == nil {
		return nil, fail(span, fmt.Errorf("%w: %s", ErrBackendUnavailable, backend))
	}

	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}

	out, problems, err := s.export(ctx, m, backend)
	s.metrics.ObserveBuild(string(backend), problems, err)
	if err != nil {
		return nil, fail(span, fmt.Errorf("build %s: %w", backend, err))
	}

	key := storage.ArtifactKey(id, string(backend), out.ext)
	info, err := s.store.Put(ctx, key, bytes.NewReader(out.data), storage.PutObjectOptions{
		Size:        int64(len(out.data)),
		ContentType: out.contentType,
		Metadata:    map[string]string{"model-id": id, "backend": string(backend)},
	})
	if err != nil {
		return nil, fail(span, fmt.Errorf("upload to storage: %w", err))
	}

	artifact := &repository.Artifact{
		ModelID:  id,
		Backend:  string(backend),
		Key:      info.Key,
		Size:     info.Size,
		Problems: len(problems),
	}
	if err := s.repo.SaveArtifact(ctx, artifact); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fail(span, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr))
		}
		return nil, fail(span, fmt.Errorf("db save failed: %w", err))
	}

	diag := m.Diagnostics
	diag.RecordAll(problems)

	result := &BuildResult{
		ModelID:     id,
		Backend:     backend,
		ArtifactKey: info.Key,
		Size:        info.Size,
		Problems:    make([]string, 0, len(problems)),
		Diagnostics: diag,
	}
	for _, p := range problems {
		result.Problems = append(result.Problems, p.Error())
	}
	if url, err := s.store.PresignGet(ctx, info.Key, presignExpiry); err == nil {
		result.URL = url
	}

	span.SetAttributes(attribute.Int("build.problems", len(problems)), attribute.Int64("build.size", info.Size))
	s.logger.Info("model built", "model_id", id, "backend", backend, "size", info.Size, "problems", len(problems))
	return result, nil
}

func (s *modelService) export(ctx context.Context, m *models.Model, backend Backend) (*export, []*models.ElementError, error) {
	opts := solid.Options{WallThickness: m.WallThickness, Logger: s.logger}

	if backend == BackendMesh {
		assembly, problems, err := solid.NewWallBuilder(mesh.NewKernel(), opts).Build(m)
		if err != nil {
			return nil, problems, err
		}
		var buf bytes.Buffer
		if err := mesh.WriteSTL(&buf, "model_"+m.ID, assembly); err != nil {
			return nil, problems, err
		}
		return &export{data: buf.Bytes(), ext: "stl", contentType: "model/stl"}, problems, nil
	}

	kernel := scad.NewKernel()
	assembly, problems, err := solid.NewWallBuilder(kernel, opts).Build(m)
	if err != nil {
		return nil, problems, err
	}
	script, err := kernel.Render(assembly)
	if err != nil {
		return nil, problems, err
	}
	if backend == BackendSCAD {
		return &export{data: []byte(script), ext: "scad", contentType: "text/plain; charset=utf-8"}, problems, nil
	}

	name := "model-" + m.ID
	defer s.compiler.Cleanup(name)

	data, res, err := s.compiler.CompileToBytes(ctx, script, name, scad.FormatSTL)
	if err != nil {
		return nil, problems, err
	}
	for _, w := range res.Warnings {
		s.logger.Warn("openscad warning", "model_id", m.ID, "warning", w)
	}
	return &export{data: data, ext: "stl", contentType: "model/stl"}, problems, nil
}

func (s *modelService) Artifact(ctx context.Context, id string, backend Backend) (io.ReadCloser, storage.ObjectInfo, error) {
	if id == "" {
		return nil, storage.ObjectInfo{}, ErrIDRequired
	}

	artifacts, err := s.repo.ListArtifacts(ctx, id)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	for _, a := range artifacts {
		if a.Backend != string(backend) {
			continue
		}
		rc, info, err := s.store.Get(ctx, a.Key)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ObjectInfo{}, ErrArtifactNotFound
		}
		return rc, info, err
	}
	return nil, storage.ObjectInfo{}, ErrArtifactNotFound
}

// ============================================================
// Previews
// ============================================================

func (s *modelService) Render(ctx context.Context, m *models.Model, opts RenderOptions) ([]byte, string, error) {
	_, span := tracer.Start(ctx, "ModelService.Render",
		trace.WithAttributes(attribute.Int("floor.level", opts.Level), attribute.String("format", opts.Format)))
	defer span.End()

	switch opts.Format {
	case "", "svg":
		svg, err := s.renderer.Render(m, opts.Level)
		if err != nil {
			return nil, "", fail(span, fmt.Errorf("%w: %v", ErrInvalidModel, err))
		}
		return []byte(svg), "image/svg+xml", nil
	case "png":
		data, err := s.renderer.RenderPNG(m, opts.Level, opts.Width)
		if err != nil {
			return nil, "", fail(span, fmt.Errorf("%w: %v", ErrInvalidModel, err))
		}
		return data, "image/png", nil
	}
	return nil, "", fail(span, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
