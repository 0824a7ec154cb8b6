package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"plan-modeler/internal/modeler/mapper"
	"plan-modeler/internal/modeler/metrics"
	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/repository"
	repoMocks "plan-modeler/internal/modeler/repository/mocks"
	"plan-modeler/internal/modeler/solid"
	"plan-modeler/internal/modeler/solid/scad"
	"plan-modeler/internal/modeler/storage"
	storeMocks "plan-modeler/internal/modeler/storage/mocks"
)

const roomWithDoor = `{"wall_thickness": 200, "entities": [
  {"type": "polyline", "layer": "FLOOR-0", "geometry": {"vertices": [[0,0],[5000,0],[5000,4000],[0,4000]], "closed": true}},
  {"type": "insert", "layer": "FLOOR-0", "geometry": {"block": "DOOR", "position": [2500, 0]}},
  {"type": "hatch", "geometry": {}}
]}`

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestService(t *testing.T, repo *repoMocks.MockModelRepository, store *storeMocks.MockStorage, compiler *scad.Compiler) (*modelService, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	p, err := metrics.NewPipeline(reg)
	require.NoError(t, err)

	svc := NewModelService(Options{
		Converter: mapper.New(mapper.Options{Logger: discard}),
		Repo:      repo,
		Store:     store,
		Compiler:  compiler,
		Metrics:   p,
		Logger:    discard,
	}).(*modelService)
	svc.newID = func() string { return "m-1" }
	return svc, reg
}

func storedModel() *models.Model {
	return &models.Model{
		ID: "m-1",
		Floors: []models.Floor{{
			Level:  0,
			Height: 3000,
			Polygons: []models.Polygon{{Points: []models.Point{
				{X: 0, Y: 0}, {X: 5000, Y: 0}, {X: 5000, Y: 4000}, {X: 0, Y: 4000},
			}}},
		}},
		Openings: []models.Opening{{
			Kind: models.OpeningDoor, Position: models.Point{X: 2500}, Width: 900, Height: 2100,
		}},
		Labels:        []models.TextLabel{},
		WallThickness: 200,
		Diagnostics:   models.Diagnostics{Entities: 2, Polygons: 1},
	}
}

// capturePut records the uploaded bytes and echoes the object info.
func capturePut(dst *string) func(context.Context, string, io.Reader, storage.PutObjectOptions) storage.ObjectInfo {
	return func(_ context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
		data, _ := io.ReadAll(r)
		*dst = string(data)
		return storage.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: opt.ContentType}
	}
}

// ============================================================
// Reconstruct / Get / Delete
// ============================================================

func TestModelService_Reconstruct(t *testing.T) {
	tests := []struct {
		name       string
		body       io.Reader
		setupMocks func(mRepo *repoMocks.MockModelRepository)
		wantErr    error
		wantErrMsg string
		wantResult string
	}{
		{
			name: "happy path",
			body: strings.NewReader(roomWithDoor),
			setupMocks: func(mRepo *repoMocks.MockModelRepository) {
				mRepo.On("Create", mock.Anything, mock.MatchedBy(func(m *models.Model) bool {
					return m.ID == "m-1" && len(m.Openings) == 1
				})).Return(nil)
			},
			wantResult: metrics.ResultOK,
		},
		{
			name:    "nil reader",
			body:    nil,
			wantErr: ErrReaderNil,
		},
		{
			name:       "invalid document",
			body:       strings.NewReader(`{"entities": [`),
			wantErr:    mapper.ErrInvalidDocument,
			wantResult: metrics.ResultError,
		},
		{
			name:       "no entities",
			body:       strings.NewReader(`{"entities": []}`),
			wantErr:    models.ErrNoEntities,
			wantResult: metrics.ResultError,
		},
		{
			name: "repository error",
			body: strings.NewReader(roomWithDoor),
			setupMocks: func(mRepo *repoMocks.MockModelRepository) {
				mRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))
			},
			wantErrMsg: "save model: disk full",
			wantResult: metrics.ResultOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockModelRepository)
			if tt.setupMocks != nil {
				tt.setupMocks(mRepo)
			}
			svc, reg := newTestService(t, mRepo, new(storeMocks.MockStorage), nil)

			m, err := svc.Reconstruct(context.Background(), tt.body)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, m)
			case tt.wantErrMsg != "":
				assert.EqualError(t, err, tt.wantErrMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, "m-1", m.ID)
				assert.Equal(t, 1, m.Diagnostics.SkippedEntities)
			}
			runs, err := testutil.GatherAndCount(reg, "modeler_models_total")
			require.NoError(t, err)
			if tt.wantResult != "" {
				assert.Equal(t, 1, runs)
			} else {
				assert.Zero(t, runs)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestModelService_Get(t *testing.T) {
	ctx := context.Background()

	mRepo := new(repoMocks.MockModelRepository)
	svc, _ := newTestService(t, mRepo, new(storeMocks.MockStorage), nil)

	_, err := svc.Get(ctx, "")
	assert.ErrorIs(t, err, ErrIDRequired)

	mRepo.On("FindByID", ctx, "missing").Return(nil, repository.ErrNotFound).Once()
	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mRepo.On("FindByID", ctx, "broken").Return(nil, errors.New("db down")).Once()
	_, err = svc.Get(ctx, "broken")
	assert.EqualError(t, err, "db down")

	mRepo.On("FindByID", ctx, "m-1").Return(storedModel(), nil).Once()
	m, err := svc.Get(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "m-1", m.ID)

	mRepo.AssertExpectations(t)
}

func TestModelService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes artifacts", func(t *testing.T) {
		mRepo := new(repoMocks.MockModelRepository)
		mStore := new(storeMocks.MockStorage)
		svc, _ := newTestService(t, mRepo, mStore, nil)

		mRepo.On("ListArtifacts", ctx, "m-1").Return([]repository.Artifact{
			{Backend: "scad", Key: "models/m-1/scad.scad"},
			{Backend: "mesh", Key: "models/m-1/mesh.stl"},
		}, nil)
		mRepo.On("Delete", ctx, "m-1").Return(nil)
		mStore.On("Delete", ctx, "models/m-1/scad.scad").Return(nil)
		mStore.On("Delete", ctx, "models/m-1/mesh.stl").Return(errors.New("gone"))

		assert.NoError(t, svc.Delete(ctx, "m-1"), "storage cleanup failures are logged only")
		mRepo.AssertExpectations(t)
		mStore.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mRepo := new(repoMocks.MockModelRepository)
		mStore := new(storeMocks.MockStorage)
		svc, _ := newTestService(t, mRepo, mStore, nil)

		mRepo.On("ListArtifacts", ctx, "nope").Return([]repository.Artifact{}, nil)
		mRepo.On("Delete", ctx, "nope").Return(repository.ErrNotFound)

		assert.ErrorIs(t, svc.Delete(ctx, "nope"), ErrNotFound)
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("id required", func(t *testing.T) {
		svc, _ := newTestService(t, new(repoMocks.MockModelRepository), new(storeMocks.MockStorage), nil)
		assert.ErrorIs(t, svc.Delete(ctx, ""), ErrIDRequired)
	})
}

// ============================================================
// Build
// ============================================================

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendSCAD, b)

	b, err = ParseBackend("mesh")
	require.NoError(t, err)
	assert.Equal(t, BackendMesh, b)

	_, err = ParseBackend("blender")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestModelService_Build_SCAD(t *testing.T) {
	mRepo := new(repoMocks.MockModelRepository)
	mStore := new(storeMocks.MockStorage)
	svc, reg := newTestService(t, mRepo, mStore, nil)

	var uploaded string
	mRepo.On("FindByID", mock.Anything, "m-1").Return(storedModel(), nil)
	mStore.On("Put", mock.Anything, "models/m-1/scad.scad", mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
		return opt.ContentType == "text/plain; charset=utf-8" && opt.Metadata["backend"] == "scad"
	})).Return(capturePut(&uploaded), nil)
	mRepo.On("SaveArtifact", mock.Anything, mock.MatchedBy(func(a *repository.Artifact) bool {
		return a.ModelID == "m-1" && a.Backend == "scad" && a.Key == "models/m-1/scad.scad" && a.Problems == 0
	})).Return(nil)
	mStore.On("PresignGet", mock.Anything, "models/m-1/scad.scad", presignExpiry).Return("", storage.ErrPresignUnsupported)

	res, err := svc.Build(context.Background(), "m-1", "")
	require.NoError(t, err)

	assert.Equal(t, BackendSCAD, res.Backend)
	assert.Equal(t, "models/m-1/scad.scad", res.ArtifactKey)
	assert.Equal(t, int64(len(uploaded)), res.Size)
	assert.Empty(t, res.URL)
	assert.Empty(t, res.Problems)
	assert.Equal(t, 1, res.Diagnostics.Polygons)

	assert.True(t, strings.HasPrefix(uploaded, "// plan-modeler wall assembly"))
	assert.Contains(t, uploaded, "difference()")
	assert.Contains(t, uploaded, "translate([2500, 0, 1050]) rotate([0, 0, 0])")

	builds, err := testutil.GatherAndCount(reg, "modeler_builds_total")
	require.NoError(t, err)
	assert.Equal(t, 1, builds)
	mRepo.AssertExpectations(t)
	mStore.AssertExpectations(t)
}

func TestModelService_Build_MeshDegrades(t *testing.T) {
	mRepo := new(repoMocks.MockModelRepository)
	mStore := new(storeMocks.MockStorage)
	svc, _ := newTestService(t, mRepo, mStore, nil)

	var uploaded string
	mRepo.On("FindByID", mock.Anything, "m-1").Return(storedModel(), nil)
	mStore.On("Put", mock.Anything, "models/m-1/mesh.stl", mock.Anything, mock.Anything).Return(capturePut(&uploaded), nil)
	mRepo.On("SaveArtifact", mock.Anything, mock.MatchedBy(func(a *repository.Artifact) bool {
		return a.Backend == "mesh" && a.Problems == 2
	})).Return(nil)
	mStore.On("PresignGet", mock.Anything, "models/m-1/mesh.stl", presignExpiry).Return("https://s3/mesh.stl?sig", nil)

	res, err := svc.Build(context.Background(), "m-1", BackendMesh)
	require.NoError(t, err)

	assert.Equal(t, "https://s3/mesh.stl?sig", res.URL)
	assert.Len(t, res.Problems, 2)
	assert.Equal(t, 1, res.Diagnostics.WallOffsetFailures)
	assert.Equal(t, 1, res.Diagnostics.OpeningCutFailures)
	assert.True(t, strings.HasPrefix(uploaded, "solid model_m-1\n"))
	assert.True(t, strings.HasSuffix(uploaded, "endsolid model_m-1\n"))
}

func TestModelService_Build_OpenSCAD(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a unix shell")
	}
	exe := filepath.Join(t.TempDir(), "openscad")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\necho \"solid compiled\" > \"$2\"\n"), 0755))
	compiler, err := scad.NewCompiler(exe, t.TempDir())
	require.NoError(t, err)

	mRepo := new(repoMocks.MockModelRepository)
	mStore := new(storeMocks.MockStorage)
	svc, _ := newTestService(t, mRepo, mStore, compiler)

	var uploaded string
	mRepo.On("FindByID", mock.Anything, "m-1").Return(storedModel(), nil)
	mStore.On("Put", mock.Anything, "models/m-1/openscad.stl", mock.Anything, mock.Anything).Return(capturePut(&uploaded), nil)
	mRepo.On("SaveArtifact", mock.Anything, mock.Anything).Return(nil)
	mStore.On("PresignGet", mock.Anything, mock.Anything, mock.Anything).Return("", storage.ErrPresignUnsupported)

	res, err := svc.Build(context.Background(), "m-1", BackendOpenSCAD)
	require.NoError(t, err)
	assert.Equal(t, "solid compiled\n", uploaded)
	assert.Equal(t, BackendOpenSCAD, res.Backend)

	entries, err := os.ReadDir(compiler.OutputDir())
	require.NoError(t, err)
	assert.Empty(t, entries, "compiler files are cleaned up")
}

func TestModelService_Build_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		backend    Backend
		setupMocks func(mRepo *repoMocks.MockModelRepository, mStore *storeMocks.MockStorage)
		wantErr    error
		wantErrMsg string
	}{
		{
			name:    "unknown backend",
			backend: "blender",
			wantErr: ErrUnknownBackend,
		},
		{
			name:    "openscad without compiler",
			backend: BackendOpenSCAD,
			wantErr: ErrBackendUnavailable,
		},
		{
			name:    "model not found",
			backend: BackendSCAD,
			setupMocks: func(mRepo *repoMocks.MockModelRepository, mStore *storeMocks.MockStorage) {
				mRepo.On("FindByID", mock.Anything, "m-1").Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name:    "nothing to build",
			backend: BackendSCAD,
			setupMocks: func(mRepo *repoMocks.MockModelRepository, mStore *storeMocks.MockStorage) {
				mRepo.On("FindByID", mock.Anything, "m-1").Return(&models.Model{ID: "m-1"}, nil)
			},
			wantErr: solid.ErrEmptyAssembly,
		},
		{
			name:    "storage error",
			backend: BackendSCAD,
			setupMocks: func(mRepo *repoMocks.MockModelRepository, mStore *storeMocks.MockStorage) {
				mRepo.On("FindByID", mock.Anything, "m-1").Return(storedModel(), nil)
				mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("bucket gone"))
			},
			wantErrMsg: "upload to storage: bucket gone",
		},
		{
			name:    "db error rolls back storage",
			backend: BackendSCAD,
			setupMocks: func(mRepo *repoMocks.MockModelRepository, mStore *storeMocks.MockStorage) {
				mRepo.On("FindByID", mock.Anything, "m-1").Return(storedModel(), nil)
				mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "models/m-1/scad.scad", Size: 10}, nil)
				mRepo.On("SaveArtifact", mock.Anything, mock.Anything).Return(errors.New("locked"))
				mStore.On("Delete", mock.Anything, "models/m-1/scad.scad").Return(nil)
			},
			wantErrMsg: "db save failed: locked",
		},
		{
			name:    "db error and failed rollback",
			backend: BackendSCAD,
			setupMocks: func(mRepo *repoMocks.MockModelRepository, mStore *storeMocks.MockStorage) {
				mRepo.On("FindByID", mock.Anything, "m-1").Return(storedModel(), nil)
				mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "models/m-1/scad.scad", Size: 10}, nil)
				mRepo.On("SaveArtifact", mock.Anything, mock.Anything).Return(errors.New("locked"))
				mStore.On("Delete", mock.Anything, "models/m-1/scad.scad").Return(errors.New("denied"))
			},
			wantErrMsg: "db save failed: locked; rollback delete failed: denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockModelRepository)
			mStore := new(storeMocks.MockStorage)
			if tt.setupMocks != nil {
				tt.setupMocks(mRepo, mStore)
			}
			svc, _ := newTestService(t, mRepo, mStore, nil)

			res, err := svc.Build(ctx, "m-1", tt.backend)

			assert.Nil(t, res)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.EqualError(t, err, tt.wantErrMsg)
			}
			mRepo.AssertExpectations(t)
			mStore.AssertExpectations(t)
		})
	}
}

// ============================================================
// Artifact / Render
// ============================================================

func TestModelService_Artifact(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockModelRepository)
	mStore := new(storeMocks.MockStorage)
	svc, _ := newTestService(t, mRepo, mStore, nil)

	mRepo.On("ListArtifacts", ctx, "m-1").Return([]repository.Artifact{
		{Backend: "scad", Key: "models/m-1/scad.scad"},
		{Backend: "mesh", Key: "models/m-1/mesh.stl"},
	}, nil)
	mStore.On("Get", ctx, "models/m-1/scad.scad").
		Return(io.NopCloser(strings.NewReader("cube(1);")), storage.ObjectInfo{Key: "models/m-1/scad.scad", Size: 8}, nil)
	mStore.On("Get", ctx, "models/m-1/mesh.stl").
		Return(nil, storage.ObjectInfo{}, storage.ErrNotFound)

	rc, info, err := svc.Artifact(ctx, "m-1", BackendSCAD)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "cube(1);", string(data))
	assert.Equal(t, int64(8), info.Size)

	_, _, err = svc.Artifact(ctx, "m-1", BackendMesh)
	assert.ErrorIs(t, err, ErrArtifactNotFound, "object missing from storage")

	_, _, err = svc.Artifact(ctx, "m-1", BackendOpenSCAD)
	assert.ErrorIs(t, err, ErrArtifactNotFound, "never built")

	_, _, err = svc.Artifact(ctx, "", BackendSCAD)
	assert.ErrorIs(t, err, ErrIDRequired)
}

func TestModelService_Render(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, new(repoMocks.MockModelRepository), new(storeMocks.MockStorage), nil)

	data, ct, err := svc.Render(ctx, storedModel(), RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", ct)
	assert.Contains(t, string(data), `<path id="room-0"`)

	data, ct, err = svc.Render(ctx, storedModel(), RenderOptions{Format: "png", Width: 200})
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, "\x89PNG", string(data[:4]))

	_, _, err = svc.Render(ctx, storedModel(), RenderOptions{Format: "gif"})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, _, err = svc.Render(ctx, storedModel(), RenderOptions{Level: 3})
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestModelService_Ping(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockModelRepository)
	svc, _ := newTestService(t, mRepo, new(storeMocks.MockStorage), nil)

	mRepo.On("Ping", ctx).Return(errors.New("closed")).Once()
	assert.Error(t, svc.Ping(ctx))
}
