package mocks

import (
	"context"
	"io"

	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/service"
	"plan-modeler/internal/modeler/storage"

	"github.com/stretchr/testify/mock"
)

type MockModelService struct {
	mock.Mock
}

func (m *MockModelService) Reconstruct(ctx context.Context, r io.Reader) (*models.Model, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Model), args.Error(1)
}

func (m *MockModelService) Get(ctx context.Context, id string) (*models.Model, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Model), args.Error(1)
}

func (m *MockModelService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockModelService) Build(ctx context.Context, id string, backend service.Backend) (*service.BuildResult, error) {
	args := m.Called(ctx, id, backend)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BuildResult), args.Error(1)
}

func (m *MockModelService) Artifact(ctx context.Context, id string, backend service.Backend) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, id, backend)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.ObjectInfo), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockModelService) Render(ctx context.Context, model *models.Model, opts service.RenderOptions) ([]byte, string, error) {
	args := m.Called(ctx, model, opts)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockModelService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
