package mocks

import (
	"context"

	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/repository"

	"github.com/stretchr/testify/mock"
)

type MockModelRepository struct {
	mock.Mock
}

func (m *MockModelRepository) Create(ctx context.Context, model *models.Model) error {
	args := m.Called(ctx, model)
	return args.Error(0)
}

func (m *MockModelRepository) FindByID(ctx context.Context, id string) (*models.Model, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Model), args.Error(1)
}

func (m *MockModelRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockModelRepository) SaveArtifact(ctx context.Context, a *repository.Artifact) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockModelRepository) ListArtifacts(ctx context.Context, modelID string) ([]repository.Artifact, error) {
	args := m.Called(ctx, modelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.Artifact), args.Error(1)
}

func (m *MockModelRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
