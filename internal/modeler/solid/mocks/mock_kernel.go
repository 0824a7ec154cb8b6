package mocks

import (
	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/solid"

	"github.com/stretchr/testify/mock"
)

type MockKernel struct {
	mock.Mock
}

func (m *MockKernel) Extrude(polygon []models.Point, height float64) (solid.Solid, error) {
	args := m.Called(polygon, height)
	return args.Get(0), args.Error(1)
}

func (m *MockKernel) OffsetInward(polygon []models.Point, distance float64) ([]models.Point, error) {
	args := m.Called(polygon, distance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Point), args.Error(1)
}

func (m *MockKernel) Subtract(a, b solid.Solid) (solid.Solid, error) {
	args := m.Called(a, b)
	return args.Get(0), args.Error(1)
}

func (m *MockKernel) Union(a, b solid.Solid) (solid.Solid, error) {
	args := m.Called(a, b)
	return args.Get(0), args.Error(1)
}

func (m *MockKernel) Translate(s solid.Solid, offset models.Point3) (solid.Solid, error) {
	args := m.Called(s, offset)
	return args.Get(0), args.Error(1)
}

func (m *MockKernel) Box(pose models.OpeningCutPose) (solid.Solid, error) {
	args := m.Called(pose)
	return args.Get(0), args.Error(1)
}
