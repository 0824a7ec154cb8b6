package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan-modeler/internal/modeler/models"
)

func TestPipeline_ObserveReconstruct(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPipeline(reg)
	require.NoError(t, err)

	model := &models.Model{Diagnostics: models.Diagnostics{
		SkippedEntities:    2,
		UnassignedOpenings: 1,
	}}
	p.ObserveReconstruct(model, 20*time.Millisecond, nil)
	p.ObserveReconstruct(nil, time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.models.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.models.WithLabelValues(ResultError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.elements.WithLabelValues(string(models.KindUnsupportedEntity))))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.elements.WithLabelValues(string(models.KindOpeningUnassigned))))
	assert.Equal(t, 1, testutil.CollectAndCount(p.duration))
}

func TestPipeline_ObserveBuild(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPipeline(reg)
	require.NoError(t, err)

	problems := []*models.ElementError{
		{Kind: models.KindWallOffsetFailed},
		{Kind: models.KindOpeningCutFailed},
		{Kind: models.KindOpeningCutFailed},
		nil,
	}
	p.ObserveBuild("mesh", problems, nil)
	p.ObserveBuild("scad", nil, errors.New("empty"))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.builds.WithLabelValues("mesh", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.builds.WithLabelValues("scad", ResultError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.elements.WithLabelValues(string(models.KindOpeningCutFailed))))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.elements.WithLabelValues(string(models.KindWallOffsetFailed))))
}

func TestPipeline_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPipeline(reg)
	require.NoError(t, err)

	_, err = NewPipeline(reg)
	assert.Error(t, err)
}

func TestPipeline_Nil(t *testing.T) {
	var p *Pipeline
	assert.NotPanics(t, func() {
		p.ObserveReconstruct(&models.Model{}, time.Second, nil)
		p.ObserveBuild("scad", nil, nil)
	})
}
