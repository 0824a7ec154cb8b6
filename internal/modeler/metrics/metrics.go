package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"plan-modeler/internal/modeler/models"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Pipeline holds the prometheus collectors for the reconstruction and
// solid stages. A nil *Pipeline is valid and records nothing.
type Pipeline struct {
	models   *prometheus.CounterVec
	elements *prometheus.CounterVec
	builds   *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewPipeline creates the pipeline collectors and registers them on reg.
func NewPipeline(reg prometheus.Registerer) (*Pipeline, error) {
	p := &Pipeline{
		models: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modeler_models_total",
				Help: "Total number of reconstruction runs by result.",
			},
			[]string{"result"},
		),
		elements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modeler_element_errors_total",
				Help: "Elements dropped or degraded, by error kind.",
			},
			[]string{"kind"},
		),
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modeler_builds_total",
				Help: "Total number of solid builds by backend and result.",
			},
			[]string{"backend", "result"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "modeler_reconstruct_duration_seconds",
			Help:    "Time spent reconstructing one document.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{p.models, p.elements, p.builds, p.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// ObserveReconstruct records one reconstruction run. Element counts are
// taken from the model diagnostics.
func (p *Pipeline) ObserveReconstruct(model *models.Model, elapsed time.Duration, err error) {
	if p == nil {
		return
	}
	p.duration.Observe(elapsed.Seconds())

	if err != nil {
		p.models.WithLabelValues(ResultError).Inc()
		return
	}
	p.models.WithLabelValues(ResultOK).Inc()

	if model == nil {
		return
	}
	d := model.Diagnostics
	p.add(models.KindUnsupportedEntity, d.SkippedEntities)
	p.add(models.KindInvalidPolygon, d.InvalidPolygons)
	p.add(models.KindOpeningUnassigned, d.UnassignedOpenings)
}

// ObserveBuild records one solid build and the element problems it met.
func (p *Pipeline) ObserveBuild(backend string, problems []*models.ElementError, err error) {
	if p == nil {
		return
	}

	result := ResultOK
	if err != nil {
		result = ResultError
	}
	p.builds.WithLabelValues(backend, result).Inc()

	for _, e := range problems {
		if e != nil {
			p.elements.WithLabelValues(string(e.Kind)).Inc()
		}
	}
}

func (p *Pipeline) add(kind models.ErrorKind, n int) {
	if n > 0 {
		p.elements.WithLabelValues(string(kind)).Add(float64(n))
	}
}
