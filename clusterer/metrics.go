package clusterer

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	methodLabel  = "method"
	errTypeLabel = "error_type"
)

var (
	renderPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterer_render_passes",
		Help: "The number of reconciled render passes.",
	}, []string{methodLabel})

	renderSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterer_render_skipped",
		Help: "The number of render passes whose reconciliation was skipped by a hook.",
	}, []string{methodLabel})

	renderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterer_render_errors",
		Help: "The errors that occured during render passes.",
	}, []string{methodLabel, errTypeLabel})

	renderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clusterer_render_duration_seconds",
		Help:    "The time taken by reconciled render passes.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	}, []string{methodLabel})

	entitiesAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterer_entities_added",
		Help: "The number of entities added to hosts.",
	}, []string{methodLabel})

	entitiesRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clusterer_entities_removed",
		Help: "The number of entities removed from hosts.",
	}, []string{methodLabel})
)

func instrumentRender(s Stats) {
	labels := prometheus.Labels{methodLabel: s.Method}

	renderPasses.With(labels).Inc()
	renderDuration.With(labels).Observe(s.Duration.Seconds())
	entitiesAdded.With(labels).Add(float64(s.Added))
	entitiesRemoved.With(labels).Add(float64(s.Removed))
}

func instrumentSkippedRender(method string) {
	renderSkipped.
		With(prometheus.Labels{methodLabel: method}).
		Inc()
}

func instrumentRenderError(method string, err error) {
	renderErrors.
		With(prometheus.Labels{
			methodLabel:  method,
			errTypeLabel: errors.Type(err),
		}).
		Inc()
}
