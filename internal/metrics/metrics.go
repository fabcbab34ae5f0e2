// Package metrics holds the Prometheus collectors shared by the evaluation
// engine, the model providers and the HTTP surfaces.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prompt_trainer"

// Registry is the registry all collectors in this package are registered
// with. A dedicated registry keeps tests independent of the global default.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Evaluations counts completed evaluations.
	Evaluations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluations_total",
		Help:      "Number of completed prompt evaluations.",
	})

	// EvaluationFailures counts evaluations that returned an error.
	EvaluationFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluation_failures_total",
		Help:      "Number of prompt evaluations that failed, by stage.",
	}, []string{"stage"})

	// EvaluationDuration observes the wall time of a single evaluation.
	EvaluationDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "evaluation_duration_seconds",
		Help:      "Time spent scoring a single response.",
		Buckets:   prometheus.DefBuckets,
	})

	// TotalScore observes the weighted total of every evaluation.
	TotalScore = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "total_score",
		Help:      "Distribution of weighted total scores.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	// EmbeddingFallbacks counts semantic scores that fell back to the
	// fixed default because the embedding provider failed.
	EmbeddingFallbacks = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embedding_fallbacks_total",
		Help:      "Number of semantic scores that used the fallback value.",
	})

	// ProviderRequests counts model response requests by provider and outcome.
	ProviderRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Number of model response requests, by provider and outcome.",
	}, []string{"provider", "outcome"})

	// HTTPRequests counts REST API requests by route and status code.
	HTTPRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Number of REST API requests, by route and status code.",
	}, []string{"route", "code"})

	// SelfHostedModels reports the KServe models seen by the last listing.
	SelfHostedModels = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "self_hosted_models",
		Help:      "Number of self-hosted models, by role and readiness.",
	}, []string{"role", "ready"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler returns an HTTP handler exposing Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
