package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once               sync.Once
	stageDuration      *prom.HistogramVec
	buildDuration      prom.Histogram
	stageResults       *prom.CounterVec
	deployDuration     prom.Histogram
	deployOutcomes     *prom.CounterVec
	publishDuration    *prom.HistogramVec
	scheduledPublishes prom.Counter
	watchRebuilds      prom.Counter
	linkChecks         *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics
// (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "blogbuilder",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "blogbuilder",
			Name:      "build_duration_seconds",
			Help:      "Total site build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogbuilder",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.deployDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "blogbuilder",
			Name:      "deploy_duration_seconds",
			Help:      "Total deploy duration including build and publish",
			Buckets:   prom.DefBuckets,
		})
		pr.deployOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogbuilder",
			Name:      "deploy_outcomes_total",
			Help:      "Deploy outcomes by final status",
		}, []string{"outcome"})
		pr.publishDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "blogbuilder",
			Name:      "publish_duration_seconds",
			Help:      "Duration of hosting repository publishes",
			Buckets:   prom.DefBuckets,
		}, []string{"result"})
		pr.scheduledPublishes = prom.NewCounter(prom.CounterOpts{
			Namespace: "blogbuilder",
			Name:      "scheduled_publishes_total",
			Help:      "Deploys triggered by scheduled posts reaching their date",
		})
		pr.watchRebuilds = prom.NewCounter(prom.CounterOpts{
			Namespace: "blogbuilder",
			Name:      "watch_rebuilds_total",
			Help:      "Rebuilds triggered by the file watcher",
		})
		pr.linkChecks = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogbuilder",
			Name:      "link_checks_total",
			Help:      "External link check results",
		}, []string{"result"})
		reg.MustRegister(
			pr.stageDuration,
			pr.buildDuration,
			pr.stageResults,
			pr.deployDuration,
			pr.deployOutcomes,
			pr.publishDuration,
			pr.scheduledPublishes,
			pr.watchRebuilds,
			pr.linkChecks,
		)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveDeployDuration(d time.Duration) {
	if p == nil || p.deployDuration == nil {
		return
	}
	p.deployDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncDeployOutcome(outcome string) {
	if p == nil || p.deployOutcomes == nil {
		return
	}
	p.deployOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObservePublishDuration(d time.Duration, success bool) {
	if p == nil || p.publishDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.publishDuration.WithLabelValues(res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncScheduledPublish() {
	if p == nil || p.scheduledPublishes == nil {
		return
	}
	p.scheduledPublishes.Inc()
}

func (p *PrometheusRecorder) IncWatchRebuild() {
	if p == nil || p.watchRebuilds == nil {
		return
	}
	p.watchRebuilds.Inc()
}

func (p *PrometheusRecorder) IncLinkCheck(result string) {
	if p == nil || p.linkChecks == nil {
		return
	}
	p.linkChecks.WithLabelValues(result).Inc()
}
