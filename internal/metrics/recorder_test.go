package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorder_SatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("run_hugo", time.Second)
	r.ObserveBuildDuration(time.Second)
	r.IncStageResult("run_hugo", ResultSuccess)
	r.ObserveDeployDuration(2 * time.Second)
	r.IncDeployOutcome("success")
	r.ObservePublishDuration(time.Second, true)
	r.IncScheduledPublish()
	r.IncWatchRebuild()
	r.IncLinkCheck("ok")
}

func TestPrometheusRecorder_RecordsCounters(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	var r Recorder = pr

	r.IncStageResult("run_hugo", ResultSuccess)
	r.IncStageResult("run_hugo", ResultSuccess)
	r.IncStageResult("verify_output", ResultWarning)
	r.IncDeployOutcome("success")
	r.IncDeployOutcome("no_changes")
	r.IncScheduledPublish()
	r.IncWatchRebuild()
	r.IncLinkCheck("broken")

	require.Equal(t, float64(2), testutil.ToFloat64(
		pr.stageResults.WithLabelValues("run_hugo", "success")))

	count, err := testutil.GatherAndCount(reg,
		"blogbuilder_stage_results_total",
		"blogbuilder_deploy_outcomes_total",
		"blogbuilder_scheduled_publishes_total",
		"blogbuilder_watch_rebuilds_total",
		"blogbuilder_link_checks_total")
	require.NoError(t, err)
	require.Equal(t, 7, count)
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var r *PrometheusRecorder
	r.ObserveStageDuration("run_hugo", time.Second)
	r.ObserveBuildDuration(time.Second)
	r.IncStageResult("run_hugo", ResultFatal)
	r.ObserveDeployDuration(time.Second)
	r.IncDeployOutcome("failed")
	r.ObservePublishDuration(time.Second, false)
	r.IncScheduledPublish()
	r.IncWatchRebuild()
	r.IncLinkCheck("skipped")
}

func TestPrometheusRecorder_ObservesHistograms(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.ObserveBuildDuration(1500 * time.Millisecond)
	r.ObserveStageDuration("run_hugo", 200*time.Millisecond)
	r.ObserveDeployDuration(3 * time.Second)
	r.ObservePublishDuration(time.Second, true)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["blogbuilder_build_duration_seconds"])
	require.True(t, names["blogbuilder_stage_duration_seconds"])
	require.True(t, names["blogbuilder_deploy_duration_seconds"])
	require.True(t, names["blogbuilder_publish_duration_seconds"])
}
