package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveStageDuration(StageBackup, 150*time.Millisecond)
	pr.IncStageResult(StageBackup, ResultSuccess)
	pr.IncStageResult(StageClean, ResultEmpty)
	pr.IncStageResult(StageClean, ResultEmpty)
	pr.AddFiles(StageBackup, 3)
	pr.AddFiles(StageBackup, 0)
	pr.IncReportFlush()
	pr.IncBuildOutcome(BuildOutcomeSuccess)

	assert.InDelta(t, 1, testutil.ToFloat64(pr.stageResults.WithLabelValues("backup", "success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(pr.stageResults.WithLabelValues("clean", "empty")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(pr.files.WithLabelValues("backup")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.flushes), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncReportFlush()

	path := filepath.Join(t.TempDir(), "outputkeeper.prom")
	require.NoError(t, pr.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "outputkeeper_report_flushes_total 1"))
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncReportFlush()
	pr.IncStageResult(StageClean, ResultFailed)
	pr.ObserveStageDuration(StageClean, time.Second)
}

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncBuildOutcome(BuildOutcomeFailed)
	var _ Recorder = (*PrometheusRecorder)(nil)
}
