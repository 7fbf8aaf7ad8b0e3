package metrics

import "time"

// Stage names the lifecycle step a metric refers to.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageBackup  Stage = "backup"
	StageClean   Stage = "clean"
	StagePrune   Stage = "prune"
)

// ResultLabel enumerates terminal stage states for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultEmpty   ResultLabel = "empty"
	ResultFailed  ResultLabel = "failed"
)

// BuildOutcomeLabel enumerates host build outcomes.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess   BuildOutcomeLabel = "success"
	BuildOutcomeFailed    BuildOutcomeLabel = "failed"
	BuildOutcomeCancelled BuildOutcomeLabel = "cancelled"
)

// Recorder defines observability hooks for the cleaner and the build runner.
type Recorder interface {
	ObserveStageDuration(stage Stage, d time.Duration)
	IncStageResult(stage Stage, result ResultLabel)
	AddFiles(stage Stage, n int)
	IncReportFlush()
	IncBuildOutcome(outcome BuildOutcomeLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(Stage, time.Duration) {}
func (NoopRecorder) IncStageResult(Stage, ResultLabel)         {}
func (NoopRecorder) AddFiles(Stage, int)                       {}
func (NoopRecorder) IncReportFlush()                           {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)         {}
