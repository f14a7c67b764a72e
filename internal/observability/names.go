// Package observability provides logging, OpenTelemetry tracing, and metrics for PopChoice.
package observability

// Metric names (OpenTelemetry, exported via OTLP).
const (
	MetricNameRecommendationRuns       = "popchoice_recommendation_runs_total"
	MetricNameStageDuration            = "popchoice_pipeline_stage_duration_seconds"
	MetricNameMatchOutcomes            = "popchoice_match_outcomes_total"
	MetricNameIngestChunks             = "popchoice_ingest_chunks_total"
	MetricNameIngestJobs               = "popchoice_ingest_jobs_total"
	MetricNameIngestJobDuration        = "popchoice_ingest_job_duration_seconds"
	MetricNameIngestJobFailures        = "popchoice_ingest_job_failures_total"
	MetricNameIngestStoredChunkChars   = "popchoice_ingest_stored_chunk_chars"
	MetricNameMoviesStored             = "popchoice_movies_stored"
	durationHistogramInstrumentPattern = "popchoice_*_duration_seconds"
)

// Attribute keys.
const (
	AttrReason  = "reason"
	AttrStatus  = "status"
	AttrStage   = "stage"
	AttrOutcome = "outcome"
	AttrResult  = "result"
	AttrStep    = "step"

	// AttrComponent is the resource attribute naming the process (api, cli).
	AttrComponent = "popchoice.component"
)

// Pipeline stages used as metric attributes and span names.
const (
	StageEmbedding  = "embedding"
	StageSearch     = "search"
	StageCompletion = "completion"
	StageRender     = "render"
)

// AllowedStages for popchoice_pipeline_stage_duration_seconds.
var AllowedStages = map[string]bool{
	StageEmbedding:  true,
	StageSearch:     true,
	StageCompletion: true,
	StageRender:     true,
}

// AllowedRunOutcomes for popchoice_recommendation_runs_total.
var AllowedRunOutcomes = map[string]bool{
	"success":           true,
	"invalid_input":     true,
	"embedding_failed":  true,
	"search_failed":     true,
	"completion_failed": true,
	"render_failed":     true,
}

// AllowedMatchOutcomes for popchoice_match_outcomes_total.
var AllowedMatchOutcomes = map[string]bool{
	"found":  true,
	"absent": true,
	"error":  true,
}

// AllowedChunkResults for popchoice_ingest_chunks_total.
var AllowedChunkResults = map[string]bool{
	ChunkEnqueued:      true,
	ChunkDuplicate:     true,
	ChunkBlank:         true,
	ChunkEnqueueFailed: true,
}

// AllowedJobStatuses for popchoice_ingest_jobs_total and popchoice_ingest_job_duration_seconds.
var AllowedJobStatuses = map[string]bool{
	JobStored:      true,
	JobRetry:       true,
	JobFailedFinal: true,
	JobSkipped:     true,
}

// AllowedJobSteps for popchoice_ingest_job_failures_total.
var AllowedJobSteps = map[string]bool{
	StepRateLimit: true,
	StepEmbed:     true,
	StepStore:     true,
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}
