package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

var (
	patientsAnalyzed   atomic.Int64
	conditionsAnalyzed atomic.Int64
	clinicalConditions atomic.Int64
	lastRunDurationMs  atomic.Int64
	runsCompleted      atomic.Int64
	runsFailed         atomic.Int64
)

// SetLatestRun refreshes the latest-run gauges without touching the run
// counters, so read paths can re-publish the current state on every scrape.
func SetLatestRun(patients, conditions, clinical int, duration time.Duration) {
	patientsAnalyzed.Store(int64(patients))
	conditionsAnalyzed.Store(int64(conditions))
	clinicalConditions.Store(int64(clinical))
	lastRunDurationMs.Store(duration.Milliseconds())
}

// ObserveRun records one completed run: gauges plus the completion counter.
// Only the run path may call this; scrapes use SetLatestRun.
func ObserveRun(patients, conditions, clinical int, duration time.Duration) {
	SetLatestRun(patients, conditions, clinical, duration)
	runsCompleted.Add(1)
}

func ObserveFailure() {
	runsFailed.Add(1)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP carelens_analysis_patients_total Number of patients in the latest analysis run.\n")
	fmt.Fprintf(w, "# TYPE carelens_analysis_patients_total gauge\n")
	fmt.Fprintf(w, "carelens_analysis_patients_total %d\n", patientsAnalyzed.Load())

	fmt.Fprintf(w, "# HELP carelens_analysis_conditions_total Number of condition records in the latest analysis run.\n")
	fmt.Fprintf(w, "# TYPE carelens_analysis_conditions_total gauge\n")
	fmt.Fprintf(w, "carelens_analysis_conditions_total %d\n", conditionsAnalyzed.Load())

	fmt.Fprintf(w, "# HELP carelens_analysis_clinical_conditions_total Number of condition records classified clinical in the latest analysis run.\n")
	fmt.Fprintf(w, "# TYPE carelens_analysis_clinical_conditions_total gauge\n")
	fmt.Fprintf(w, "carelens_analysis_clinical_conditions_total %d\n", clinicalConditions.Load())

	fmt.Fprintf(w, "# HELP carelens_analysis_last_run_duration_ms Duration of the latest analysis run in milliseconds.\n")
	fmt.Fprintf(w, "# TYPE carelens_analysis_last_run_duration_ms gauge\n")
	fmt.Fprintf(w, "carelens_analysis_last_run_duration_ms %d\n", lastRunDurationMs.Load())

	fmt.Fprintf(w, "# HELP carelens_analysis_runs_completed_total Number of analysis runs completed since process start.\n")
	fmt.Fprintf(w, "# TYPE carelens_analysis_runs_completed_total counter\n")
	fmt.Fprintf(w, "carelens_analysis_runs_completed_total %d\n", runsCompleted.Load())

	fmt.Fprintf(w, "# HELP carelens_analysis_runs_failed_total Number of analysis runs failed since process start.\n")
	fmt.Fprintf(w, "# TYPE carelens_analysis_runs_failed_total counter\n")
	fmt.Fprintf(w, "carelens_analysis_runs_failed_total %d\n", runsFailed.Load())
}
