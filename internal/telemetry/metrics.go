// Package telemetry wires the Prometheus counters and gauges the pipeline
// emits: slate gate counts, contradiction and titanium counts, grading
// outcomes, and scheduler job health. The registry is a struct of
// pre-registered vectors plus small Record* methods.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/pickengine/internal/gates"
	"github.com/sawpanic/pickengine/internal/slate"
	"github.com/sawpanic/pickengine/internal/types"
)

// Registry holds every metric this module registers with Prometheus. Each
// Registry owns its own prometheus.Registry rather than registering on the
// global DefaultRegisterer, so constructing more than one (a second process
// instance, or a test) never panics on duplicate registration.
type Registry struct {
	reg *prometheus.Registry

	SlateEvents        *prometheus.GaugeVec   // labels: sport, stage(before|after)
	SlateDropped       *prometheus.CounterVec // labels: sport, reason(out_of_window|missing_time)
	TimedOutComponents *prometheus.CounterVec // labels: sport, component

	ContradictionBlocked *prometheus.CounterVec // labels: sport, kind(props|games)
	TierAssigned         *prometheus.CounterVec // labels: sport, tier
	TitaniumTriggered    *prometheus.CounterVec // labels: sport

	GradeOutcomes   *prometheus.CounterVec // labels: sport, market, result
	GradeUnresolved *prometheus.CounterVec // labels: sport

	SchedulerJobRuns     *prometheus.CounterVec   // labels: job, outcome(ok|error)
	SchedulerJobDuration *prometheus.HistogramVec // labels: job
}

// NewRegistry builds and registers every metric on a fresh prometheus.Registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		SlateEvents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pickengine_slate_events",
				Help: "Event count at each stage of slate building.",
			},
			[]string{"sport", "stage"},
		),
		SlateDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pickengine_slate_dropped_total",
				Help: "Events dropped by the ET Day Gate, by reason.",
			},
			[]string{"sport", "reason"},
		),
		TimedOutComponents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pickengine_timed_out_components_total",
				Help: "Upstream components that exceeded their deadline.",
			},
			[]string{"sport", "component"},
		),
		ContradictionBlocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pickengine_contradiction_blocked_total",
				Help: "Picks blocked by the Contradiction Gate, by kind.",
			},
			[]string{"sport", "kind"},
		),
		TierAssigned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pickengine_tier_assigned_total",
				Help: "Picks assigned to each output tier.",
			},
			[]string{"sport", "tier"},
		),
		TitaniumTriggered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pickengine_titanium_triggered_total",
				Help: "Picks that triggered the Titanium three-of-four rule.",
			},
			[]string{"sport"},
		),
		GradeOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pickengine_grade_outcomes_total",
				Help: "Graded picks by sport, market, and result.",
			},
			[]string{"sport", "market", "result"},
		),
		GradeUnresolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pickengine_grade_unresolved_total",
				Help: "Picks left unresolved by a grading pass.",
			},
			[]string{"sport"},
		),
		SchedulerJobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pickengine_scheduler_job_runs_total",
				Help: "Scheduler job firings by outcome.",
			},
			[]string{"job", "outcome"},
		),
		SchedulerJobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pickengine_scheduler_job_duration_seconds",
				Help:    "Duration of scheduler job executions.",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"job"},
		),
	}

	r.reg.MustRegister(
		r.SlateEvents,
		r.SlateDropped,
		r.TimedOutComponents,
		r.ContradictionBlocked,
		r.TierAssigned,
		r.TitaniumTriggered,
		r.GradeOutcomes,
		r.GradeUnresolved,
		r.SchedulerJobRuns,
		r.SchedulerJobDuration,
	)
	return r
}

// Gather returns the current value of every registered metric as raw
// client_model types — the same shape promhttp.Handler serves over HTTP,
// exposed directly for callers (tests, internal status reporting) that want
// values without a scrape round-trip.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	return r.reg.Gather()
}

// RecordSlateTelemetry records one BuildSlate call's counts.
func (r *Registry) RecordSlateTelemetry(sport types.Sport, t slate.Telemetry) {
	s := string(sport)
	r.SlateEvents.WithLabelValues(s, "before").Set(float64(t.EventsBefore))
	r.SlateEvents.WithLabelValues(s, "after").Set(float64(t.EventsAfter))
	r.SlateDropped.WithLabelValues(s, "out_of_window").Add(float64(t.DroppedOutOfWindow))
	r.SlateDropped.WithLabelValues(s, "missing_time").Add(float64(t.DroppedMissingTime))
	for _, c := range t.TimedOutComponents {
		r.TimedOutComponents.WithLabelValues(s, c).Inc()
	}
}

// RecordContradiction records one Contradiction Gate pass.
func (r *Registry) RecordContradiction(sport types.Sport, report gates.Report) {
	s := string(sport)
	if report.ContradictionBlockedProps > 0 {
		r.ContradictionBlocked.WithLabelValues(s, "props").Add(float64(report.ContradictionBlockedProps))
	}
	if report.ContradictionBlockedGames > 0 {
		r.ContradictionBlocked.WithLabelValues(s, "games").Add(float64(report.ContradictionBlockedGames))
	}
}

// RecordPick records one emitted pick's tier and titanium status.
func (r *Registry) RecordPick(sport types.Sport, p types.Pick) {
	s := string(sport)
	r.TierAssigned.WithLabelValues(s, string(p.Tier)).Inc()
	if p.TitaniumTriggered {
		r.TitaniumTriggered.WithLabelValues(s).Inc()
	}
}

// RecordGrade records one GradePending pass's outcomes.
func (r *Registry) RecordGrade(sport types.Sport, market string, result types.Result) {
	r.GradeOutcomes.WithLabelValues(string(sport), market, string(result)).Inc()
}

// RecordUnresolved records one unresolved grading attempt.
func (r *Registry) RecordUnresolved(sport types.Sport) {
	r.GradeUnresolved.WithLabelValues(string(sport)).Inc()
}

// JobTimer tracks one scheduler job execution.
type JobTimer struct {
	registry *Registry
	job      string
	start    time.Time
}

// StartJobTimer begins timing a scheduler job run.
func (r *Registry) StartJobTimer(job string) *JobTimer {
	return &JobTimer{registry: r, job: job, start: time.Now()}
}

// Stop completes the timing and records the outcome.
func (jt *JobTimer) Stop(outcome string) {
	duration := time.Since(jt.start)
	jt.registry.SchedulerJobDuration.WithLabelValues(jt.job).Observe(duration.Seconds())
	jt.registry.SchedulerJobRuns.WithLabelValues(jt.job, outcome).Inc()
	log.Debug().Str("job", jt.job).Str("outcome", outcome).Dur("duration", duration).Msg("scheduler job completed")
}

// Handler exposes the Prometheus scrape endpoint; mounting it onto an HTTP
// router is the caller's responsibility.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
