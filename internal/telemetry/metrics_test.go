package telemetry

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pickengine/internal/gates"
	"github.com/sawpanic/pickengine/internal/slate"
	"github.com/sawpanic/pickengine/internal/types"
)

// findFamily scans a Gather() result for one metric family by name. Gather
// returns the raw github.com/prometheus/client_model/go types the
// client_golang registry is built on; reading them directly (rather than via
// an HTTP scrape) is how this test verifies label values without standing up
// a server.
func findFamily(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %q not found", name)
	return nil
}

func TestRegistryRecordsSlateAndContradictionTelemetry(t *testing.T) {
	r := NewRegistry()

	r.RecordSlateTelemetry(types.SportNBA, slate.Telemetry{
		EventsBefore:       12,
		EventsAfter:        7,
		DroppedOutOfWindow: 4,
		DroppedMissingTime: 1,
	})
	r.RecordContradiction(types.SportNBA, gates.Report{
		ContradictionBlockedGames: 1,
		ContradictionBlockedProps: 2,
	})

	families, err := r.Gather()
	require.NoError(t, err)

	events := findFamily(t, families, "pickengine_slate_events")
	require.Len(t, events.GetMetric(), 2)

	dropped := findFamily(t, families, "pickengine_slate_dropped_total")
	var sawOutOfWindow, sawMissingTime bool
	for _, m := range dropped.GetMetric() {
		for _, lbl := range m.GetLabel() {
			if lbl.GetName() == "reason" && lbl.GetValue() == "out_of_window" {
				sawOutOfWindow = true
				require.Equal(t, float64(4), m.GetCounter().GetValue())
			}
			if lbl.GetName() == "reason" && lbl.GetValue() == "missing_time" {
				sawMissingTime = true
				require.Equal(t, float64(1), m.GetCounter().GetValue())
			}
		}
	}
	require.True(t, sawOutOfWindow)
	require.True(t, sawMissingTime)

	blocked := findFamily(t, families, "pickengine_contradiction_blocked_total")
	require.Len(t, blocked.GetMetric(), 2)
}

func TestRegistryRecordsPickAndGradeOutcomes(t *testing.T) {
	r := NewRegistry()

	r.RecordPick(types.SportNFL, types.Pick{Tier: types.TierGoldStar, TitaniumTriggered: false})
	r.RecordPick(types.SportNFL, types.Pick{Tier: types.TierTitaniumSmash, TitaniumTriggered: true})
	r.RecordGrade(types.SportNFL, "SPREAD", types.ResultWin)
	r.RecordUnresolved(types.SportNFL)

	families, err := r.Gather()
	require.NoError(t, err)

	titanium := findFamily(t, families, "pickengine_titanium_triggered_total")
	require.Equal(t, float64(1), titanium.GetMetric()[0].GetCounter().GetValue())

	outcomes := findFamily(t, families, "pickengine_grade_outcomes_total")
	require.Len(t, outcomes.GetMetric(), 1)
	require.Equal(t, float64(1), outcomes.GetMetric()[0].GetCounter().GetValue())

	unresolved := findFamily(t, families, "pickengine_grade_unresolved_total")
	require.Equal(t, float64(1), unresolved.GetMetric()[0].GetCounter().GetValue())
}

func TestJobTimerRecordsDurationAndOutcome(t *testing.T) {
	r := NewRegistry()

	jt := r.StartJobTimer("daily_audit")
	jt.Stop("ok")

	families, err := r.Gather()
	require.NoError(t, err)

	runs := findFamily(t, families, "pickengine_scheduler_job_runs_total")
	require.Equal(t, float64(1), runs.GetMetric()[0].GetCounter().GetValue())

	duration := findFamily(t, families, "pickengine_scheduler_job_duration_seconds")
	require.Equal(t, uint64(1), duration.GetMetric()[0].GetHistogram().GetSampleCount())
}
