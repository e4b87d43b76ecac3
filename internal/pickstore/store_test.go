package pickstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pickengine/internal/types"
)

func samplePick(id string) types.Pick {
	odds := -110
	return types.Pick{
		PickID:       id,
		Sport:        types.SportNBA,
		EventID:      "e_123",
		Market:       "TOTAL",
		Side:         "Under",
		Line:         246.5,
		Book:         "draftkings",
		OddsAmerican: &odds,
		AIScore:      7.2,
		FinalScore:   8.05,
		Tier:         types.TierGoldStar,
		ETDate:       "2026-01-29",
	}
}

func TestPersistPick_RoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	pick := samplePick("a1b2c3d4e5f6")
	status, err := store.PersistPick(pick)
	require.NoError(t, err)
	assert.Equal(t, StatusLogged, status)

	loaded, err := store.LoadPredictions("2026-01-29", "")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, pick.PickID, loaded[0].PickID)
	assert.Equal(t, pick.FinalScore, loaded[0].FinalScore)
	assert.Equal(t, pick.Tier, loaded[0].Tier)
	assert.Equal(t, *pick.OddsAmerican, *loaded[0].OddsAmerican)
}

func TestPersistPick_IdempotentOnSameETDate(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	pick := samplePick("a1b2c3d4e5f6")
	status1, err := store.PersistPick(pick)
	require.NoError(t, err)
	assert.Equal(t, StatusLogged, status1)

	status2, err := store.PersistPick(pick)
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, status2)

	loaded, err := store.LoadPredictions("2026-01-29", "")
	require.NoError(t, err)
	assert.Len(t, loaded, 1, "duplicate write must not produce a second record")
}

func TestPersistPick_RejectsMissingRequiredFields(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	pick := samplePick("a1b2c3d4e5f6")
	pick.Book = ""
	status, err := store.PersistPick(pick)
	assert.Error(t, err)
	assert.Equal(t, StatusError, status)
}

func TestMarkGraded_LastWriteWinsOnReload(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	pick := samplePick("a1b2c3d4e5f6")
	_, err = store.PersistPick(pick)
	require.NoError(t, err)

	gradedAt := time.Date(2026, 1, 30, 3, 0, 0, 0, time.UTC)
	err = store.MarkGraded(pick.PickID, types.ResultWin, 223, gradedAt)
	require.NoError(t, err)

	loaded, err := store.LoadPredictions("2026-01-29", "")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.NotNil(t, loaded[0].Result)
	assert.Equal(t, types.ResultWin, *loaded[0].Result)
	require.NotNil(t, loaded[0].ActualValue)
	assert.Equal(t, 223.0, *loaded[0].ActualValue)
}

func TestLoadPredictions_FiltersBySportAndDate(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	nba := samplePick("aaaaaaaaaaaa")
	nba.ETDate = "2026-01-29"
	nfl := samplePick("bbbbbbbbbbbb")
	nfl.Sport = types.SportNFL
	nfl.ETDate = "2026-01-30"

	_, err = store.PersistPick(nba)
	require.NoError(t, err)
	_, err = store.PersistPick(nfl)
	require.NoError(t, err)

	loaded, err := store.LoadPredictions("2026-01-29", types.SportNBA)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "aaaaaaaaaaaa", loaded[0].PickID)

	all, err := store.LoadPredictions("", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestOpen_RejectsEphemeralDirectory(t *testing.T) {
	_, err := Open("/tmp")
	assert.Error(t, err)
}
