package stationintegrationtests

import (
	"sync"
	"testing"

	rundb "github.com/Black-And-White-Club/keyquest/app/modules/run/infrastructure/repositories"
	scoringdomain "github.com/Black-And-White-Club/keyquest/app/modules/scoring/domain"
	stationservice "github.com/Black-And-White-Club/keyquest/app/modules/station/application"
	stationdomain "github.com/Black-And-White-Club/keyquest/app/modules/station/domain"
	stationdb "github.com/Black-And-White-Club/keyquest/app/modules/station/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession() sharedtypes.Session {
	return sharedtypes.Session{RunID: uuid.New(), TeamName: gofakeit.Company()}
}

func ptr(s string) *string { return &s }

func TestRecord_CreatesMissingRunThenWrites(t *testing.T) {
	deps := SetupTestLedger(t)
	session := newSession()

	res, err := deps.Ledger.Record(deps.Ctx, stationservice.RecordRequest{
		Session:    session,
		StationKey: "phishing",
		Mode:       sharedtypes.ModeWeb,
		Score:      170,
	})
	require.NoError(t, err)
	assert.Equal(t, 170, res.Score)
	assert.Equal(t, session.TeamName, res.Meta["team_name"])

	var run rundb.Run
	require.NoError(t, deps.BunDB.NewSelect().Model(&run).Where("run_id = ?", session.RunID).Scan(deps.Ctx))
	assert.Equal(t, session.TeamName, run.TeamName)

	assert.Len(t, deps.Notifier.Events(), 1)
}

func TestRecord_OverwriteAndClamp(t *testing.T) {
	deps := SetupTestLedger(t)
	session := newSession()

	_, err := deps.Runs.EnsureRun(deps.Ctx, session)
	require.NoError(t, err)

	for _, score := range []int{150, 90, 5000} {
		_, err := deps.Ledger.Record(deps.Ctx, stationservice.RecordRequest{
			Session: session, StationKey: "firewall", Mode: sharedtypes.ModeWeb, Score: score,
		})
		require.NoError(t, err)
	}

	rows, err := deps.Ledger.ListForRun(deps.Ctx, session.RunID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 200, rows[0].Score, "last write wins, clamped to the station max")
}

func TestRecordIfHigher_KeepsBestScore(t *testing.T) {
	deps := SetupTestLedger(t)
	session := newSession()

	write := func(score int, mode sharedtypes.Mode) *stationservice.StationResult {
		t.Helper()
		res, err := deps.Ledger.RecordIfHigher(deps.Ctx, stationservice.RecordRequest{
			Session: session, StationKey: "drones", Mode: mode, Score: score,
		})
		require.NoError(t, err)
		return res
	}

	assert.Equal(t, 150, write(150, sharedtypes.ModeWeb).Score)

	lower := write(120, sharedtypes.ModeInPerson)
	assert.Equal(t, 150, lower.Score)
	assert.Equal(t, sharedtypes.ModeInPerson, lower.Mode, "mode still follows the latest write")

	assert.Equal(t, 180, write(180, sharedtypes.ModeWeb).Score)
}

func TestRecord_FragmentIsNeverReplaced(t *testing.T) {
	deps := SetupTestLedger(t)
	session := newSession()

	first, err := deps.Ledger.Record(deps.Ctx, stationservice.RecordRequest{
		Session: session, StationKey: "passwords", Mode: sharedtypes.ModeWeb, Score: 100, KeyPart: ptr(" ab12"),
	})
	require.NoError(t, err)
	require.NotNil(t, first.KeyPart)
	assert.Equal(t, "AB12", *first.KeyPart)

	for _, part := range []*string{ptr("WXYZ"), nil} {
		res, err := deps.Ledger.Record(deps.Ctx, stationservice.RecordRequest{
			Session: session, StationKey: "passwords", Mode: sharedtypes.ModeWeb, Score: 60, KeyPart: part,
		})
		require.NoError(t, err)
		require.NotNil(t, res.KeyPart)
		assert.Equal(t, "AB12", *res.KeyPart)
		assert.Equal(t, 60, res.Score)
	}

	stored, err := deps.Ledger.GetResult(deps.Ctx, session.RunID, "passwords")
	require.NoError(t, err)
	require.NotNil(t, stored.KeyPart)
	assert.Equal(t, "AB12", *stored.KeyPart)

	_, err = deps.Ledger.GetResult(deps.Ctx, session.RunID, "drones")
	assert.ErrorIs(t, err, stationservice.ErrResultNotFound)
}

func TestComplete_IssuesFragmentOnce(t *testing.T) {
	deps := SetupTestLedger(t)
	session := newSession()

	first, err := deps.Ledger.Complete(deps.Ctx, stationservice.CompleteRequest{
		Session:    session,
		StationKey: "drones",
		Mode:       sharedtypes.ModeWeb,
		Signals:    scoringdomain.Signals{Correct: 20, Mistakes: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 144, first.Result.Score)
	require.True(t, first.Earned)
	require.NotNil(t, first.Fragment)

	again, err := deps.Ledger.Complete(deps.Ctx, stationservice.CompleteRequest{
		Session:    session,
		StationKey: "drones",
		Mode:       sharedtypes.ModeWeb,
		Signals:    scoringdomain.Signals{Correct: 10},
		Policy:     stationdomain.PolicyKeepHigher,
	})
	require.NoError(t, err)
	assert.Equal(t, 144, again.Result.Score)
	assert.Equal(t, *first.Fragment, *again.Fragment)
}

func TestListForRun_CatalogOrderAndExclude(t *testing.T) {
	deps := SetupTestLedger(t)
	session := newSession()

	for _, key := range []sharedtypes.StationKey{"control", "phishing", "master_reset", "firewall"} {
		_, err := deps.Ledger.Record(deps.Ctx, stationservice.RecordRequest{
			Session: session, StationKey: key, Mode: sharedtypes.ModeWeb, Score: 50,
		})
		require.NoError(t, err)
	}

	rows, err := deps.Ledger.ListForRun(deps.Ctx, session.RunID, scoringdomain.StationMasterReset)
	require.NoError(t, err)

	var keys []sharedtypes.StationKey
	for _, r := range rows {
		keys = append(keys, r.StationKey)
	}
	assert.Equal(t, []sharedtypes.StationKey{"phishing", "firewall", "control"}, keys)

	empty, err := deps.Ledger.ListForRun(deps.Ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestRecord_ConcurrentWritesLeaveOneRow(t *testing.T) {
	deps := SetupTestLedger(t)
	session := newSession()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := range 10 {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			_, err := deps.Ledger.RecordIfHigher(deps.Ctx, stationservice.RecordRequest{
				Session: session, StationKey: "control", Mode: sharedtypes.ModeWeb, Score: score,
			})
			errs <- err
		}(i * 10)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	count, err := deps.BunDB.NewSelect().Model((*stationdb.StationResult)(nil)).
		Where("run_id = ?", session.RunID).
		Count(deps.Ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rows, err := deps.Ledger.ListForRun(deps.Ctx, session.RunID)
	require.NoError(t, err)
	assert.Equal(t, 90, rows[0].Score)
}

func TestProgress_AgainstSeededCatalog(t *testing.T) {
	deps := SetupTestLedger(t)
	session := newSession()

	_, err := deps.Ledger.Record(deps.Ctx, stationservice.RecordRequest{
		Session: session, StationKey: "phishing", Mode: sharedtypes.ModeWeb, Score: 200, KeyPart: ptr("QRST"),
	})
	require.NoError(t, err)

	p, err := deps.Ledger.Progress(deps.Ctx, session.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.StationsDone)
	assert.Equal(t, 1, p.FragmentsCollected)
	assert.Equal(t, 1100, p.TotalMax)
	assert.Len(t, p.Stations, 6)
}
