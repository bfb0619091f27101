package testutils

import (
	"context"
	"sync"
	"testing"

	feeddomain "github.com/Black-And-White-Club/keyquest/app/modules/feed/domain"
	keysdomain "github.com/Black-And-White-Club/keyquest/app/modules/keys/domain"
	leaderboardservice "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/application"
	leaderboarddomain "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/domain"
	leaderboarddb "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/infrastructure/repositories"
	masterkeyservice "github.com/Black-And-White-Club/keyquest/app/modules/masterkey/application"
	runservice "github.com/Black-And-White-Club/keyquest/app/modules/run/application"
	rundb "github.com/Black-And-White-Club/keyquest/app/modules/run/infrastructure/repositories"
	scoringdomain "github.com/Black-And-White-Club/keyquest/app/modules/scoring/domain"
	stationservice "github.com/Black-And-White-Club/keyquest/app/modules/station/application"
	stationdb "github.com/Black-And-White-Club/keyquest/app/modules/station/infrastructure/repositories"
	"github.com/Black-And-White-Club/keyquest/app/shared/metrics"
	"go.opentelemetry.io/otel/trace/noop"
)

// Services is the full service graph wired against the test database.
type Services struct {
	Runs        *runservice.RunService
	Ledger      *stationservice.LedgerService
	MasterKey   *masterkeyservice.MasterKeyService
	Leaderboard *leaderboardservice.LeaderboardService
}

// NewServices wires every service the way the app does, with notifier as the feed.
func NewServices(t *testing.T, env *TestEnvironment, notifier feeddomain.Notifier) Services {
	t.Helper()

	tracer := noop.NewTracerProvider().Tracer("test")
	m := metrics.NewNoop()
	final := scoringdomain.StationMasterReset

	issuer, err := keysdomain.NewIssuer(keysdomain.DefaultFragmentLength)
	if err != nil {
		t.Fatal(err)
	}

	runs := runservice.NewRunService(rundb.NewRepository(env.DB), env.Logger, m, tracer, env.DB)
	ledger := stationservice.NewLedgerService(stationdb.NewRepository(env.DB), runs, issuer, notifier, final, env.Logger, m, tracer, env.DB)
	board := leaderboardservice.NewLeaderboardService(leaderboarddb.NewRepository(env.DB), leaderboarddomain.MustDefaultTierTable(), final, env.Logger, m, tracer, env.DB)
	validator := masterkeyservice.NewMasterKeyService(ledger, board, masterkeyservice.Config{
		FinalStationKey: final,
		Bonus:           scoringdomain.DefaultCompletionBonusConfig,
		ScoreMax:        leaderboarddomain.DefaultMaxTotal,
	}, env.Logger, m, tracer)

	return Services{Runs: runs, Ledger: ledger, MasterKey: validator, Leaderboard: board}
}

// RecordingNotifier keeps every event it receives.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []feeddomain.Event
}

func (r *RecordingNotifier) Notify(_ context.Context, e feeddomain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of what has been received.
func (r *RecordingNotifier) Events() []feeddomain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]feeddomain.Event(nil), r.events...)
}
