package stationintegrationtests

import (
	"context"
	"log"
	"sync"
	"testing"
	"time"

	runservice "github.com/Black-And-White-Club/keyquest/app/modules/run/application"
	stationservice "github.com/Black-And-White-Club/keyquest/app/modules/station/application"
	"github.com/Black-And-White-Club/keyquest/integration_tests/testutils"
	"github.com/uptrace/bun"
)

var (
	testEnv     *testutils.TestEnvironment
	testEnvOnce sync.Once
	testEnvErr  error
)

func GetTestEnv(t *testing.T) *testutils.TestEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("integration tests skipped with -short")
	}

	testEnvOnce.Do(func() {
		log.Println("Initializing station test environment...")
		testEnv, testEnvErr = testutils.NewTestEnvironment(t)
	})
	if testEnvErr != nil {
		t.Fatalf("Station test environment initialization failed: %v", testEnvErr)
	}
	return testEnv
}

type TestDeps struct {
	Ctx      context.Context
	BunDB    *bun.DB
	Runs     runservice.Service
	Ledger   *stationservice.LedgerService
	Notifier *testutils.RecordingNotifier
}

func SetupTestLedger(t *testing.T) TestDeps {
	t.Helper()
	env := GetTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	if err := env.Reset(ctx); err != nil {
		t.Fatalf("Failed to reset environment: %v", err)
	}

	notifier := &testutils.RecordingNotifier{}
	svc := testutils.NewServices(t, env, notifier)
	return TestDeps{Ctx: ctx, BunDB: env.DB, Runs: svc.Runs, Ledger: svc.Ledger, Notifier: notifier}
}
