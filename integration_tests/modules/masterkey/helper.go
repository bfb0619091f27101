package masterkeyintegrationtests

import (
	"context"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/Black-And-White-Club/keyquest/integration_tests/testutils"
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
		log.Println("Initializing master key test environment...")
		testEnv, testEnvErr = testutils.NewTestEnvironment(t)
	})
	if testEnvErr != nil {
		t.Fatalf("Master key test environment initialization failed: %v", testEnvErr)
	}
	return testEnv
}

type TestDeps struct {
	Ctx context.Context
	testutils.Services
	Notifier *testutils.RecordingNotifier
}

func SetupTestValidator(t *testing.T) TestDeps {
	t.Helper()
	env := GetTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	if err := env.Reset(ctx); err != nil {
		t.Fatalf("Failed to reset environment: %v", err)
	}

	notifier := &testutils.RecordingNotifier{}
	return TestDeps{Ctx: ctx, Services: testutils.NewServices(t, env, notifier), Notifier: notifier}
}
