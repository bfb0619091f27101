package feedintegrationtests

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
		log.Println("Initializing feed test environment...")
		testEnv, testEnvErr = testutils.NewTestEnvironment(t)
	})
	if testEnvErr != nil {
		t.Fatalf("Feed test environment initialization failed: %v", testEnvErr)
	}
	return testEnv
}

// ResetEnv clears the database and returns a context bounded for one test.
func ResetEnv(t *testing.T) (*testutils.TestEnvironment, context.Context) {
	t.Helper()
	env := GetTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)
	if err := env.Reset(ctx); err != nil {
		t.Fatalf("Failed to reset environment: %v", err)
	}
	return env, ctx
}
