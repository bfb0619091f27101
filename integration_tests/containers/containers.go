// Package containers starts the throwaway Postgres and NATS servers the
// integration suites run against.
package containers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage  = "postgres:16-alpine"
	natsImage      = "nats:2.10-alpine"
	startupTimeout = 60 * time.Second

	pgCredential = "keyquest"
)

// Stack is a running Postgres and NATS pair.
type Stack struct {
	Postgres *postgres.PostgresContainer
	NATS     *nats.NATSContainer
	DSN      string
	NatsURL  string
}

// Start boots both containers concurrently. On any failure the ones that did
// start are terminated.
func Start(ctx context.Context) (*Stack, error) {
	var (
		stack        Stack
		pgErr, nsErr error
		wg           sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		stack.Postgres, stack.DSN, pgErr = startPostgres(ctx)
	}()
	go func() {
		defer wg.Done()
		stack.NATS, stack.NatsURL, nsErr = startNATS(ctx)
	}()
	wg.Wait()

	if err := errors.Join(pgErr, nsErr); err != nil {
		stack.Terminate(context.Background())
		return nil, err
	}
	log.Printf("Containers ready: postgres=%s nats=%s", redact(stack.DSN), stack.NatsURL)
	return &stack, nil
}

// Terminate stops whichever containers are running.
func (s *Stack) Terminate(ctx context.Context) {
	if s.NATS != nil {
		if err := s.NATS.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate NATS container: %v", err)
		}
	}
	if s.Postgres != nil {
		if err := s.Postgres.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate Postgres container: %v", err)
		}
	}
}

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	c, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase(pgCredential),
		postgres.WithUsername(pgCredential),
		postgres.WithPassword(pgCredential),
		testcontainers.WithWaitStrategy(
			wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
				return fmt.Sprintf("postgres://%[1]s:%[1]s@%s:%s/%[1]s?sslmode=disable", pgCredential, host, port.Port())
			}).WithStartupTimeout(startupTimeout),
		),
	)
	if err != nil {
		return c, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return c, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}
	return c, dsn, nil
}

func startNATS(ctx context.Context) (*nats.NATSContainer, string, error) {
	c, err := nats.Run(ctx, natsImage,
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("Server is ready"),
				wait.ForListeningPort("4222/tcp"),
			).WithDeadline(startupTimeout),
		),
	)
	if err != nil {
		return c, "", fmt.Errorf("failed to start NATS container: %w", err)
	}

	natsURL, err := c.ConnectionString(ctx)
	if err != nil {
		return c, "", fmt.Errorf("failed to get NATS connection string: %w", err)
	}
	return c, natsURL, nil
}

func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<invalid dsn>"
	}
	return u.Redacted()
}
