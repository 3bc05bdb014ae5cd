package testutil

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImageEnv overrides the image used by NewPostgresContainer.
const PostgresImageEnv = "FOLLOWUP_TEST_POSTGRES_IMAGE"

const defaultPostgresImage = "postgres:17-alpine"

// PostgresContainer is a throwaway postgres with its DSN resolved.
type PostgresContainer struct {
	*postgres.PostgresContainer
	ConnectionString string
}

// NewPostgresContainer starts postgres with a "followup" database and user.
// Extra customizers are applied after the defaults.
func NewPostgresContainer(ctx context.Context, opts ...testcontainers.ContainerCustomizer) (*PostgresContainer, error) {
	image := cmp.Or(os.Getenv(PostgresImageEnv), defaultPostgresImage)

	customizers := append([]testcontainers.ContainerCustomizer{
		postgres.WithDatabase("followup"),
		postgres.WithUsername("followup"),
		postgres.WithPassword("followup"),
		// postgres restarts once after init, so the ready line shows up twice.
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		),
	}, opts...)

	container, err := postgres.Run(ctx, image, customizers...)
	if err != nil {
		return nil, fmt.Errorf("start postgres container (%s): %w", image, err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	return &PostgresContainer{PostgresContainer: container, ConnectionString: dsn}, nil
}
