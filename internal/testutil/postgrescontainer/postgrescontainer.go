package postgrescontainer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/adeilh/minutes/internal/testutil/dockertest"
)

const (
	user     = "minutes"
	password = "secret"
	dbName   = "minutes_test"
)

var container = &dockertest.Container{
	Dockerfile:    "Dockerfile.postgres.test",
	Image:         "minutes-postgres-test",
	Name:          "minutes-postgres-test",
	HostPort:      "55432",
	ContainerPort: "5432",
	Env: map[string]string{
		"POSTGRES_USER":     user,
		"POSTGRES_PASSWORD": password,
		"POSTGRES_DB":       dbName,
	},
	ReadyTimeout: 15 * time.Second,
}

// Ready is assigned in init to break the container -> DSN -> Addr -> container
// package initialization cycle.
func init() {
	container.Ready = func(string) error { return ping(DSN()) }
}

// Addr returns host:port for connecting to the test Postgres instance.
func Addr() string { return container.Addr() }

// DSN returns a lib/pq formatted connection string.
func DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", user, password, Addr(), dbName)
}

// Setup builds and launches the Postgres container if it isn't already running.
func Setup() error { return container.Setup() }

// Teardown stops the container launched by Setup.
func Teardown() error { return container.Teardown() }

func ping(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return db.PingContext(ctx)
}
