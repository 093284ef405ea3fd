// Package testhelpers provides the shared PostgreSQL container used by
// integration tests. The container starts once per test run and is
// reused by every test that asks for it.
package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/peachstate-cre/propquery/pkg/database"
)

const postgresImage = "postgres:16-alpine"

// TestDB holds the shared container, a pgx pool with migrations applied,
// and a seeded property table.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns the shared PostgreSQL container for integration
// tests. Migrations are applied and the property table is created and
// seeded before the first caller returns.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "propquery_test",
			"POSTGRES_USER":     "propquery",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://propquery:test_password@%s:%s/propquery_test?sslmode=disable",
		host, port.Port())

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open sql connection: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := seedProperties(ctx, db.Pool); err != nil {
		return nil, fmt.Errorf("failed to seed property table: %w", err)
	}

	return &TestDB{
		Container: container,
		Pool:      db.Pool,
		ConnStr:   connStr,
	}, nil
}

// seedProperties creates the property table and loads a small fixed
// dataset so executor and store tests have something real to query.
func seedProperties(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS "Georgia Properties" (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			property_type TEXT,
			property_subtype TEXT,
			asking_price NUMERIC,
			address JSONB,
			zoning TEXT,
			listing_url TEXT,
			thumbnail_url TEXT,
			description TEXT,
			status TEXT,
			size_acres NUMERIC,
			size_sqft NUMERIC,
			building_sqft NUMERIC,
			traffic_count_aadt INTEGER
		)`)
	if err != nil {
		return err
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM "Georgia Properties"`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	rows := [][]any{
		{"Monroe Fuel Stop", "Gas Station", "Fuel Station", 450000, `{"county": "Walton", "city": "Monroe", "state": "GA"}`, "C-2", "https://example.com/1", "Available", 1.2},
		{"Loganville Corner Store", "Retail", "Convenience Store", 325000, `{"county": "Walton", "city": "Loganville", "state": "GA"}`, "C-1", "https://example.com/2", "Available", 0.8},
		{"Midtown Office Suite", "Office", "Professional", 1200000, `{"county": "Fulton", "city": "Atlanta", "state": "GA"}`, "O-I", "https://example.com/3", "Available", 0.5},
		{"Marietta Diner", "Restaurant", "Dining", 675000, `{"county": "Cobb", "city": "Marietta", "state": "GA"}`, "C-2", "https://example.com/4", "Available", 1.0},
		{"Vacant Lot Hwy 78", "Vacant", "Land", 150000, `{"county": "Walton", "city": "Monroe", "state": "GA"}`, "AG", "https://example.com/5", "Vacant", 4.5},
	}
	for _, r := range rows {
		_, err := pool.Exec(ctx, `
			INSERT INTO "Georgia Properties"
				(name, property_type, property_subtype, asking_price, address, zoning, listing_url, status, size_acres)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			r...)
		if err != nil {
			return err
		}
	}
	return nil
}
