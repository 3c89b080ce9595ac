package testhelper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedVehicle inserts a minimal catalog row and returns its id.
func SeedVehicle(t *testing.T, pool *pgxpool.Pool, naturalKey, carModel string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO catalog_vehicles (id, natural_key, car_model) VALUES ($1, $2, $3)`,
		id, naturalKey, carModel,
	)
	if err != nil {
		t.Fatalf("testhelper: seed vehicle %s: %v", naturalKey, err)
	}
	return id
}

// VehicleExists reports whether a catalog row with the given natural key exists.
func VehicleExists(t *testing.T, pool *pgxpool.Pool, naturalKey string) bool {
	t.Helper()

	var exists bool
	err := pool.QueryRow(context.Background(),
		`SELECT EXISTS(SELECT 1 FROM catalog_vehicles WHERE natural_key = $1)`,
		naturalKey,
	).Scan(&exists)
	if err != nil {
		t.Fatalf("testhelper: vehicle exists query: %v", err)
	}
	return exists
}
