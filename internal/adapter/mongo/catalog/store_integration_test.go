package catalog_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/adapter/mongo/catalog"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/config"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

func setupStore(t *testing.T) *catalog.Store {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	client, err := catalog.Connect(ctx, config.MongoConfig{
		URI:            fmt.Sprintf("mongodb://%s:%s", host, port.Port()),
		ConnectTimeout: 10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	coll := client.Database("test_" + uuid.NewString()[:8]).Collection("vehicles")
	store := catalog.New(coll, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func TestStore_BulkUpsert_Idempotent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	recs := []domain.VehicleRecord{
		{CarModel: "Twin Mill", ToyNum: "HKJ12", Year: "2024", Color: "Blue"},
		{CarModel: "Bone Shaker", Series: "HW Flames", Year: "2006"},
		{CarModel: "5-Pack", ToyNum: "P5", PackItems: []domain.PackItem{{CastingName: "Deora II"}}},
	}

	first, err := store.BulkUpsert(ctx, recs)
	require.NoError(t, err)
	for i, r := range first {
		assert.NoError(t, r.Err)
		assert.Equal(t, domain.UpsertInserted, r.Outcome, "first[%d]", i)
	}

	second, err := store.BulkUpsert(ctx, recs)
	require.NoError(t, err)
	for i, r := range second {
		assert.NoError(t, r.Err)
		assert.Equal(t, domain.UpsertUnchanged, r.Outcome, "second[%d]", i)
	}
}

func TestStore_Upsert_NonDestructive(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, domain.VehicleRecord{
		CarModel: "Twin Mill", ToyNum: "HKJ12", Color: "Blue", PhotoURL: "https://img.example/twin.png",
	})
	require.NoError(t, err)

	outcome, err := store.Upsert(ctx, domain.VehicleRecord{CarModel: "Twin Mill", ToyNum: "HKJ12", Color: "Red"})
	require.NoError(t, err)
	assert.Equal(t, domain.UpsertUpdated, outcome)

	got, err := store.Get(ctx, domain.VehicleRecord{ToyNum: "HKJ12"}.Key())
	require.NoError(t, err)
	assert.Equal(t, "Red", got.Color)
	assert.Equal(t, "https://img.example/twin.png", got.PhotoURL)
}
