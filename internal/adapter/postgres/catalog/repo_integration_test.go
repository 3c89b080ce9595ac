package catalog_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/adapter/postgres"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/adapter/postgres/catalog"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/adapter/postgres/testhelper"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

func TestRepo_BulkUpsert_Integration(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	testhelper.TruncateCatalog(t, pool)
	repo := catalog.New(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	recs := []domain.VehicleRecord{
		{CarModel: "Twin Mill", ToyNum: "HKJ12", Year: "2024", Color: "Blue", PhotoURL: "https://img.example/twin.png"},
		{CarModel: "Bone Shaker", Series: "HW Flames", Year: "2006"},
		{
			CarModel:  "5-Pack",
			ToyNum:    "P5",
			PackItems: []domain.PackItem{{CastingName: "Deora II"}, {CastingName: "Rodger Dodger"}},
		},
	}

	first, err := repo.BulkUpsert(ctx, recs)
	if err != nil {
		t.Fatalf("first BulkUpsert: %v", err)
	}
	for i, r := range first {
		if r.Err != nil || r.Outcome != domain.UpsertInserted {
			t.Errorf("first[%d] = %+v, want INSERTED", i, r)
		}
	}

	second, err := repo.BulkUpsert(ctx, recs)
	if err != nil {
		t.Fatalf("second BulkUpsert: %v", err)
	}
	for i, r := range second {
		if r.Err != nil || r.Outcome != domain.UpsertUnchanged {
			t.Errorf("second[%d] = %+v, want UNCHANGED", i, r)
		}
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM catalog_vehicles`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != len(recs) {
		t.Fatalf("row count = %d, want %d", count, len(recs))
	}
}

func TestRepo_Upsert_KeepsStoredFields_Integration(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	testhelper.TruncateCatalog(t, pool)
	repo := catalog.New(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	stored := domain.VehicleRecord{CarModel: "Twin Mill", ToyNum: "HKJ12", Color: "Blue", PhotoURL: "https://img.example/twin.png"}
	if _, err := repo.Upsert(ctx, stored); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}

	got, err := repo.Upsert(ctx, domain.VehicleRecord{CarModel: "Twin Mill", ToyNum: "HKJ12", Color: "Red"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got != domain.UpsertUpdated {
		t.Fatalf("Upsert() = %q, want UPDATED", got)
	}

	var color, photo string
	err = pool.QueryRow(ctx,
		`SELECT color, photo_url FROM catalog_vehicles WHERE natural_key = $1`, "toy:hkj12",
	).Scan(&color, &photo)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if color != "Red" || photo != stored.PhotoURL {
		t.Errorf("color=%q photo=%q, want Red and the stored photo", color, photo)
	}
}

func TestRepo_BulkUpsert_MergesSeededRow_Integration(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	testhelper.TruncateCatalog(t, pool)
	repo := catalog.New(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	testhelper.SeedVehicle(t, pool, "toy:dup", "Deora II")

	recs := []domain.VehicleRecord{
		{CarModel: "Deora II", ToyNum: "DUP", Year: "2001"},
		{CarModel: "Rodger Dodger", ToyNum: "RD1"},
	}
	results, err := repo.BulkUpsert(ctx, recs)
	if err != nil {
		t.Fatalf("BulkUpsert: %v", err)
	}
	if results[0].Outcome != domain.UpsertUpdated {
		t.Errorf("results[0] = %+v, want UPDATED", results[0])
	}
	if results[1].Outcome != domain.UpsertInserted {
		t.Errorf("results[1] = %+v, want INSERTED", results[1])
	}
	if !testhelper.VehicleExists(t, pool, "toy:rd1") {
		t.Error("second record should be stored")
	}
}

func TestRepo_BulkUpsert_InTx_RollsBack_Integration(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	testhelper.TruncateCatalog(t, pool)
	repo := catalog.New(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	txm := postgres.NewTxManager(pool)
	ctx := context.Background()

	errAbort := errors.New("abort")
	err := txm.RunInTx(ctx, func(ctx context.Context) error {
		results, err := repo.BulkUpsert(ctx, []domain.VehicleRecord{{CarModel: "Twin Mill", ToyNum: "TX1"}})
		if err != nil {
			return err
		}
		if results[0].Outcome != domain.UpsertInserted {
			t.Errorf("results[0] = %+v, want INSERTED", results[0])
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("RunInTx() = %v, want errAbort", err)
	}
	if testhelper.VehicleExists(t, pool, "toy:tx1") {
		t.Error("upsert inside a rolled back transaction should not be stored")
	}
}

func TestRepo_BulkUpsert_InTx_IsolatesRejectedRecord_Integration(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	testhelper.TruncateCatalog(t, pool)
	repo := catalog.New(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	txm := postgres.NewTxManager(pool)
	ctx := context.Background()

	// PostgreSQL rejects NUL bytes in text columns.
	recs := []domain.VehicleRecord{
		{CarModel: "Twin Mill", ToyNum: "GOOD1"},
		{CarModel: "Bone\x00Shaker", ToyNum: "BAD1"},
		{CarModel: "Deora II", ToyNum: "GOOD2"},
	}

	err := txm.RunInTx(ctx, func(ctx context.Context) error {
		results, err := repo.BulkUpsert(ctx, recs)
		if err != nil {
			return err
		}
		if results[0].Err != nil || results[0].Outcome != domain.UpsertInserted {
			t.Errorf("results[0] = %+v, want INSERTED", results[0])
		}
		if !errors.Is(results[1].Err, domain.ErrPersistence) {
			t.Errorf("results[1].Err = %v, want ErrPersistence", results[1].Err)
		}
		if results[2].Err != nil || results[2].Outcome != domain.UpsertInserted {
			t.Errorf("results[2] = %+v, want INSERTED", results[2])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx() = %v", err)
	}

	for _, key := range []string{"toy:good1", "toy:good2"} {
		if !testhelper.VehicleExists(t, pool, key) {
			t.Errorf("%s should be stored after commit", key)
		}
	}
	if testhelper.VehicleExists(t, pool, "toy:bad1") {
		t.Error("rejected record should not be stored")
	}
}
