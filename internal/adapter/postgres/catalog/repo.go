// Package catalog stores vehicle records in PostgreSQL.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/g33ktony/hot-wheels-manager-sub006/internal/adapter/postgres"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

const table = "catalog_vehicles"

// mergeColumns are written from the record. Absent values are sent as NULL
// and COALESCE keeps the stored value.
var mergeColumns = []string{
	"car_model",
	"toy_num",
	"col_num",
	"year",
	"color",
	"series",
	"series_num",
	"tampo",
	"wheel_type",
	"car_make",
	"photo_url",
	"pack_contents",
	"source_title",
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// upsertSuffix is the conflict clause shared by every upsert. The WHERE
// clause suppresses no-op updates, so RETURNING yields no row when the
// stored record already holds the merged values.
var upsertSuffix = buildUpsertSuffix()

func buildUpsertSuffix() string {
	set := make([]string, 0, len(mergeColumns)+1)
	stored := make([]string, 0, len(mergeColumns))
	merged := make([]string, 0, len(mergeColumns))
	for _, c := range mergeColumns {
		m := fmt.Sprintf("COALESCE(EXCLUDED.%s, t.%s)", c, c)
		set = append(set, fmt.Sprintf("%s = %s", c, m))
		stored = append(stored, "t."+c)
		merged = append(merged, m)
	}
	set = append(set, "updated_at = now()")

	return fmt.Sprintf(
		"ON CONFLICT (natural_key) DO UPDATE SET %s WHERE (%s) IS DISTINCT FROM (%s) RETURNING (xmax = 0) AS inserted",
		strings.Join(set, ", "),
		strings.Join(stored, ", "),
		strings.Join(merged, ", "),
	)
}

// Repo upserts vehicle records keyed by their natural key.
type Repo struct {
	db  postgres.Querier
	log *slog.Logger
}

// New creates a Repo over db (a pool, a transaction, or a mock).
func New(db postgres.Querier, logger *slog.Logger) *Repo {
	return &Repo{db: db, log: logger.With("store", "postgres")}
}

// Upsert merges rec into the catalog.
func (r *Repo) Upsert(ctx context.Context, rec domain.VehicleRecord) (domain.UpsertOutcome, error) {
	sql, args, err := upsertQuery(rec)
	if err != nil {
		return "", err
	}

	q := postgres.QuerierFromCtx(ctx, r.db)
	return scanOutcome(q.QueryRow(ctx, sql, args...), rec.Key())
}

// BulkUpsert merges recs in order and reports one result per record.
// The records go out as one pgx.Batch. Because a batch runs in a single
// implicit transaction, a rejected record aborts it; the batch is then
// replayed one statement per record so every other record still lands.
// Inside RunInTx the batch and each replayed record run under their own
// savepoint, so a rejected record leaves the caller's transaction usable.
// The returned error is non-nil only when the store is unreachable.
func (r *Repo) BulkUpsert(ctx context.Context, recs []domain.VehicleRecord) ([]domain.UpsertResult, error) {
	if len(recs) == 0 {
		return nil, nil
	}

	var results []domain.UpsertResult
	err := r.inSavepoint(ctx, func(q postgres.Querier) error {
		var err error
		results, err = sendBatch(ctx, q, recs)
		return err
	})
	if err == nil {
		return results, nil
	}
	if errors.Is(err, domain.ErrStoreUnavailable) || ctx.Err() != nil {
		return nil, err
	}

	r.log.WarnContext(ctx, "batch upsert rejected, retrying per record",
		slog.Int("records", len(recs)),
		slog.String("error", err.Error()),
	)

	results = make([]domain.UpsertResult, len(recs))
	for i, rec := range recs {
		outcome, err := r.replay(ctx, rec)
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, err
		}
		results[i] = domain.UpsertResult{Key: rec.Key(), Outcome: outcome, Err: err}
	}
	return results, nil
}

func (r *Repo) replay(ctx context.Context, rec domain.VehicleRecord) (domain.UpsertOutcome, error) {
	sql, args, err := upsertQuery(rec)
	if err != nil {
		return "", err
	}

	var outcome domain.UpsertOutcome
	err = r.inSavepoint(ctx, func(q postgres.Querier) error {
		var err error
		outcome, err = scanOutcome(q.QueryRow(ctx, sql, args...), rec.Key())
		return err
	})
	return outcome, err
}

// inSavepoint runs fn on a savepoint of the context transaction. Outside a
// transaction fn runs on the repo's querier. An error from fn rolls back to
// the savepoint.
func (r *Repo) inSavepoint(ctx context.Context, fn func(q postgres.Querier) error) error {
	tx, ok := postgres.TxFromCtx(ctx)
	if !ok {
		return fn(r.db)
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return postgres.MapError(err, "tx", "savepoint")
	}
	if err := fn(sp); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback to savepoint: %w (original error: %v)", postgres.MapError(rbErr, "tx", "savepoint"), err)
		}
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return postgres.MapError(err, "tx", "savepoint")
	}
	return nil
}

func sendBatch(ctx context.Context, q postgres.Querier, recs []domain.VehicleRecord) ([]domain.UpsertResult, error) {
	results := make([]domain.UpsertResult, len(recs))
	batch := &pgx.Batch{}
	queued := make([]int, 0, len(recs))
	for i, rec := range recs {
		sql, args, err := upsertQuery(rec)
		if err != nil {
			results[i] = domain.UpsertResult{Key: rec.Key(), Err: err}
			continue
		}
		batch.Queue(sql, args...)
		queued = append(queued, i)
	}
	if len(queued) == 0 {
		return results, nil
	}

	br := q.SendBatch(ctx, batch)
	defer br.Close()

	for _, i := range queued {
		outcome, err := scanOutcome(br.QueryRow(), recs[i].Key())
		if err != nil {
			return nil, err
		}
		results[i] = domain.UpsertResult{Key: recs[i].Key(), Outcome: outcome}
	}
	return results, nil
}

func scanOutcome(row pgx.Row, key domain.NaturalKey) (domain.UpsertOutcome, error) {
	var inserted bool
	err := row.Scan(&inserted)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.UpsertUnchanged, nil
	case err != nil:
		return "", postgres.MapError(err, "vehicle", key.String())
	case inserted:
		return domain.UpsertInserted, nil
	default:
		return domain.UpsertUpdated, nil
	}
}

func upsertQuery(rec domain.VehicleRecord) (string, []any, error) {
	key := rec.Key()
	if key.IsZero() {
		return "", nil, fmt.Errorf("vehicle: empty natural key: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(rec.CarModel) == "" {
		return "", nil, fmt.Errorf("vehicle %s: car model required: %w", key, domain.ErrValidation)
	}

	var pack any
	if len(rec.PackItems) > 0 {
		b, err := json.Marshal(rec.PackItems)
		if err != nil {
			return "", nil, fmt.Errorf("vehicle %s: encode pack contents: %w", key, err)
		}
		pack = b
	}

	columns := append([]string{"id", "natural_key"}, mergeColumns...)
	values := []any{
		uuid.New(),
		key.String(),
		rec.CarModel,
		nullable(rec.ToyNum),
		nullable(rec.ColNum),
		nullable(rec.Year),
		nullable(rec.Color),
		nullable(rec.Series),
		nullable(rec.SeriesNum),
		nullable(rec.Tampo),
		nullable(rec.WheelType),
		nullable(rec.CarMake),
		nullable(rec.PhotoURL),
		pack,
		nullable(string(rec.SourceTitle)),
	}

	sql, args, err := psql.Insert(table + " AS t").
		Columns(columns...).
		Values(values...).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("vehicle %s: build upsert: %w", key, err)
	}
	return sql, args, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
