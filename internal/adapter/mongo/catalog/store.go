// Package catalog stores vehicle records in a MongoDB collection.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/config"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

const keyField = "natural_key"

// Connect opens a client for cfg.URI and pings the primary.
// A failed ping is reported as domain.ErrStoreUnavailable.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w: %w", domain.ErrStoreUnavailable, err)
	}

	return client, nil
}

// Store upserts vehicle records into one collection keyed by natural_key.
type Store struct {
	coll *mongo.Collection
	log  *slog.Logger
	now  func() time.Time
}

// New creates a Store over coll.
func New(coll *mongo.Collection, logger *slog.Logger) *Store {
	return &Store{
		coll: coll,
		log:  logger.With("store", "mongo"),
		now:  time.Now,
	}
}

// EnsureIndexes creates the unique natural_key index if it is missing.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: keyField, Value: 1}},
		Options: options.Index().SetUnique(true).SetName("natural_key_uq"),
	})
	if err != nil {
		return mapError(err, "index", keyField)
	}
	return nil
}

// Upsert merges rec into the collection. Only fields present in rec are
// written, so stored values survive absent ones.
func (s *Store) Upsert(ctx context.Context, rec domain.VehicleRecord) (domain.UpsertOutcome, error) {
	key := rec.Key()
	if key.IsZero() {
		return "", fmt.Errorf("vehicle: empty natural key: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(rec.CarModel) == "" {
		return "", fmt.Errorf("vehicle %s: car model required: %w", key, domain.ErrValidation)
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: keyField, Value: key.String()}},
		updateDoc(rec, s.now().UTC()),
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return "", mapError(err, "vehicle", key.String())
	}
	return outcomeOf(res), nil
}

// BulkUpsert merges recs one by one, in order. A bulk write only reports
// aggregate counts, which cannot tell an update from a no-op per record.
// The returned error is non-nil only when the store is unreachable.
func (s *Store) BulkUpsert(ctx context.Context, recs []domain.VehicleRecord) ([]domain.UpsertResult, error) {
	if len(recs) == 0 {
		return nil, nil
	}

	results := make([]domain.UpsertResult, len(recs))
	for i, rec := range recs {
		outcome, err := s.Upsert(ctx, rec)
		if errors.Is(err, domain.ErrStoreUnavailable) || ctx.Err() != nil {
			if err == nil {
				err = ctx.Err()
			}
			return nil, err
		}
		if err != nil {
			s.log.WarnContext(ctx, "vehicle upsert rejected",
				slog.String("key", rec.Key().String()),
				slog.String("error", err.Error()),
			)
		}
		results[i] = domain.UpsertResult{Key: rec.Key(), Outcome: outcome, Err: err}
	}
	return results, nil
}

// Get returns the stored record for key.
func (s *Store) Get(ctx context.Context, key domain.NaturalKey) (domain.VehicleRecord, error) {
	var doc vehicleDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: keyField, Value: key.String()}}).Decode(&doc)
	if err != nil {
		return domain.VehicleRecord{}, mapError(err, "vehicle", key.String())
	}
	return doc.record(), nil
}

func outcomeOf(res *mongo.UpdateResult) domain.UpsertOutcome {
	switch {
	case res.UpsertedCount > 0:
		return domain.UpsertInserted
	case res.ModifiedCount > 0:
		return domain.UpsertUpdated
	default:
		return domain.UpsertUnchanged
	}
}

// updateDoc builds the $set/$setOnInsert update for rec. MongoDB skips
// writes whose $set values equal the stored ones, which is what makes an
// unchanged record report ModifiedCount 0.
func updateDoc(rec domain.VehicleRecord, now time.Time) bson.D {
	set := bson.D{}
	put := func(field, value string) {
		if value != "" {
			set = append(set, bson.E{Key: field, Value: value})
		}
	}
	put("car_model", rec.CarModel)
	put("toy_num", rec.ToyNum)
	put("col_num", rec.ColNum)
	put("year", rec.Year)
	put("color", rec.Color)
	put("series", rec.Series)
	put("series_num", rec.SeriesNum)
	put("tampo", rec.Tampo)
	put("wheel_type", rec.WheelType)
	put("car_make", rec.CarMake)
	put("photo_url", rec.PhotoURL)
	put("source_title", string(rec.SourceTitle))
	if len(rec.PackItems) > 0 {
		items := make([]packDoc, len(rec.PackItems))
		for i, it := range rec.PackItems {
			items[i] = packDoc(it)
		}
		set = append(set, bson.E{Key: "pack_contents", Value: items})
	}

	return bson.D{
		{Key: "$set", Value: set},
		{Key: "$setOnInsert", Value: bson.D{{Key: "created_at", Value: now}}},
	}
}

type vehicleDoc struct {
	NaturalKey  string    `bson:"natural_key"`
	CarModel    string    `bson:"car_model"`
	ToyNum      string    `bson:"toy_num,omitempty"`
	ColNum      string    `bson:"col_num,omitempty"`
	Year        string    `bson:"year,omitempty"`
	Color       string    `bson:"color,omitempty"`
	Series      string    `bson:"series,omitempty"`
	SeriesNum   string    `bson:"series_num,omitempty"`
	Tampo       string    `bson:"tampo,omitempty"`
	WheelType   string    `bson:"wheel_type,omitempty"`
	CarMake     string    `bson:"car_make,omitempty"`
	PhotoURL    string    `bson:"photo_url,omitempty"`
	PackItems   []packDoc `bson:"pack_contents,omitempty"`
	SourceTitle string    `bson:"source_title,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

type packDoc struct {
	CastingName string `bson:"casting_name"`
	BodyColor   string `bson:"body_color,omitempty"`
	Tampo       string `bson:"tampo,omitempty"`
	WheelType   string `bson:"wheel_type,omitempty"`
	Notes       string `bson:"notes,omitempty"`
	PhotoURL    string `bson:"photo_url,omitempty"`
}

func (d vehicleDoc) record() domain.VehicleRecord {
	rec := domain.VehicleRecord{
		CarModel:    d.CarModel,
		ToyNum:      d.ToyNum,
		ColNum:      d.ColNum,
		Year:        d.Year,
		Color:       d.Color,
		Series:      d.Series,
		SeriesNum:   d.SeriesNum,
		Tampo:       d.Tampo,
		WheelType:   d.WheelType,
		CarMake:     d.CarMake,
		PhotoURL:    d.PhotoURL,
		SourceTitle: domain.PageTitle(d.SourceTitle),
	}
	for _, it := range d.PackItems {
		rec.PackItems = append(rec.PackItems, domain.PackItem(it))
	}
	return rec
}
