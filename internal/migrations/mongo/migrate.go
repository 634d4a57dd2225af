// Package mongo applies collection validators and indexes for the bookings
// service. The migration is idempotent: collections are created if missing,
// validators are reapplied via collMod, and index builds skip existing ones.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"radiantgo/internal/migrations/mongo/validators"
)

var (
	// ref_id is the external key and the lock scope; it must be unique.
	BookingsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ref_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: -1}}},
	}

	// The drain query filters on published_at null and sorts by created_at;
	// cleanup scans published_at against the retention cutoff.
	OutboxIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "published_at", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "booking_ref", Value: 1}}},
	}
)

type collectionSpec struct {
	name      string
	validator bson.M
	indexes   []mongo.IndexModel
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	specs := []collectionSpec{
		{name: "Bookings", validator: validators.BookingValidator, indexes: BookingsIndexes},
		{name: "Outbox", validator: validators.OutboxValidator, indexes: OutboxIndexes},
	}

	for _, spec := range specs {
		if err := ensureCollection(ctx, db, spec); err != nil {
			return fmt.Errorf("migrate %s: %w", spec.name, err)
		}
	}
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, spec collectionSpec) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": spec.name})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	if len(names) == 0 {
		opts := options.CreateCollection().
			SetValidator(spec.validator).
			SetValidationLevel("strict").
			SetValidationAction("error")
		if err := db.CreateCollection(ctx, spec.name, opts); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	} else {
		// Reapply the validator so schema changes reach existing deployments.
		cmd := bson.D{
			{Key: "collMod", Value: spec.name},
			{Key: "validator", Value: spec.validator},
			{Key: "validationLevel", Value: "strict"},
			{Key: "validationAction", Value: "error"},
		}
		if err := db.RunCommand(ctx, cmd).Err(); err != nil {
			return fmt.Errorf("collMod: %w", err)
		}
	}

	if len(spec.indexes) > 0 {
		if _, err := db.Collection(spec.name).Indexes().CreateMany(ctx, spec.indexes); err != nil {
			return fmt.Errorf("create indexes: %w", err)
		}
	}
	return nil
}
