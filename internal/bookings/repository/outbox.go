package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "radiantgo/internal/bookings/errors"
	"radiantgo/pkg/config"
	"radiantgo/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	OutboxCollectionName = "Outbox"
)

// OutboxRepository persists "an event must be published" records. Create is
// called inside the same transaction as the booking write it describes, so
// the signal survives a crash after commit.
type OutboxRepository interface {
	Create(ctx context.Context, bookingRef, eventType string, payload []byte) (*model.OutboxEntry, error)
	FindUnpublished(ctx context.Context, limit int) ([]*model.OutboxEntry, error)
	MarkPublished(ctx context.Context, id string) error
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type mongoOutboxRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoOutboxRepository(cfg *config.Config) OutboxRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOutboxRepository{
		cfg:        cfg,
		collection: db.Collection(OutboxCollectionName),
	}
}

func (r *mongoOutboxRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoOutboxRepository) Create(ctx context.Context, bookingRef, eventType string, payload []byte) (*model.OutboxEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	entry := &model.OutboxEntry{
		ID:          uuid.NewString(),
		BookingRef:  bookingRef,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		PublishedAt: nil,
	}

	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record outbox entry: %w", err)
	}

	return entry, nil
}

// FindUnpublished returns undelivered entries oldest first, so one
// booking's events drain in creation order.
func (r *mongoOutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*model.OutboxEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"published_at": nil}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find unpublished entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*model.OutboxEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode outbox entries: %w", err)
	}

	return entries, nil
}

func (r *mongoOutboxRepository) MarkPublished(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"published_at": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark entry published: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrOutboxEntryNotFound
	}

	return nil
}

// DeletePublishedBefore removes delivered entries older than the cutoff.
// The published_at filter is what keeps undelivered entries immortal:
// cleanup must never drop an event that is still owed.
func (r *mongoOutboxRepository) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"published_at": bson.M{
			"$ne": nil,
			"$lt": cutoff,
		},
	}

	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up outbox: %w", err)
	}

	return result.DeletedCount, nil
}
