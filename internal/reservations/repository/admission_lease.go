package repository

import (
	"context"
	"fmt"
	"time"

	reservationserrors "campsite/internal/reservations/errors"
	"campsite/pkg/config"
	"campsite/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	LeaseCollectionName = "Admission_leases"
	AdmissionLeaseID    = "campsite_admission"
)

// AdmissionLeaseRepository guards admission across processes that share one
// database. It does not replace the in-process gate; it refuses admission
// when a second process is already admitting.
type AdmissionLeaseRepository interface {
	Acquire(ctx context.Context, holder string, ttl time.Duration) error
	Release(ctx context.Context, holder string) error
}

type mongoAdmissionLeaseRepository struct {
	collection *mongo.Collection
}

func NewAdmissionLeaseRepository(cfg *config.Config) AdmissionLeaseRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAdmissionLeaseRepository{
		collection: db.Collection(LeaseCollectionName),
	}
}

// Acquire inserts the lease document. A live lease held by someone else
// yields ErrLeaseHeld; an expired one is taken over.
func (r *mongoAdmissionLeaseRepository) Acquire(ctx context.Context, holder string, ttl time.Duration) error {
	ts := time.Now().UTC()
	lease := &model.AdmissionLease{
		ID:        AdmissionLeaseID,
		Holder:    holder,
		ExpiresAt: ts.Add(ttl),
		CreatedAt: ts,
	}

	_, err := r.collection.InsertOne(ctx, lease)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to acquire admission lease: %w", err)
	}

	// The TTL monitor only runs once a minute, so expired leases are
	// reclaimed here as well.
	filter := bson.M{"_id": AdmissionLeaseID, "expires_at": bson.M{"$lt": ts}}
	update := bson.M{"$set": bson.M{"holder": holder, "expires_at": lease.ExpiresAt, "created_at": ts}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to take over expired admission lease: %w", err)
	}
	if result.MatchedCount == 0 {
		return reservationserrors.ErrLeaseHeld
	}
	return nil
}

func (r *mongoAdmissionLeaseRepository) Release(ctx context.Context, holder string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": AdmissionLeaseID, "holder": holder})
	if err != nil {
		return fmt.Errorf("failed to release admission lease: %w", err)
	}
	return nil
}
