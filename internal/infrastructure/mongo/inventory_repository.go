package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/travelshop/internal/domain/inventory"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type InventoryRepository struct {
	coll *mongo.Collection
}

func NewInventoryRepository(coll *mongo.Collection) *InventoryRepository {
	return &InventoryRepository{coll: coll}
}

func (r *InventoryRepository) Get(ctx context.Context, id string) (*domain.Record, error) {
	var doc inventoryDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("inventory repository: get: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *InventoryRepository) Set(ctx context.Context, record *domain.Record) error {
	if record == nil {
		return nil
	}
	doc := inventoryDoc{ID: record.ID, Stock: record.Stock, UpdatedAt: record.UpdatedAt}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": record.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("inventory repository: set: %w", err)
	}
	return nil
}

// Adjust is a single $inc. Decrements carry a stock >= -delta guard, so the
// server never stores a negative count.
func (r *InventoryRepository) Adjust(ctx context.Context, id string, delta int) (int, error) {
	filter, update := adjustOps(id, delta, time.Now().UTC())
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc inventoryDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.Stock, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("inventory repository: adjust: %w", err)
	}

	current, gerr := r.Get(ctx, id)
	if gerr != nil {
		return 0, gerr
	}
	return current.Stock, domain.ErrInsufficientStock
}

func adjustOps(id string, delta int, now time.Time) (bson.M, bson.M) {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["stock"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"stock": delta},
		"$set": bson.M{"updatedAt": now},
	}
	return filter, update
}
