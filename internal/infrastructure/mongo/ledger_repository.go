package mongo

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/travelshop/internal/domain/payment"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LedgerRepository keeps payment entries. Entries are never deleted.
type LedgerRepository struct {
	coll *mongo.Collection
}

func NewLedgerRepository(coll *mongo.Collection) *LedgerRepository {
	return &LedgerRepository{coll: coll}
}

func (r *LedgerRepository) Insert(ctx context.Context, entry *domain.Entry) error {
	if entry == nil || entry.ID == "" {
		return fmt.Errorf("ledger repository: id is required")
	}
	if entry.Version == 0 {
		entry.Version = 1
	}
	if _, err := r.coll.InsertOne(ctx, toEntryDoc(entry)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("ledger repository: insert: %w", err)
	}
	return nil
}

func (r *LedgerRepository) Get(ctx context.Context, id string) (*domain.Entry, error) {
	var doc entryDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("ledger repository: get: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *LedgerRepository) Update(ctx context.Context, entry *domain.Entry) error {
	if entry == nil || entry.ID == "" {
		return fmt.Errorf("ledger repository: id is required")
	}
	doc := toEntryDoc(entry)
	doc.Version = entry.Version + 1

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": entry.ID, "version": entry.Version}, doc)
	if err != nil {
		return fmt.Errorf("ledger repository: update: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": entry.ID}, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("ledger repository: update: %w", err)
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	entry.Version = doc.Version
	return nil
}

func (r *LedgerRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"orderId": orderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: find: %w", err)
	}
	var docs []entryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("ledger repository: decode: %w", err)
	}
	out := make([]*domain.Entry, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
