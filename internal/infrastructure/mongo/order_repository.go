package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	domain "github.com/Zhima-Mochi/travelshop/internal/domain/order"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OrderRepository struct {
	coll *mongo.Collection
}

func NewOrderRepository(coll *mongo.Collection) *OrderRepository {
	return &OrderRepository{coll: coll}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	if order.Version == 0 {
		order.Version = 1
	}
	if _, err := r.coll.InsertOne(ctx, toOrderDoc(order)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("order repository: insert: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	var doc orderDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("order repository: get: %w", err)
	}
	return doc.toDomain(), nil
}

// Update replaces the document only while its version still matches.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	doc := toOrderDoc(order)
	doc.Version = order.Version + 1

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": order.ID, "version": order.Version}, doc)
	if err != nil {
		return fmt.Errorf("order repository: update: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, order.ID)
	}
	order.Version = doc.Version
	return nil
}

func (r *OrderRepository) missOrConflict(ctx context.Context, id string) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("order repository: update: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("order repository: delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, userID string) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, bson.M{"customer.userId": userID}, opts)
}

func (r *OrderRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, int, error) {
	f := filter.Normalize()
	query := listQuery(f)

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("order repository: count: %w", err)
	}
	opts := options.Find().
		SetSort(listSort(f)).
		SetSkip(int64(f.Offset())).
		SetLimit(int64(f.Limit))
	orders, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return orders, int(total), nil
}

func (r *OrderRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]*domain.Order, error) {
	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("order repository: find: %w", err)
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("order repository: decode: %w", err)
	}
	out := make([]*domain.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// listQuery mirrors the matching rules of the in-memory repository.
func listQuery(f domain.ListFilter) bson.M {
	q := bson.M{}
	if len(f.Statuses) > 0 {
		in := make(bson.A, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			in = append(in, string(s))
		}
		q["status"] = bson.M{"$in": in}
	}
	created := bson.M{}
	if !f.CreatedFrom.IsZero() {
		created["$gte"] = f.CreatedFrom
	}
	if !f.CreatedTo.IsZero() {
		created["$lte"] = f.CreatedTo
	}
	if len(created) > 0 {
		q["createdAt"] = created
	}
	total := bson.M{}
	if f.MinTotal > 0 {
		total["$gte"] = f.MinTotal
	}
	if f.MaxTotal > 0 {
		total["$lte"] = f.MaxTotal
	}
	if len(total) > 0 {
		q["total"] = total
	}
	if f.PaymentMethod != "" {
		q["payment.method"] = f.PaymentMethod
	}
	if f.PaymentStatus != "" {
		q["payment.status"] = string(f.PaymentStatus)
	}
	if f.ProductID != "" {
		q["items.productId"] = f.ProductID
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		re := bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
		q["$or"] = bson.A{
			bson.M{"orderNumber": re},
			bson.M{"_id": re},
			bson.M{"customer.name": re},
			bson.M{"customer.email": re},
			bson.M{"customer.phone": re},
			bson.M{"items.title": re},
		}
	}
	return q
}

func listSort(f domain.ListFilter) bson.D {
	dir := 1
	if f.Desc {
		dir = -1
	}
	field := "createdAt"
	switch f.Sort {
	case domain.SortTotal:
		field = "total"
	case domain.SortStatus:
		field = "status"
	case domain.SortNumber:
		field = "orderNumber"
	}
	sort := bson.D{{Key: field, Value: dir}}
	if field != "createdAt" {
		sort = append(sort, bson.E{Key: "createdAt", Value: dir})
	}
	return append(sort, bson.E{Key: "_id", Value: dir})
}
