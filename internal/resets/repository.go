package resets

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository persists pending resets. Get returns (nil, nil) when the token is unknown.
type Repository interface {
	Create(ctx context.Context, r *Reset) error
	Get(ctx context.Context, token string) (*Reset, error)
	Delete(ctx context.Context, token string) error
}

// MemoryRepository keeps resets in process memory.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]*Reset
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: map[string]*Reset{}}
}

func (r *MemoryRepository) Create(ctx context.Context, rs *Reset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rs
	r.m[rs.Token] = &cp
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, token string) (*Reset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.m[token]
	if !ok {
		return nil, nil
	}
	cp := *rs
	return &cp, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, token)
	return nil
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, rs *Reset) error {
	now := time.Now().UTC()
	if rs.CreatedAt.IsZero() {
		rs.CreatedAt = now
	}
	if rs.ExpiresAt.IsZero() {
		rs.ExpiresAt = now.Add(DefaultTTL)
	}
	_, err := r.col.InsertOne(ctx, rs)
	return err
}

func (r *MongoRepository) Get(ctx context.Context, token string) (*Reset, error) {
	var rs Reset
	if err := r.col.FindOne(ctx, bson.M{"token": token}).Decode(&rs); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &rs, nil
}

func (r *MongoRepository) Delete(ctx context.Context, token string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"token": token})
	return err
}
