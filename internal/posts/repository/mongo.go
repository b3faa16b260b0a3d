package repository

import (
	"context"
	"errors"
	"regexp"

	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/aiot-hub/aiot/backend/go-client/internal/posts"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements a MongoDB-backed repository for posts. Ids are the
// string uuids assigned by the service.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(ctx context.Context, col *mongo.Collection) (*MongoRepo, error) {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, err
	}
	return &MongoRepo{col: col}, nil
}

func (m *MongoRepo) Create(ctx context.Context, p *models.Post) error {
	_, err := m.col.InsertOne(ctx, p)
	return err
}

func (m *MongoRepo) findOne(ctx context.Context, filter bson.M) (*models.Post, error) {
	var p models.Post
	if err := m.col.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*models.Post, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoRepo) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return m.findOne(ctx, bson.M{"slug": slug})
}

func (m *MongoRepo) List(ctx context.Context, f posts.Filter) ([]models.Post, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Search != "" {
		re := primitiveRegex(f.Search)
		filter["$or"] = bson.A{bson.M{"title": re}, bson.M{"content": re}}
	}
	n := f.Page
	if n < 1 {
		n = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((n - 1) * posts.PerPage)).
		SetLimit(posts.PerPage)
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Post{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func primitiveRegex(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

func (m *MongoRepo) Update(ctx context.Context, p *models.Post) error {
	res, err := m.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
