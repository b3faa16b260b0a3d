package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoEntry struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoStore keeps one document per key in the given collection.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

func (s *MongoStore) Get(ctx context.Context, key string) (string, bool, error) {
	var e mongoEntry
	if err := s.col.FindOne(ctx, bson.M{"_id": key}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, err
	}
	return e.Value, true, nil
}

func (s *MongoStore) Set(ctx context.Context, key, value string) error {
	upd := bson.M{"$set": bson.M{"value": value, "updatedAt": time.Now().UTC()}}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": key}, upd, options.Update().SetUpsert(true))
	return err
}

func (s *MongoStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
	return err
}
