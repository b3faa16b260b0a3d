package users

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository defines persistence operations for users. Lookups return
// (nil, nil) when nothing matches.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id int64) error
}

// MemoryUserRepository keeps users in process memory with sequential ids.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{byID: map[int64]*models.User{}}
}

func (r *MemoryUserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, ErrEmailTaken
		}
	}
	r.nextID++
	cp := *u
	cp.ID = r.nextID
	stamp(&cp)
	r.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	cp.UpdatedAt = time.Now().UTC()
	r.byID[u.ID] = &cp
	return nil
}

func (r *MemoryUserRepository) find(match func(*models.User) bool) *models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id }), nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) }), nil
}

func (r *MemoryUserRepository) GetByGoogleSub(ctx context.Context, sub string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.GoogleSub != "" && u.GoogleSub == sub }), nil
}

func (r *MemoryUserRepository) List(ctx context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryUserRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func stamp(u *models.User) {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
}

// MongoUserRepository implements UserRepository using MongoDB. Integer ids
// come from a counters collection so they match what the web client expects.
type MongoUserRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col, counters: col.Database().Collection("counters")}
}

func (r *MongoUserRepository) nextID(ctx context.Context) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx, bson.M{"_id": r.col.Name()}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&doc)
	return doc.Seq, err
}

func (r *MongoUserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if existing, err := r.GetByEmail(ctx, u.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailTaken
	}
	id, err := r.nextID(ctx)
	if err != nil {
		return nil, err
	}
	cp := *u
	cp.ID = id
	cp.Email = strings.ToLower(cp.Email)
	stamp(&cp)
	if _, err := r.col.InsertOne(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (r *MongoUserRepository) Update(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *MongoUserRepository) GetByGoogleSub(ctx context.Context, sub string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"googleSub": sub})
}

func (r *MongoUserRepository) List(ctx context.Context) ([]models.User, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoUserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
