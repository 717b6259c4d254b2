package supporters

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errors.New("supporter not found")
	ErrSlugTaken = errors.New("supporter slug already taken")
)

// Repository defines persistence operations for supporter listings
type Repository interface {
	Create(ctx context.Context, s *Supporter) error
	GetBySlug(ctx context.Context, slug string) (*Supporter, error)
	List(ctx context.Context) ([]*Supporter, error)
	SetOwner(ctx context.Context, slug, ownerUserID string) error
	UpdateDetails(ctx context.Context, slug string, s *Supporter) error
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	// slug uniqueness backs the creation-time collision rejection
	idx := mongo.IndexModel{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, s *Supporter) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}

func (r *MongoRepository) GetBySlug(ctx context.Context, slug string) (*Supporter, error) {
	var s Supporter
	if err := r.col.FindOne(ctx, bson.M{"slug": slug}).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepository) List(ctx context.Context) ([]*Supporter, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*Supporter{}
	for cur.Next(ctx) {
		var s Supporter
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, cur.Err()
}

func (r *MongoRepository) SetOwner(ctx context.Context, slug, ownerUserID string) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	update := bson.M{"$set": set}
	if ownerUserID == "" {
		update["$unset"] = bson.M{"ownerUserId": ""}
	} else {
		set["ownerUserId"] = ownerUserID
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"slug": slug}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) UpdateDetails(ctx context.Context, slug string, s *Supporter) error {
	set := bson.M{
		"name":        s.Name,
		"description": s.Description,
		"address":     s.Address,
		"phone":       s.Phone,
		"hours":       s.Hours,
		"updatedAt":   time.Now().UTC(),
	}
	if s.ImageKey != "" {
		set["imageKey"] = s.ImageKey
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"slug": slug}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
