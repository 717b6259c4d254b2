package users

import (
	"context"
	"time"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository defines persistence operations for user role records
type UserRepository interface {
	UpsertBySub(ctx context.Context, u *models.User) (*models.User, error)
	GetBySub(ctx context.Context, sub string) (*models.User, error)
	// UpdateRoles overwrites the role fields of an existing record.
	UpdateRoles(ctx context.Context, sub string, role, supporterRole string, ownedSupporterIDs []string) error
	// Search matches by sub, email, phone, or an owned supporter slug.
	Search(ctx context.Context, query string) ([]*models.User, error)
}

// userDoc is the persisted shape. It additionally decodes the deprecated
// scalar ownedSupporterId field written by old clients; reads never fail on
// the legacy shape and MigrateLegacyOwnership rewrites it once.
type userDoc struct {
	ID                string    `bson:"_id,omitempty"`
	Sub               string    `bson:"sub"`
	Email             string    `bson:"email"`
	Name              string    `bson:"name"`
	Phone             string    `bson:"phone,omitempty"`
	Role              string    `bson:"role"`
	SupporterRole     string    `bson:"supporterRole,omitempty"`
	OwnedSupporterIDs []string  `bson:"ownedSupporterIds,omitempty"`
	LegacyOwnedID     string    `bson:"ownedSupporterId,omitempty"`
	CreatedAt         time.Time `bson:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt"`
}

func (d *userDoc) toUser() *models.User {
	ids := d.OwnedSupporterIDs
	if len(ids) == 0 && d.LegacyOwnedID != "" {
		ids = []string{d.LegacyOwnedID}
	}
	return &models.User{
		ID:                d.ID,
		Sub:               d.Sub,
		Email:             d.Email,
		Name:              d.Name,
		Phone:             d.Phone,
		Role:              d.Role,
		SupporterRole:     d.SupporterRole,
		OwnedSupporterIDs: ids,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// MongoUserRepository implements UserRepository using MongoDB
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	// sub is the primary lookup key
	idx := mongo.IndexModel{Keys: bson.D{{Key: "sub", Value: 1}}, Options: options.Index().SetUnique(true)}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MongoUserRepository{col: col}
}

func (r *MongoUserRepository) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	filter := bson.M{"sub": u.Sub}
	// role fields are only seeded on first insert; later mutations go
	// through UpdateRoles exclusively
	set := bson.M{
		"email":     u.Email,
		"name":      u.Name,
		"updatedAt": u.UpdatedAt,
	}
	if u.Phone != "" {
		set["phone"] = u.Phone
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"role":      u.Role,
			"createdAt": u.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated userDoc
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return u, nil
		}
		return nil, err
	}
	return updated.toUser(), nil
}

func (r *MongoUserRepository) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	var d userDoc
	if err := r.col.FindOne(ctx, bson.M{"sub": sub}).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return d.toUser(), nil
}

func (r *MongoUserRepository) UpdateRoles(ctx context.Context, sub string, role, supporterRole string, ownedSupporterIDs []string) error {
	set := bson.M{"role": role, "updatedAt": time.Now().UTC()}
	unset := bson.M{"ownedSupporterId": ""}
	if supporterRole == "" {
		unset["supporterRole"] = ""
	} else {
		set["supporterRole"] = supporterRole
	}
	if len(ownedSupporterIDs) == 0 {
		unset["ownedSupporterIds"] = ""
	} else {
		set["ownedSupporterIds"] = ownedSupporterIDs
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"sub": sub}, bson.M{"$set": set, "$unset": unset})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *MongoUserRepository) Search(ctx context.Context, query string) ([]*models.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sub": query},
		bson.M{"email": query},
		bson.M{"phone": query},
		bson.M{"ownedSupporterIds": query},
		bson.M{"ownedSupporterId": query},
	}}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*models.User{}
	for cur.Next(ctx) {
		var d userDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.toUser())
	}
	return out, cur.Err()
}
