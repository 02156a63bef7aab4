package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/admin-console/internal/core/domain"
)

const collectionUsers = "users"

// fieldKeys allow-lists the fields Find may filter on.
var fieldKeys = map[domain.UserField]string{
	domain.FieldEmail: "email",
}

// UserStore is the registry collection. Records are addressed by the hex form
// of their ObjectID.
type UserStore struct {
	col *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{col: db.Collection(collectionUsers)}
}

type mongoUser struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Email       string             `bson:"email"`
	DisplayName string             `bson:"display_name,omitempty"`
	PhotoURL    string             `bson:"photo_url,omitempty"`
	Role        string             `bson:"role"`
	CreatedAt   time.Time          `bson:"created_at"`
	CreatedBy   string             `bson:"created_by"`
}

func (m mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:          m.ID.Hex(),
		Email:       m.Email,
		DisplayName: m.DisplayName,
		PhotoURL:    m.PhotoURL,
		Role:        domain.NormalizeRole(m.Role),
		CreatedAt:   m.CreatedAt.UTC(),
		CreatedBy:   m.CreatedBy,
	}
}

// Find returns every record whose field equals value, oldest first.
func (s *UserStore) Find(ctx context.Context, field domain.UserField, value string) ([]*domain.User, error) {
	key, ok := fieldKeys[field]
	if !ok {
		return nil, fmt.Errorf("find users: unknown field %q: %w", field, domain.ErrValidation)
	}
	return s.find(ctx, bson.M{key: value})
}

// List returns the whole collection, oldest first.
func (s *UserStore) List(ctx context.Context) ([]*domain.User, error) {
	return s.find(ctx, bson.M{})
}

func (s *UserStore) find(ctx context.Context, filter bson.M) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, unavailable("find users", err)
	}
	defer cur.Close(ctx)

	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, unavailable("decode users", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, nil
}

// GetByID returns domain.ErrNotFound for absent or malformed ids.
func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoUser
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, unavailable("get user", err)
	}
	return doc.toDomain(), nil
}

// Insert writes a new record. With the unique email index in place a second
// record for the same email yields domain.ErrConflict.
func (s *UserStore) Insert(ctx context.Context, user *domain.User) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoUser{
		ID:          primitive.NewObjectID(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		Role:        string(user.Role),
		CreatedAt:   user.CreatedAt.UTC(),
		CreatedBy:   user.CreatedBy,
	}
	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("insert user %s: %w", user.Email, domain.ErrConflict)
		}
		return "", unavailable("insert user", err)
	}
	return doc.ID.Hex(), nil
}

// Update merges the set fields of update with $set. It never upserts.
func (s *UserStore) Update(ctx context.Context, id string, update domain.UserUpdate) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{}
	if update.DisplayName != nil {
		set["display_name"] = *update.DisplayName
	}
	if update.PhotoURL != nil {
		set["photo_url"] = *update.PhotoURL
	}
	if update.Role != nil {
		set["role"] = string(*update.Role)
	}

	if len(set) == 0 {
		n, err := s.col.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
		if err != nil {
			return unavailable("update user", err)
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		return nil
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return unavailable("update user", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the record. Absent or malformed ids are not an error.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return unavailable("delete user", err)
	}
	return nil
}

// EnsureIndexes creates the email lookup index. uniqueEmail turns it into a
// unique index, which closes the concurrent-create race at the store level.
func (s *UserStore) EnsureIndexes(ctx context.Context, uniqueEmail bool) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	name := "email_1"
	if uniqueEmail {
		name = "email_unique"
	}
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName(name).SetUnique(uniqueEmail),
	})
	if err != nil {
		return fmt.Errorf("ensure user indexes: %w", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
