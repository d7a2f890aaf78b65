package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/chorely/chorely/internal/database"
	"github.com/chorely/chorely/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserRepository keeps each user and its refresh-token set in a single
// document, so every token operation is one atomic document update.
type MongoUserRepository struct {
	users *mongodriver.Collection
}

func NewMongoUserRepository(m *database.Mongo) *MongoUserRepository {
	return &MongoUserRepository{users: m.DB.Collection(database.UsersCollection)}
}

type userDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Username      string             `bson:"username"`
	Email         string             `bson:"email"`
	PasswordHash  string             `bson:"password_hash,omitempty"`
	RefreshTokens []string           `bson:"refresh_tokens"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

func (d *userDocument) toModel() *models.User {
	tokens := d.RefreshTokens
	if tokens == nil {
		tokens = []string{}
	}
	return &models.User{
		ID:            d.ID.Hex(),
		Username:      d.Username,
		Email:         d.Email,
		PasswordHash:  d.PasswordHash,
		RefreshTokens: tokens,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// MongoDB stores milliseconds
func mongoNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

var withoutPassword = bson.D{{Key: "password_hash", Value: 0}}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.D, withPassword bool) (*models.User, error) {
	opts := options.FindOne()
	if !withPassword {
		opts.SetProjection(withoutPassword)
	}

	var doc userDocument
	if err := r.users.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		return nil, database.MapMongoError(err)
	}
	return doc.toModel(), nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}}, false)
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}}, false)
}

// GetByEmailWithPassword is the only read that loads the password hash
func (r *MongoUserRepository) GetByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}}, true)
}

func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "username", Value: username}}, false)
}

func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := mongoNow()
	doc := userDocument{
		Username:      user.Username,
		Email:         user.Email,
		PasswordHash:  user.PasswordHash,
		RefreshTokens: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	res, err := r.users.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", database.MapMongoError(err))
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to create user: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	doc.PasswordHash = ""

	return doc.toModel(), nil
}

func (r *MongoUserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrNotFound
	}

	res, err := r.users.UpdateByID(ctx, oid, bson.D{{Key: "$set", Value: bson.D{
		{Key: "password_hash", Value: hash},
		{Key: "updated_at", Value: mongoNow()},
	}}})
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", database.MapMongoError(err))
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) AddRefreshToken(ctx context.Context, userID, token string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return models.ErrNotFound
	}

	res, err := r.users.UpdateByID(ctx, oid, bson.D{{Key: "$push", Value: bson.D{{Key: "refresh_tokens", Value: token}}}})
	if err != nil {
		return fmt.Errorf("failed to add refresh token: %w", database.MapMongoError(err))
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RotateRefreshToken removes oldToken and appends newToken with a single
// pipeline update matched on oldToken. Two concurrent rotations of the same
// token cannot both match.
func (r *MongoUserRepository) RotateRefreshToken(ctx context.Context, oldToken, newToken string) (*models.User, error) {
	filter := bson.D{{Key: "refresh_tokens", Value: oldToken}}
	update := mongodriver.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "refresh_tokens", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$filter", Value: bson.D{
					{Key: "input", Value: "$refresh_tokens"},
					{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this", oldToken}}}},
				}}},
				bson.A{newToken},
			}}}},
			{Key: "updated_at", Value: "$$NOW"},
		}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)

	var doc userDocument
	if err := r.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", database.MapMongoError(err))
	}
	return doc.toModel(), nil
}

func (r *MongoUserRepository) RemoveRefreshToken(ctx context.Context, token string) (bool, error) {
	res, err := r.users.UpdateOne(ctx,
		bson.D{{Key: "refresh_tokens", Value: token}},
		bson.D{{Key: "$pull", Value: bson.D{{Key: "refresh_tokens", Value: token}}}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove refresh token: %w", database.MapMongoError(err))
	}
	return res.ModifiedCount > 0, nil
}
