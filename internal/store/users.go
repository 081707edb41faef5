package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Mongo) CreateUser(ctx context.Context, user User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	return insertOne(ctx, s.col(colUsers), user)
}

func (s *Mongo) GetUserByID(ctx context.Context, id string) (User, error) {
	return findOne[User](ctx, s.col(colUsers), bson.D{{Key: "_id", Value: id}})
}

func (s *Mongo) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return findOne[User](ctx, s.col(colUsers), bson.D{{Key: "email", Value: email}})
}

func (s *Mongo) ListUsers(ctx context.Context) ([]User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findMany[User](ctx, s.col(colUsers), bson.D{}, opts)
}

// ListPartnersByCategory returns partner-role users servicing the category.
func (s *Mongo) ListPartnersByCategory(ctx context.Context, category Category) ([]User, error) {
	filter := bson.D{
		{Key: "role", Value: "partner"},
		{Key: "category", Value: category},
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return findMany[User](ctx, s.col(colUsers), filter, opts)
}

func (s *Mongo) SetUserBlocked(ctx context.Context, id string, blocked bool) error {
	return setFields(ctx, s.col(colUsers), id, bson.D{{Key: "isBlocked", Value: blocked}})
}

func (s *Mongo) SetUserRole(ctx context.Context, id, role string) error {
	return setFields(ctx, s.col(colUsers), id, bson.D{{Key: "role", Value: role}})
}
