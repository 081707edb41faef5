// Package store persists users, zones, complaints, and comments in MongoDB.
// Every mutation is scoped to a single document; the conditional-update
// helpers on complaints are the atomicity primitive the vote and workflow
// operations rely on.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	colUsers      = "users"
	colZones      = "zones"
	colComplaints = "complaints"
	colComments   = "comments"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
	// ErrConflict means the document exists but a conditional update's
	// guard did not match (already voted, wrong status, wrong assignee).
	ErrConflict = errors.New("conflict")
)

type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

func Open(ctx context.Context, uri, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Mongo{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return s, nil
}

func (s *Mongo) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Mongo) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Mongo) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Mongo) ensureIndexes(ctx context.Context) error {
	type idx struct {
		col    string
		keys   bson.D
		unique bool
	}

	indexes := []idx{
		{colUsers, bson.D{{Key: "email", Value: 1}}, true},
		{colUsers, bson.D{{Key: "role", Value: 1}, {Key: "category", Value: 1}}, false},

		{colZones, bson.D{{Key: "name", Value: 1}}, true},

		{colComplaints, bson.D{{Key: "author", Value: 1}}, false},
		{colComplaints, bson.D{{Key: "assignedTo", Value: 1}, {Key: "status", Value: 1}}, false},
		{colComplaints, bson.D{{Key: "upvoteCount", Value: -1}}, false},
		{colComplaints, bson.D{{Key: "createdAt", Value: -1}}, false},

		{colComments, bson.D{{Key: "complaint", Value: 1}}, false},
	}

	for _, i := range indexes {
		model := mongo.IndexModel{Keys: i.keys}
		if i.unique {
			model.Options = options.Index().SetUnique(true)
		}
		if _, err := s.col(i.col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", i.col, err)
		}
	}
	return nil
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.D) (T, error) {
	var result T
	if err := col.FindOne(ctx, filter).Decode(&result); err != nil {
		return result, wrapError(err)
	}
	return result, nil
}

func findMany[T any](ctx context.Context, col *mongo.Collection, filter bson.D, opts ...options.Lister[options.FindOptions]) ([]T, error) {
	cursor, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer cursor.Close(ctx)

	results := []T{}
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func insertOne(ctx context.Context, col *mongo.Collection, doc any) error {
	_, err := col.InsertOne(ctx, doc)
	return wrapError(err)
}

func deleteByID(ctx context.Context, col *mongo.Collection, id string) error {
	res, err := col.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return wrapError(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func setFields(ctx context.Context, col *mongo.Collection, id string, fields bson.D) error {
	fields = append(fields, bson.E{Key: "updatedAt", Value: time.Now().UTC()})
	res, err := col.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: fields}})
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// conditionalUpdate runs a guarded FindOneAndUpdate against a complaint-style
// document and distinguishes "document missing" from "guard did not match".
func conditionalUpdate[T any](ctx context.Context, col *mongo.Collection, id string, guard bson.D, update bson.D) (T, error) {
	var updated T
	filter := append(bson.D{{Key: "_id", Value: id}}, guard...)
	err := col.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return updated, err
	}

	count, countErr := col.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if countErr != nil {
		return updated, countErr
	}
	if count == 0 {
		return updated, ErrNotFound
	}
	return updated, ErrConflict
}
