package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Mongo) CreateComment(ctx context.Context, comment Comment) error {
	comment.CreatedAt = time.Now().UTC()
	return insertOne(ctx, s.col(colComments), comment)
}

func (s *Mongo) GetComment(ctx context.Context, id string) (Comment, error) {
	return findOne[Comment](ctx, s.col(colComments), bson.D{{Key: "_id", Value: id}})
}

func (s *Mongo) ListCommentsByComplaint(ctx context.Context, complaintID string) ([]Comment, error) {
	filter := bson.D{{Key: "complaint", Value: complaintID}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findMany[Comment](ctx, s.col(colComments), filter, opts)
}

func (s *Mongo) DeleteComment(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(colComments), id)
}

// DeleteCommentsByComplaint removes all comments under a deleted complaint.
func (s *Mongo) DeleteCommentsByComplaint(ctx context.Context, complaintID string) error {
	_, err := s.col(colComments).DeleteMany(ctx, bson.D{{Key: "complaint", Value: complaintID}})
	return wrapError(err)
}
