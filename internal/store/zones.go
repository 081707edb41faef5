package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Mongo) CreateZone(ctx context.Context, zone Zone) error {
	zone.CreatedAt = time.Now().UTC()
	return insertOne(ctx, s.col(colZones), zone)
}

func (s *Mongo) GetZone(ctx context.Context, id string) (Zone, error) {
	return findOne[Zone](ctx, s.col(colZones), bson.D{{Key: "_id", Value: id}})
}

func (s *Mongo) ListZones(ctx context.Context) ([]Zone, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return findMany[Zone](ctx, s.col(colZones), bson.D{}, opts)
}
