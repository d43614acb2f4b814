package repository

import (
	"context"
	"time"

	"pharma-order-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoDeviceRepository struct {
	col *mongo.Collection
}

func NewMongoDeviceRepository(db *mongo.Database) *MongoDeviceRepository {
	return &MongoDeviceRepository{col: db.Collection("devices")}
}

// Register da de alta el endpoint; el mismo endpoint dos veces es ErrConflict.
func (r *MongoDeviceRepository) Register(ctx context.Context, d *model.Device) error {
	existing := r.col.FindOne(ctx, bson.M{
		"app_id":   d.AppID,
		"user_id":  d.UserID,
		"endpoint": d.Endpoint,
	})
	if existing.Err() == nil {
		return ErrConflict
	}
	if existing.Err() != mongo.ErrNoDocuments {
		return existing.Err()
	}

	d.CreatedAt = time.Now().UTC()
	_, err := r.col.InsertOne(ctx, d)
	return err
}

func (r *MongoDeviceRepository) FindByID(ctx context.Context, deviceID string) (*model.Device, error) {
	var res model.Device
	err := r.col.FindOne(ctx, bson.M{"device_id": deviceID}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &res, err
}

func (r *MongoDeviceRepository) FindByApp(ctx context.Context, appID string) ([]*model.Device, error) {
	return r.findAll(ctx, bson.M{"app_id": appID})
}

func (r *MongoDeviceRepository) FindByAppAndUser(ctx context.Context, appID, userID string) ([]*model.Device, error) {
	return r.findAll(ctx, bson.M{"app_id": appID, "user_id": userID})
}

func (r *MongoDeviceRepository) Delete(ctx context.Context, deviceID string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"device_id": deviceID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoDeviceRepository) findAll(ctx context.Context, filter bson.M) ([]*model.Device, error) {
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.Device
	for cur.Next(ctx) {
		var v model.Device
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}
