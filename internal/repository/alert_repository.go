package repository

import (
	"context"
	"time"

	"pharma-order-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoAlertRepository struct {
	col *mongo.Collection
}

func NewMongoAlertRepository(db *mongo.Database) *MongoAlertRepository {
	return &MongoAlertRepository{col: db.Collection("alerts")}
}

func (r *MongoAlertRepository) Create(ctx context.Context, a *model.Alert) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, a)
	return err
}

func (r *MongoAlertRepository) FindByID(ctx context.Context, alertID string) (*model.Alert, error) {
	var res model.Alert
	err := r.col.FindOne(ctx, bson.M{"alert_id": alertID}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &res, err
}

func (r *MongoAlertRepository) FindByOrderID(ctx context.Context, orderID string) ([]*model.Alert, error) {
	return r.findAll(ctx, bson.M{"order_id": orderID})
}

func (r *MongoAlertRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Alert, error) {
	return r.findAll(ctx, bson.M{"user_id": userID})
}

// FindActivated: las alarmas vivas, para rearmar timers tras un reinicio.
func (r *MongoAlertRepository) FindActivated(ctx context.Context) ([]*model.Alert, error) {
	return r.findAll(ctx, bson.M{"status": model.AlertActivated})
}

func (r *MongoAlertRepository) UpdateStatus(ctx context.Context, alertID, status string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"alert_id": alertID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoAlertRepository) UpdateSchedule(ctx context.Context, alertID, status string, nextFireAt time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"alert_id": alertID},
		bson.M{"$set": bson.M{
			"status":       status,
			"next_fire_at": nextFireAt,
			"updated_at":   time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoAlertRepository) Update(ctx context.Context, a *model.Alert) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"alert_id": a.AlertID},
		bson.M{"$set": bson.M{
			"title":             a.Title,
			"message":           a.Message,
			"periodicity":       a.Periodicity,
			"warning_end_alert": a.WarningEndAlert,
			"alert_hour":        a.AlertHour,
			"alert_repeat":      a.AlertRepeat,
			"updated_at":        time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoAlertRepository) Delete(ctx context.Context, alertID string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"alert_id": alertID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoAlertRepository) findAll(ctx context.Context, filter bson.M) ([]*model.Alert, error) {
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.Alert
	for cur.Next(ctx) {
		var v model.Alert
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}
