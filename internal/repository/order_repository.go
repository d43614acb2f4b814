package repository

import (
	"context"
	"time"

	"pharma-order-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Mongo implementation
type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection("orders")}
}

// TrackingUpdate agrupa lo que una transición puede tocar además del tracking.
// FromLen es la longitud del tracking que el escritor leyó: la actualización
// solo se aplica si nadie añadió un evento entre medias.
type TrackingUpdate struct {
	FromLen          int
	Event            model.TrackingEvent
	SetFinishedRider bool
	SetFinishedUser  bool
	// ClearRider quita el rider en la misma actualización que el evento
	ClearRider bool
	Products   *model.Products
}

func (r *MongoOrderRepository) Create(ctx context.Context, o *model.Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, o)
	return err
}

func (r *MongoOrderRepository) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	var res model.Order
	err := r.col.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &res, err
}

// AppendTracking añade un evento al tracking de forma condicional: si otro
// escritor ya alargó el array, no casa el filtro y devolvemos ErrConflict
// para que el servicio recargue y revalide.
func (r *MongoOrderRepository) AppendTracking(ctx context.Context, orderID string, upd TrackingUpdate) error {
	filter := bson.M{
		"order_id": orderID,
		"tracking": bson.M{"$size": upd.FromLen},
	}

	set := bson.M{
		"last_status": upd.Event.Status,
		"updated_at":  time.Now().UTC(),
	}
	if upd.SetFinishedRider {
		set["is_finished_rider"] = true
	}
	if upd.SetFinishedUser {
		set["is_finished_user"] = true
	}
	if upd.Products != nil {
		set["products"] = upd.Products
	}

	update := bson.M{
		"$push": bson.M{"tracking": upd.Event},
		"$set":  set,
	}
	if upd.ClearRider {
		update["$unset"] = bson.M{"rider": ""}
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Puede ser pedido inexistente o tracking ya crecido
		if _, err := r.FindByID(ctx, orderID); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// AssignRider engancha el rider solo si el pedido sigue sin rider.
// Así la carrera entre dos riders la gana exactamente uno.
func (r *MongoOrderRepository) AssignRider(ctx context.Context, orderID string, rider model.RiderSnapshot) error {
	filter := bson.M{
		"order_id":       orderID,
		"rider.rider_id": bson.M{"$exists": false},
	}
	update := bson.M{
		"$set": bson.M{
			"rider":      rider,
			"updated_at": time.Now().UTC(),
		},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := r.FindByID(ctx, orderID); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (r *MongoOrderRepository) ClearRider(ctx context.Context, orderID string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"order_id": orderID},
		bson.M{
			"$unset": bson.M{"rider": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPayment registra la captura una única vez: condicionado a que el pedido
// aún no tenga pago.
func (r *MongoOrderRepository) SetPayment(ctx context.Context, orderID string, payment model.Payment) error {
	filter := bson.M{
		"order_id":     orderID,
		"payment.card": bson.M{"$exists": false},
	}
	update := bson.M{
		"$set": bson.M{
			"payment":    payment,
			"is_paid":    true,
			"updated_at": time.Now().UTC(),
		},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := r.FindByID(ctx, orderID); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (r *MongoOrderRepository) SetProcess(ctx context.Context, orderID string, process bool) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"order_id": orderID},
		bson.M{"$set": bson.M{"is_process": process, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrderRepository) SetFinishedUser(ctx context.Context, orderID string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"order_id": orderID},
		bson.M{"$set": bson.M{"is_finished_user": true, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrderRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Order, error) {
	return r.findAll(ctx, bson.M{"user.user_id": userID})
}

func (r *MongoOrderRepository) FindByProviderID(ctx context.Context, providerID string) ([]*model.Order, error) {
	return r.findAll(ctx, bson.M{"provider.provider_id": providerID})
}

func (r *MongoOrderRepository) FindByRiderID(ctx context.Context, riderID string) ([]*model.Order, error) {
	return r.findAll(ctx, bson.M{"rider.rider_id": riderID})
}

// FindUnassigned: pedidos listos para enviar sin rider asignado.
// TODO: índice sobre last_status + rider cuando crezca la colección.
func (r *MongoOrderRepository) FindUnassigned(ctx context.Context) ([]*model.Order, error) {
	return r.findAll(ctx, bson.M{
		"rider.rider_id": bson.M{"$exists": false},
		"last_status":    model.StatusReadyToShip,
	})
}

// FindOverdueDelivered: entregados sin confirmación del usuario cuya última
// actualización quedó atrás del corte. Los recoge el barrido de recuperación.
func (r *MongoOrderRepository) FindOverdueDelivered(ctx context.Context, cutoff time.Time) ([]*model.Order, error) {
	return r.findAll(ctx, bson.M{
		"last_status":      model.StatusDelivered,
		"is_finished_user": false,
		"updated_at":       bson.M{"$lt": cutoff},
	})
}

func (r *MongoOrderRepository) findAll(ctx context.Context, filter bson.M) ([]*model.Order, error) {
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.Order
	for cur.Next(ctx) {
		var v model.Order
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}
