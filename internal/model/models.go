// models.go
package model

import "time"

// Estados del pedido. El último elemento de tracking es el que manda;
// LastStatus es solo una copia desnormalizada para poder filtrar.
const (
	StatusPendingApproval = "PENDING_APPROVAL"
	StatusInPreparation   = "IN_PREPARATION"
	StatusReadyToShip     = "READY_TO_SHIP"
	StatusInDistribution  = "IN_DISTRIBUTION"
	StatusDelivered       = "DELIVERED"
	StatusFinished        = "FINISHED"
	StatusCancelled       = "CANCELLED"
)

// Estados de la alarma
const (
	AlertWaiting   = "WAITING"
	AlertActivated = "ACTIVATED"
	AlertDisabled  = "DISABLED"
)

// Apps registradas para notificaciones push
const (
	AppClient = "client"
	AppRider  = "rider"
)

type Order struct {
	OrderID         string           `bson:"order_id" json:"orderId"`
	OrderCode       string           `bson:"order_code" json:"orderCode"`
	OrderDate       time.Time        `bson:"order_date" json:"orderDate"`
	IsPaid          bool             `bson:"is_paid" json:"isPaid"`
	IsProcess       bool             `bson:"is_process" json:"isProcess"`
	IsFinishedUser  bool             `bson:"is_finished_user" json:"isFinishedUser"`
	IsFinishedRider bool             `bson:"is_finished_rider" json:"isFinishedRider"`
	LastStatus      string           `bson:"last_status" json:"lastStatus"`
	Tracking        []TrackingEvent  `bson:"tracking" json:"tracking"`
	User            UserSnapshot     `bson:"user" json:"user"`
	Provider        ProviderSnapshot `bson:"provider" json:"provider"`
	Rider           *RiderSnapshot   `bson:"rider,omitempty" json:"rider,omitempty"`
	Delivery        Delivery         `bson:"delivery" json:"delivery"`
	Payment         *Payment         `bson:"payment,omitempty" json:"payment,omitempty"`
	Products        Products         `bson:"products" json:"products"`
	CreatedAt       time.Time        `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time        `bson:"updated_at" json:"updatedAt"`
}

// CurrentStatus devuelve el estado del último registro del tracking.
func (o *Order) CurrentStatus() string {
	if len(o.Tracking) == 0 {
		return ""
	}
	return o.Tracking[len(o.Tracking)-1].Status
}

func (o *Order) IsTerminal() bool {
	return IsTerminalStatus(o.CurrentStatus())
}

func IsTerminalStatus(s string) bool {
	return s == StatusFinished || s == StatusCancelled
}

type TrackingEvent struct {
	Status   string    `bson:"status" json:"status"`
	DateTime time.Time `bson:"date_time" json:"dateTime"`
}

// Copias de los actores en el momento de la transición. Nunca referencias
// vivas a las cuentas: si la cuenta cambia, el pedido conserva su historia.
type UserSnapshot struct {
	UserID      string `bson:"user_id" json:"userId"`
	Name        string `bson:"name" json:"name"`
	PhoneNumber string `bson:"phone_number" json:"phoneNumber"`
	Address     string `bson:"address" json:"address"`
	Address2    string `bson:"address2" json:"address2"`
}

type ProviderSnapshot struct {
	ProviderID  string `bson:"provider_id" json:"providerId"`
	Name        string `bson:"name" json:"name"`
	PhoneNumber string `bson:"phone_number" json:"phoneNumber"`
	Address     string `bson:"address" json:"address"`
	Address2    string `bson:"address2" json:"address2"`
}

type RiderSnapshot struct {
	RiderID     string `bson:"rider_id" json:"riderId"`
	Name        string `bson:"name" json:"name"`
	PhoneNumber string `bson:"phone_number" json:"phoneNumber"`
}

type Delivery struct {
	Name        string `bson:"name" json:"name"`
	Address     string `bson:"address" json:"address"`
	Address2    string `bson:"address2" json:"address2"`
	PhoneNumber string `bson:"phone_number" json:"phoneNumber"`
	DesiredTime string `bson:"desired_time" json:"desiredTime"`
	ProviderID  string `bson:"provider_id" json:"providerId"`
}

// Payment se rellena una única vez, cuando el cobro tiene éxito.
type Payment struct {
	Card     string    `bson:"card" json:"card"` // enmascarada -> ****4242
	DateTime time.Time `bson:"date_time" json:"dateTime"`
}

type Products struct {
	Qty      int         `bson:"qty" json:"qty"`
	Items    []OrderItem `bson:"items" json:"items"`
	Subtotal float64     `bson:"subtotal" json:"subtotal"`
}

type OrderItem struct {
	ReferenceID          string       `bson:"reference_id" json:"referenceId"`
	ProductID            string       `bson:"product_id" json:"productId"`
	Name                 string       `bson:"name" json:"name"`
	Qty                  int          `bson:"qty" json:"qty"`
	PVP                  float64      `bson:"pvp" json:"pvp"`
	PrescriptionRequired bool         `bson:"prescription_required" json:"prescriptionRequired"`
	Prescription         Prescription `bson:"prescription" json:"prescription"`
	Comments             string       `bson:"comments" json:"comments"`
}

type Prescription struct {
	PrescriptionID string `bson:"prescription_id" json:"prescriptionId"`
	Status         string `bson:"status" json:"status"`
	Observation    string `bson:"observation" json:"observation"`
}

// Alert: recordatorio recurrente ligado a un pedido + producto.
// NextFireAt se persiste para poder rearmar los timers tras un reinicio.
type Alert struct {
	AlertID         string     `bson:"alert_id" json:"alertId"`
	UserID          string     `bson:"user_id" json:"userId"`
	OrderID         string     `bson:"order_id" json:"orderId"`
	ReferenceID     string     `bson:"reference_id" json:"referenceId"`
	ProductID       string     `bson:"product_id" json:"productId"`
	Title           string     `bson:"title" json:"title"`
	Message         string     `bson:"message" json:"message"`
	Periodicity     int        `bson:"periodicity" json:"periodicity"`
	WarningEndAlert int        `bson:"warning_end_alert" json:"warningEndAlert"` // días
	AlertHour       string     `bson:"alert_hour" json:"alertHour"`
	AlertRepeat     bool       `bson:"alert_repeat" json:"alertRepeat"`
	Status          string     `bson:"status" json:"status"`
	NextFireAt      *time.Time `bson:"next_fire_at,omitempty" json:"nextFireAt,omitempty"`
	CreatedAt       time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `bson:"updated_at" json:"updatedAt"`
}

type Device struct {
	DeviceID  string    `bson:"device_id" json:"deviceId"`
	AppID     string    `bson:"app_id" json:"appId"`
	UserID    string    `bson:"user_id" json:"userId"`
	Platform  string    `bson:"platform" json:"platform"` // ios | android
	Endpoint  string    `bson:"endpoint" json:"endpoint"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
