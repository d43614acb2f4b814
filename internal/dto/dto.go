// dto.go
package dto

// CreateOrderRequest lo usan la API y el consumer de Rabbit para crear un
// pedido desde un carrito ya cerrado.
type CreateOrderRequest struct {
	User     UserDTO       `json:"user" binding:"required"`
	Delivery DeliveryDTO   `json:"delivery" binding:"required"`
	Items    []CartItemDTO `json:"items" binding:"required"`
}

type UserDTO struct {
	UserID      string `json:"userId" binding:"required"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	Address2    string `json:"address2"`
}

type DeliveryDTO struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Address2    string `json:"address2"`
	PhoneNumber string `json:"phoneNumber"`
	DesiredTime string `json:"desiredTime"`
	ProviderID  string `json:"providerId" binding:"required"`
}

type CartItemDTO struct {
	ReferenceID          string          `json:"referenceId" binding:"required"`
	ProductID            string          `json:"productId"`
	Name                 string          `json:"name"`
	Qty                  int             `json:"qty"`
	PVP                  float64         `json:"pvp"`
	PrescriptionRequired bool            `json:"prescriptionRequired"`
	Prescription         PrescriptionDTO `json:"prescription"`
}

type PrescriptionDTO struct {
	PrescriptionID string `json:"prescriptionId"`
	Status         string `json:"status"`
	Observation    string `json:"observation"`
}

// ValidateOrderRequest: revisión del proveedor línea a línea
type ValidateOrderRequest struct {
	Accepted *bool              `json:"accepted" binding:"required"`
	Items    []ValidatedItemDTO `json:"items"`
}

type ValidatedItemDTO struct {
	ReferenceID        string  `json:"referenceId" binding:"required"`
	PVP                float64 `json:"pvp"`
	Comments           string  `json:"comments"`
	PrescriptionStatus string  `json:"prescriptionStatus"`
}

type ProcessOrderRequest struct {
	Process bool `json:"process"`
}

type CreateAlertRequest struct {
	OrderID         string `json:"orderId" binding:"required"`
	ReferenceID     string `json:"referenceId" binding:"required"`
	ProductID       string `json:"productId"`
	Title           string `json:"title"`
	Message         string `json:"message"`
	Periodicity     int    `json:"periodicity"`
	WarningEndAlert int    `json:"warningEndAlert"`
	AlertHour       string `json:"alertHour"`
	AlertRepeat     bool   `json:"alertRepeat"`
}

type UpdateAlertRequest struct {
	Title           string `json:"title"`
	Message         string `json:"message"`
	Periodicity     int    `json:"periodicity"`
	WarningEndAlert int    `json:"warningEndAlert"`
	AlertHour       string `json:"alertHour"`
	AlertRepeat     bool   `json:"alertRepeat"`
}

type RegisterDeviceRequest struct {
	AppID    string `json:"appId" binding:"required"`
	UserID   string `json:"userId" binding:"required"`
	Platform string `json:"platform" binding:"required"`
	Endpoint string `json:"endpoint" binding:"required"`
}
