package controller

import (
	"context"
	"net/http"

	"pharma-order-service/internal/dto"
	"pharma-order-service/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DeviceRegistry interface {
	Register(ctx context.Context, d *model.Device) error
	Delete(ctx context.Context, deviceID string) error
}

type DeviceController struct {
	Devices DeviceRegistry
}

func NewDeviceController(devices DeviceRegistry) *DeviceController {
	return &DeviceController{Devices: devices}
}

// POST /devices — alta del endpoint push de un dispositivo
func (ctl *DeviceController) RegisterDevice(c *gin.Context) {
	var req dto.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device := &model.Device{
		DeviceID: uuid.NewString(),
		AppID:    req.AppID,
		UserID:   req.UserID,
		Platform: req.Platform,
		Endpoint: req.Endpoint,
	}

	if err := ctl.Devices.Register(c.Request.Context(), device); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, device)
}

// DELETE /devices/:deviceId
func (ctl *DeviceController) DeleteDevice(c *gin.Context) {
	if err := ctl.Devices.Delete(c.Request.Context(), c.Param("deviceId")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "ok"})
}
