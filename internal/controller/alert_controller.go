package controller

import (
	"net/http"

	"pharma-order-service/internal/dto"
	"pharma-order-service/internal/service"

	"github.com/gin-gonic/gin"
)

type AlertController struct {
	Service *service.AlertService
}

func NewAlertController(s *service.AlertService) *AlertController {
	return &AlertController{Service: s}
}

// POST /user/alerts
func (ctl *AlertController) CreateAlert(c *gin.Context) {
	var req dto.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert, err := ctl.Service.CreateAlert(c.Request.Context(), c.GetString("actorID"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, alert)
}

// PUT /user/alerts/:alertId
func (ctl *AlertController) UpdateAlert(c *gin.Context) {
	var req dto.UpdateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert, err := ctl.Service.UpdateAlert(c.Request.Context(), c.GetString("actorID"), c.Param("alertId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, alert)
}

// DELETE /user/alerts/:alertId
func (ctl *AlertController) DeleteAlert(c *gin.Context) {
	if err := ctl.Service.DeleteAlert(c.Request.Context(), c.GetString("actorID"), c.Param("alertId")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "ok"})
}

// GET /user/alerts
func (ctl *AlertController) GetAlerts(c *gin.Context) {
	alerts, err := ctl.Service.GetAlerts(c.Request.Context(), c.GetString("actorID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// POST /user/alerts/:alertId/deactivate
func (ctl *AlertController) DeactivateAlert(c *gin.Context) {
	if err := ctl.Service.DeactivateAlert(c.Request.Context(), c.GetString("actorID"), c.Param("alertId")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "ok"})
}
