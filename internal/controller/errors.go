package controller

import (
	"errors"
	"net/http"

	"pharma-order-service/internal/repository"
	"pharma-order-service/internal/service"

	"github.com/gin-gonic/gin"
)

// respondError traduce los errores de negocio a códigos HTTP.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrAlertExists),
		errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPreconditionFailed),
		errors.Is(err, service.ErrUnpaidOrder),
		errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrNoCard),
		errors.Is(err, service.ErrNoPayoutAccount),
		errors.Is(err, service.ErrChargeFailed):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrBadItems):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
