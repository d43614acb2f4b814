package controller

import (
	"net/http"

	"pharma-order-service/internal/dto"
	"pharma-order-service/internal/middleware"
	"pharma-order-service/internal/service"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	Service *service.OrderService
}

func NewOrderController(s *service.OrderService) *OrderController {
	return &OrderController{Service: s}
}

// POST /orders — crea el pedido desde el carrito (la vía Rabbit es la primaria)
func (ctl *OrderController) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := ctl.Service.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// POST /provider/orders/:orderId/validate
func (ctl *OrderController) ValidateOrder(c *gin.Context) {
	var req dto.ValidateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := ctl.Service.ValidateOrder(c.Request.Context(),
		middleware.ActorFromContext(c), c.Param("orderId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// POST /provider/orders/:orderId/preparate
func (ctl *OrderController) PreparateOrder(c *gin.Context) {
	order, err := ctl.Service.PreparateOrder(c.Request.Context(),
		middleware.ActorFromContext(c), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// POST /rider/orders/:orderId/assign
func (ctl *OrderController) AssignOrder(c *gin.Context) {
	order, err := ctl.Service.AssignOrder(c.Request.Context(),
		middleware.ActorFromContext(c), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// POST /rider/orders/:orderId/unassign — también lo usa el admin
func (ctl *OrderController) UnassignOrder(c *gin.Context) {
	order, err := ctl.Service.UnassignOrder(c.Request.Context(),
		middleware.ActorFromContext(c), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// POST /rider/orders/:orderId/collect
func (ctl *OrderController) CollectOrder(c *gin.Context) {
	order, err := ctl.Service.CollectOrder(c.Request.Context(),
		middleware.ActorFromContext(c), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// POST /rider/orders/:orderId/delivery
func (ctl *OrderController) DeliveryOrder(c *gin.Context) {
	order, err := ctl.Service.DeliveryOrder(c.Request.Context(),
		middleware.ActorFromContext(c), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// POST /user/orders/:orderId/pay
func (ctl *OrderController) PayOrder(c *gin.Context) {
	order, err := ctl.Service.Pay(c.Request.Context(),
		middleware.ActorFromContext(c), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// POST /user/orders/:orderId/finish
func (ctl *OrderController) FinishOrder(c *gin.Context) {
	order, err := ctl.Service.FinishOrder(c.Request.Context(),
		middleware.ActorFromContext(c), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// POST /admin/orders/:orderId/cancel
func (ctl *OrderController) CancelOrder(c *gin.Context) {
	order, err := ctl.Service.CancelOrder(c.Request.Context(),
		middleware.ActorFromContext(c), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// POST /admin/orders/:orderId/process
func (ctl *OrderController) ProcessOrder(c *gin.Context) {
	var req dto.ProcessOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := ctl.Service.ProcessOrder(c.Request.Context(), c.Param("orderId"), req.Process)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// GET /{user,provider,rider}/orders/:orderId — detalle con control de acceso
func (ctl *OrderController) GetOrder(c *gin.Context) {
	order, err := ctl.Service.GetOrder(c.Request.Context(),
		middleware.ActorFromContext(c), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// GET /{user,provider,rider}/orders — los pedidos del actor autenticado
func (ctl *OrderController) GetOrders(c *gin.Context) {
	orders, err := ctl.Service.GetOrdersForActor(c.Request.Context(), middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

// GET /rider/orders/unassigned
func (ctl *OrderController) GetUnassignedOrders(c *gin.Context) {
	orders, err := ctl.Service.GetUnassignedOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}
