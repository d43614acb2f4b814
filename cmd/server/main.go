package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pharma-order-service/internal/config"
	"pharma-order-service/internal/controller"
	"pharma-order-service/internal/message"
	"pharma-order-service/internal/middleware"
	"pharma-order-service/internal/rabbit"
	"pharma-order-service/internal/repository"
	"pharma-order-service/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "pharma-order-service").Logger()

	// Conexión a MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("error conectando a MongoDB")
	}
	db := client.Database(cfg.MongoDBName)

	// Conexión a RabbitMQ
	conn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal().Err(err).Msg("error conectando a RabbitMQ")
	}
	ch, err := conn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("error creando canal en RabbitMQ")
	}
	if err := rabbit.SetupPublishers(ch); err != nil {
		log.Fatal().Err(err).Msg("error declarando exchanges")
	}

	// Repositorios
	orderRepo := repository.NewMongoOrderRepository(db)
	alertRepo := repository.NewMongoAlertRepository(db)
	deviceRepo := repository.NewMongoDeviceRepository(db)

	// Colaboradores externos
	authService := service.NewAuthService(cfg.AuthURL)
	paymentService := service.NewPaymentService(cfg.PaymentURL)

	// Fan-out de notificaciones sobre el gateway de push
	dispatcher := message.NewDispatcher(deviceRepo, rabbit.NewPushPublisher(ch), log)
	mailer := rabbit.NewMailPublisher(ch)

	// Servicios de dominio
	alertService := service.NewAlertService(alertRepo, dispatcher, cfg.AlertDay, log)
	orderService := service.NewOrderService(orderRepo, authService, paymentService,
		dispatcher, mailer, alertService, cfg.FinishTimeout, log)

	// Barrido de recuperación: rearma alarmas y cierra entregados fuera de plazo
	sweeper := service.NewSweeper(orderRepo, alertRepo, alertService, orderService,
		cfg.SweepInterval, cfg.FinishTimeout, log)
	if err := sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("error arrancando el barrido")
	}
	defer sweeper.Stop()

	// Handlers
	orderCtrl := controller.NewOrderController(orderService)
	alertCtrl := controller.NewAlertController(alertService)
	deviceCtrl := controller.NewDeviceController(deviceRepo)

	// Router
	r := gin.Default()

	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(authService))

	// La creación vía API es secundaria: el camino primario es el evento
	// cart_checkout por Rabbit
	auth.POST("/orders", middleware.RequireScope(service.ScopeUser), orderCtrl.CreateOrder)

	user := auth.Group("/user")
	user.Use(middleware.RequireScope(service.ScopeUser))
	user.GET("/orders", orderCtrl.GetOrders)
	user.GET("/orders/:orderId", orderCtrl.GetOrder)
	user.POST("/orders/:orderId/pay", orderCtrl.PayOrder)
	user.POST("/orders/:orderId/finish", orderCtrl.FinishOrder)
	user.POST("/alerts", alertCtrl.CreateAlert)
	user.PUT("/alerts/:alertId", alertCtrl.UpdateAlert)
	user.DELETE("/alerts/:alertId", alertCtrl.DeleteAlert)
	user.GET("/alerts", alertCtrl.GetAlerts)
	user.POST("/alerts/:alertId/deactivate", alertCtrl.DeactivateAlert)

	provider := auth.Group("/provider")
	provider.Use(middleware.RequireScope(service.ScopeProvider))
	provider.GET("/orders", orderCtrl.GetOrders)
	provider.GET("/orders/:orderId", orderCtrl.GetOrder)
	provider.POST("/orders/:orderId/validate", orderCtrl.ValidateOrder)
	provider.POST("/orders/:orderId/preparate", orderCtrl.PreparateOrder)

	rider := auth.Group("/rider")
	rider.Use(middleware.RequireScope(service.ScopeRider))
	rider.GET("/orders", orderCtrl.GetOrders)
	rider.GET("/orders/unassigned", orderCtrl.GetUnassignedOrders)
	rider.GET("/orders/:orderId", orderCtrl.GetOrder)
	rider.POST("/orders/:orderId/assign", orderCtrl.AssignOrder)
	rider.POST("/orders/:orderId/unassign", orderCtrl.UnassignOrder)
	rider.POST("/orders/:orderId/collect", orderCtrl.CollectOrder)
	rider.POST("/orders/:orderId/delivery", orderCtrl.DeliveryOrder)

	admin := auth.Group("/admin")
	admin.Use(middleware.RequireScope(service.ScopeAdmin))
	admin.POST("/orders/:orderId/cancel", orderCtrl.CancelOrder)
	admin.POST("/orders/:orderId/process", orderCtrl.ProcessOrder)
	admin.POST("/orders/:orderId/unassign", orderCtrl.UnassignOrder)

	// Registro de dispositivos (lo llaman las apps tras el login)
	auth.POST("/devices", deviceCtrl.RegisterDevice)
	auth.DELETE("/devices/:deviceId", deviceCtrl.DeleteDevice)

	// Consumer de pedidos desde el checkout
	consumer := rabbit.NewCheckoutConsumer(orderService, log)
	if err := rabbit.SetupConsumers(ch, consumer, log); err != nil {
		log.Fatal().Err(err).Msg("error arrancando consumers")
	}

	log.Info().Str("port", cfg.Port).Msg("pharma-order-service escuchando")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
