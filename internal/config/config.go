// config.go
package config

import (
	"os"
	"time"
)

type Config struct {
	MongoURI    string
	MongoDBName string
	RabbitURL   string
	AuthURL     string
	PaymentURL  string
	Port        string

	// Timeout para auto-finalizar pedidos entregados sin confirmación del usuario
	FinishTimeout time.Duration
	// Duración real de un "día" de las alarmas (se acorta en tests/staging)
	AlertDay time.Duration
	// Cadencia del barrido de recuperación
	SweepInterval time.Duration
}

func Load() *Config {
	return &Config{
		MongoURI:      getEnv("MONGO_URI", "mongodb://host.docker.internal:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "pharma_orders_db"),
		RabbitURL:     getEnv("RABBIT_URL", "amqp://host.docker.internal"),
		AuthURL:       getEnv("AUTH_URL", "http://host.docker.internal:3000"),
		PaymentURL:    getEnv("PAYMENT_URL", "http://host.docker.internal:3005"),
		Port:          getEnv("PORT", "8080"),
		FinishTimeout: getEnvDuration("FINISH_TIMEOUT", 24*time.Hour),
		AlertDay:      getEnvDuration("ALERT_DAY", 24*time.Hour),
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", 10*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
