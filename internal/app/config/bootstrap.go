package config

import (
	"context"
	"log"

	"consent-service/internal/app/contracts"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bootstrap holds the process wide handles built once in main and handed to
// every consumer by reference.
type Bootstrap struct {
	Router            *chi.Mux
	Redis             *redis.Client
	Logger            *zap.Logger
	Registry          *prometheus.Registry
	ConsentFhirClient contracts.ConsentFhirClient
	InternalConfig    *InternalConfig
	DriverConfig      *DriverConfig
}

func (b *Bootstrap) Shutdown(ctx context.Context) error {
	if b.Redis != nil {
		err := b.Redis.Close()
		if err != nil {
			return err
		}
		log.Println("Successfully closing Redis")
	}

	// Sync on stdout/stderr returns EINVAL on Linux.
	_ = b.Logger.Sync()
	log.Println("Successfully closing Logger")

	return nil
}
