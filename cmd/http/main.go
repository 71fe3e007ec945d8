package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consent-service/internal/app/config"
	"consent-service/internal/app/contracts"
	"consent-service/internal/app/delivery/http/controllers"
	"consent-service/internal/app/delivery/http/middlewares"
	"consent-service/internal/app/delivery/http/routers"
	"consent-service/internal/app/drivers/database"
	"consent-service/internal/app/drivers/logger"
	"consent-service/internal/app/services/fhir_satusehat/consents"
	"consent-service/internal/app/services/shared/metrics"
	redisRepository "consent-service/internal/app/services/shared/redis"
	"consent-service/internal/app/services/shared/satusehat"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	driverConfig := config.NewDriverConfig()
	internalConfig := config.NewInternalConfig()

	log := logger.NewZapLogger(driverConfig, internalConfig)
	if internalConfig.JWT.Secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	bootstrap := &config.Bootstrap{
		Router:         chi.NewRouter(),
		Redis:          database.NewRedisClient(driverConfig, log),
		Logger:         log,
		Registry:       registry,
		InternalConfig: internalConfig,
		DriverConfig:   driverConfig,
	}
	bootstrapingTheApp(bootstrap)

	server := &http.Server{
		Addr:    internalConfig.App.Port,
		Handler: bootstrap.Router,
	}

	go func() {
		log.Info("Server started", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c

	log.Info("Waiting for pending requests that already received by server to be processed..")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Second*time.Duration(internalConfig.App.ShutdownTimeout),
	)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	err = bootstrap.Shutdown(shutdownCtx)
	if err != nil {
		log.Error("Error while releasing resources", zap.Error(err))
	}

	log.Info("Server exiting")
}

// bootstrapingTheApp wires every component onto bootstrap and returns the consent
// controller mounted on bootstrap.Router.
func bootstrapingTheApp(bootstrap *config.Bootstrap) *controllers.ConsentController {
	consentMetrics := metrics.New(bootstrap.Registry)

	httpClient := &http.Client{
		Timeout: time.Duration(bootstrap.InternalConfig.Satusehat.HTTPTimeoutInSeconds) * time.Second,
	}

	// Token cache
	var tokenCache contracts.RedisRepository
	if bootstrap.Redis != nil {
		tokenCache = redisRepository.NewRedisRepository(bootstrap.Redis)
	}

	// Auth Provider
	authProvider := satusehat.NewAuthService(
		satusehat.AuthServiceConfig{
			AuthUrl:      bootstrap.InternalConfig.Satusehat.AuthUrl,
			ClientID:     bootstrap.InternalConfig.Satusehat.ClientID,
			ClientSecret: bootstrap.InternalConfig.Satusehat.ClientSecret,
		},
		httpClient,
		tokenCache,
		consentMetrics,
		bootstrap.Logger,
	)

	// Consent, the one shared instance for the whole process
	bootstrap.ConsentFhirClient = consents.NewConsentFhirClient(
		bootstrap.InternalConfig.Satusehat.BaseUrl,
		authProvider,
		httpClient,
		consentMetrics,
		bootstrap.Logger,
	)
	consentController := controllers.NewConsentController(bootstrap.Logger, bootstrap.ConsentFhirClient)

	// Middlewares
	middlewares := middlewares.NewMiddlewares(bootstrap.Logger, bootstrap.InternalConfig)

	routers.SetupRoutes(bootstrap.Router, bootstrap.InternalConfig, middlewares, bootstrap.Registry, consentController)
	return consentController
}
