package config

import (
	"consent-service/internal/pkg/utils"

	"github.com/joho/godotenv"
)

func init() {
	godotenv.Load()
}

func NewDriverConfig() *DriverConfig {
	return &DriverConfig{
		Redis: Redis{
			Enabled:  utils.GetEnvBool("REDIS_ENABLED", false),
			Host:     utils.GetEnvString("REDIS_HOST", "localhost"),
			Port:     utils.GetEnvString("REDIS_PORT", "6379"),
			Password: utils.GetEnvString("REDIS_PASSWORD", ""),
		},
		Logger: Logger{
			Level:               utils.GetEnvString("LOGGER_LEVEL", "debug"),
			OutputFileName:      utils.GetEnvString("LOGGER_OUTPUT_FILENAME", "logger.log"),
			OutputErrorFileName: utils.GetEnvString("LOGGER_OUTPUT_ERROR_FILENAME", "logger_error.log"),
		},
	}
}

func NewInternalConfig() *InternalConfig {
	return &InternalConfig{
		App: App{
			Env:             utils.GetEnvString("APP_ENV", "development"),
			Port:            utils.GetEnvString("APP_PORT", ":8080"),
			Version:         utils.GetEnvString("APP_VERSION", "v1"),
			EndpointPrefix:  utils.GetEnvString("APP_ENDPOINT_PREFIX", "api"),
			MaxRequests:     utils.GetEnvInt("APP_MAX_REQUESTS", 10),
			ShutdownTimeout: utils.GetEnvInt("APP_SHUTDOWN_TIMEOUT", 10),
		},
		Satusehat: Satusehat{
			AuthUrl:              utils.GetEnvString("SATUSEHAT_AUTH_URL", "https://api-satusehat-stg.dto.kemkes.go.id/oauth2/v1"),
			BaseUrl:              utils.GetEnvString("SATUSEHAT_BASE_URL", "https://api-satusehat-stg.dto.kemkes.go.id/consent/v1"),
			ClientID:             utils.GetEnvString("SATUSEHAT_CLIENT_ID", ""),
			ClientSecret:         utils.GetEnvString("SATUSEHAT_CLIENT_SECRET", ""),
			HTTPTimeoutInSeconds: utils.GetEnvInt("SATUSEHAT_HTTP_TIMEOUT_IN_SECONDS", 30),
		},
		JWT: JWT{
			Secret: utils.GetEnvString("JWT_SECRET", ""),
		},
	}
}
