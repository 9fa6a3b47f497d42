package validation

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/larkhq/backend/internal/cache"
	"github.com/larkhq/backend/internal/database"
	"github.com/larkhq/backend/internal/logger"
	"go.uber.org/zap"
)

// ServiceValidator handles validation of optional services
type ServiceValidator struct {
	requiredServices []string
}

// NewServiceValidator creates a new service validator
func NewServiceValidator() *ServiceValidator {
	return &ServiceValidator{
		requiredServices: parseRequiredServices(),
	}
}

// ValidateServices validates all configured services
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.requiredServices) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("Validating required services",
		zap.Strings("services", sv.requiredServices),
	)

	services := sv.getServiceChecks()

	for _, serviceName := range sv.requiredServices {
		serviceChecker, ok := services[serviceName]
		if !ok {
			logger.Log.Warn("Unknown service type in validation",
				zap.String("service", serviceName),
			)
			continue
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := serviceChecker(timeoutCtx)
		cancel()
		if err != nil {
			logger.Log.Error("Required service validation failed",
				zap.String("service", serviceName),
				zap.Error(err),
			)
			return fmt.Errorf("required service '%s' validation failed: %w", serviceName, err)
		}

		logger.Log.Info("Service validated successfully",
			zap.String("service", serviceName),
		)
	}

	return nil
}

// getServiceChecks returns a map of service names to their validation functions
func (sv *ServiceValidator) getServiceChecks() map[string]func(ctx context.Context) error {
	return map[string]func(ctx context.Context) error{
		"database": validateDatabase,
		"redis":    validateRedis,
	}
}

// validateDatabase checks if the database connection is healthy
func validateDatabase(ctx context.Context) error {
	if database.DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return database.Health()
}

// validateRedis checks if Redis is reachable
func validateRedis(ctx context.Context) error {
	redisHost := os.Getenv("REDIS_HOST")
	redisPort := os.Getenv("REDIS_PORT")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	if redisHost == "" {
		redisHost = "localhost"
	}
	if redisPort == "" {
		redisPort = "6379"
	}

	redisClient, err := cache.NewRedisClient(redisHost, redisPort, redisPassword)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redisClient.Close()

	return redisClient.Ping(ctx)
}

// parseRequiredServices parses the LARK_BACKEND_REQUIRE_* environment
// variables and returns the service names that must be reachable at boot
func parseRequiredServices() []string {
	var required []string

	services := []string{"database", "redis"}

	for _, service := range services {
		envVar := fmt.Sprintf("LARK_BACKEND_REQUIRE_%s", strings.ToUpper(service))
		if isTruthy(os.Getenv(envVar)) {
			required = append(required, service)
		}
	}

	return required
}

// isTruthy checks if a string value represents a truthy value
func isTruthy(value string) bool {
	if value == "" {
		return false
	}

	value = strings.ToLower(strings.TrimSpace(value))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}
