package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/internal/config"
	"github.com/sonderhq/sonder/internal/database"
)

type HealthService struct {
	config *config.Config
	logger *logrus.Logger
	db     *database.Database
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Critical  []string          `json:"critical_failures,omitempty"`
}

func NewHealthService(cfg *config.Config, logger *logrus.Logger, db *database.Database) *HealthService {
	return &HealthService{config: cfg, logger: logger, db: db}
}

// Check pings every backend. PostgreSQL and warm Redis are critical; Neo4j is
// degraded-only because similarity falls back to the in-memory scan.
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	critical := map[string]bool{
		"postgresql": true,
		"redis_warm": true,
	}

	for name, err := range s.db.HealthCheck(ctx) {
		if err != nil {
			status.Services[name] = "unhealthy"
			if critical[name] {
				status.Critical = append(status.Critical, name)
				status.Status = "unhealthy"
			} else if status.Status == "healthy" {
				status.Status = "degraded"
			}
			s.logger.WithError(err).WithField("service", name).Warn("Health check failed")
		} else {
			status.Services[name] = "healthy"
		}
	}

	return status
}

// Ready reports whether the service can serve traffic.
func (s *HealthService) Ready(ctx context.Context) bool {
	return len(s.Check(ctx).Critical) == 0
}
