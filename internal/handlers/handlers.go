package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrec/internal/services"
)

type Handlers struct {
	Health         *HealthHandler
	Recommendation *RecommendationHandler
	Metrics        *MetricsHandler
}

func New(logger *logrus.Logger, services *services.Services) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger, services.Health),
		Recommendation: NewRecommendationHandler(services.Recommendation, logger),
		Metrics:        NewMetricsHandler(logger),
	}
}
