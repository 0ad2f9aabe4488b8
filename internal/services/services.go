package services

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/temcen/reelrec/internal/cache"
	"github.com/temcen/reelrec/internal/config"
	"github.com/temcen/reelrec/internal/database"
	"github.com/temcen/reelrec/internal/messaging"
	"github.com/temcen/reelrec/internal/repository"
	"github.com/temcen/reelrec/internal/upstream"
	"github.com/temcen/reelrec/internal/validation"
)

type Services struct {
	Auth           *AuthService
	Health         *HealthService
	RateLimiter    *RateLimiter
	Events         *messaging.Publisher
	Recommendation *RecommendationService
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	schemas, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to load upstream schemas: %w", err)
	}

	// Trace context is forwarded to the rating and movie services.
	httpClient := &http.Client{
		Timeout:   cfg.Upstream.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	ratingClient := upstream.NewRatingClient(cfg.Upstream.RatingServiceURL, httpClient, schemas, logger)
	movieClient := upstream.NewMovieClient(cfg.Upstream.MovieServiceURL, httpClient, schemas, logger)

	store := cache.NewRedisStore(db.Redis)
	repo := repository.NewRecommendationRepository(db.PG, logger)
	publisher := messaging.NewPublisher(&cfg.Kafka, logger)

	recommendationService := NewRecommendationService(
		ratingClient, movieClient, store, repo, publisher, &cfg.Recommendation, logger,
	)

	healthService := NewHealthService(cfg.Server.ServiceName, logger).
		AddDependency("redis", store).
		AddDependency("postgres", repo)

	return &Services{
		Auth:           NewAuthService(cfg.Auth.JWTSecret, logger),
		Health:         healthService,
		RateLimiter:    NewRateLimiter(db.Redis),
		Events:         publisher,
		Recommendation: recommendationService,
	}, nil
}

// Close flushes pending events.
func (s *Services) Close() error {
	if s.Events == nil {
		return nil
	}
	return s.Events.Close()
}
