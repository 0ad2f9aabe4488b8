package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrec/internal/cache"
	"github.com/temcen/reelrec/internal/config"
	"github.com/temcen/reelrec/internal/messaging"
	"github.com/temcen/reelrec/internal/upstream"
	"github.com/temcen/reelrec/pkg/models"
)

var (
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrMovieNotFound       = errors.New("movie not found")
	ErrPersistence         = errors.New("recommendation storage failed")
)

// RatingFetcher reads a user's rating history.
type RatingFetcher interface {
	GetUserRatings(ctx context.Context, userID int) ([]models.Rating, error)
}

// MovieFetcher reads movies from the movie service.
type MovieFetcher interface {
	GetPopularMovies(ctx context.Context) ([]models.Movie, error)
	GetMovie(ctx context.Context, movieID int) (*models.Movie, error)
}

// RecommendationStore is the append-only recommendation table.
type RecommendationStore interface {
	Insert(ctx context.Context, entry models.RecommendationEntry) (*models.StoredRecommendation, error)
	InsertBatch(ctx context.Context, entries []models.RecommendationEntry) error
	ListByUser(ctx context.Context, userID, limit int) ([]models.StoredRecommendation, error)
}

// EventPublisher announces generated and created recommendations.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, userID int, entries []models.RecommendationEntry) error
}

// RecommendationService runs the per-request workflow:
// cache check, upstream fetch, compute, write back, respond.
// Upstream calls within one request are sequential and never retried.
type RecommendationService struct {
	ratings   RatingFetcher
	movies    MovieFetcher
	cache     cache.Store
	store     RecommendationStore
	events    EventPublisher
	extractor *PreferenceExtractor
	scorer    *Scorer
	ttl       config.CachingConfig
	logger    *logrus.Logger
	now       func() time.Time
}

func NewRecommendationService(
	ratings RatingFetcher,
	movies MovieFetcher,
	store cache.Store,
	repo RecommendationStore,
	events EventPublisher,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
) *RecommendationService {
	return &RecommendationService{
		ratings:   ratings,
		movies:    movies,
		cache:     store,
		store:     repo,
		events:    events,
		extractor: NewPreferenceExtractor(cfg.RatingScale),
		scorer:    NewScorer(cfg),
		ttl:       cfg.Caching,
		logger:    logger,
		now:       time.Now,
	}
}

// TopRecommendations returns personalised recommendations for userID. A
// freshly computed list is cached and appended to storage; a cached list is
// returned as-is.
func (s *RecommendationService) TopRecommendations(ctx context.Context, userID, limit int) (entries []models.RecommendationEntry, err error) {
	defer s.observe(cache.KindTop, time.Now(), &err)

	key := cache.TopKey(userID, limit)
	if cached, ok := s.readCache(ctx, cache.KindTop, key); ok {
		return cached, nil
	}

	ratings, err := s.ratings.GetUserRatings(ctx, userID)
	if err != nil {
		s.logFailure(err, "top", "user_id", userID).Error("Failed to get user ratings")
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	candidates, err := s.movies.GetPopularMovies(ctx)
	if err != nil {
		s.logFailure(err, "top", "user_id", userID).Error("Failed to get popular movies")
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	profile := s.extractor.Extract(ratings, candidates)
	entries = s.scorer.GenerateRecommendations(userID, profile, candidates, limit)

	s.writeCache(ctx, cache.KindTop, key, entries, s.ttl.TopTTL)

	if err := s.store.InsertBatch(ctx, entries); err != nil {
		s.logFailure(err, "top", "user_id", userID).Error("Failed to store recommendations")
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.publish(ctx, messaging.EventRecommendationsGenerated, userID, entries)

	s.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"ratings":      len(ratings),
		"candidates":   len(candidates),
		"genres":       len(profile.GenreWeights),
		"recommended":  len(entries),
		"limit":        limit,
		"personalized": !profile.IsEmpty(),
	}).Info("Generated recommendations")

	return entries, nil
}

// SimilarMovies ranks popular movies by their overlap with movieID.
func (s *RecommendationService) SimilarMovies(ctx context.Context, movieID, limit int) (entries []models.RecommendationEntry, err error) {
	defer s.observe(cache.KindSimilar, time.Now(), &err)

	key := cache.SimilarKey(movieID, limit)
	if cached, ok := s.readCache(ctx, cache.KindSimilar, key); ok {
		return cached, nil
	}

	movie, err := s.movies.GetMovie(ctx, movieID)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrMovieNotFound, movieID)
		}
		s.logFailure(err, "similar", "movie_id", movieID).Error("Failed to get movie details")
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	candidates, err := s.movies.GetPopularMovies(ctx)
	if err != nil {
		s.logFailure(err, "similar", "movie_id", movieID).Error("Failed to get popular movies")
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	entries = s.scorer.SimilarMovies(*movie, candidates, limit)
	s.writeCache(ctx, cache.KindSimilar, key, entries, s.ttl.SimilarTTL)

	return entries, nil
}

// PopularMovies lists the movie service's popular movies by popularity.
func (s *RecommendationService) PopularMovies(ctx context.Context, limit int) (entries []models.RecommendationEntry, err error) {
	defer s.observe(cache.KindPopular, time.Now(), &err)

	key := cache.PopularKey(limit)
	if cached, ok := s.readCache(ctx, cache.KindPopular, key); ok {
		return cached, nil
	}

	candidates, err := s.movies.GetPopularMovies(ctx)
	if err != nil {
		s.logFailure(err, "popular", "limit", limit).Error("Failed to get popular movies")
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	entries = s.scorer.RankPopular(candidates, limit)
	s.writeCache(ctx, cache.KindPopular, key, entries, s.ttl.PopularTTL)

	return entries, nil
}

// UserRecommendations reads stored rows only; no cache, no upstream calls.
func (s *RecommendationService) UserRecommendations(ctx context.Context, userID, limit int) ([]models.StoredRecommendation, error) {
	recs, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		s.logFailure(err, "user", "user_id", userID).Error("Failed to list stored recommendations")
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return recs, nil
}

// CreateRecommendation stores a caller supplied entry and drops the user's
// cached top lists. Invalidation and event failures are only logged.
func (s *RecommendationService) CreateRecommendation(ctx context.Context, req *models.CreateRecommendationRequest) (*models.StoredRecommendation, error) {
	entry := req.Entry(s.now().UTC())

	stored, err := s.store.Insert(ctx, entry)
	if err != nil {
		s.logFailure(err, "create", "user_id", entry.UserID).Error("Failed to create recommendation")
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if deleted, err := s.cache.DeletePrefix(ctx, cache.TopPrefix(entry.UserID)); err != nil {
		s.logger.WithError(err).WithField("user_id", entry.UserID).Warn("Failed to invalidate cached recommendations")
	} else if deleted > 0 {
		s.logger.WithFields(logrus.Fields{
			"user_id": entry.UserID,
			"keys":    deleted,
		}).Debug("Invalidated cached recommendations")
	}

	s.publish(ctx, messaging.EventRecommendationCreated, entry.UserID, []models.RecommendationEntry{{
		UserID:    stored.UserID,
		MovieID:   stored.MovieID,
		Score:     stored.Score,
		Reason:    stored.Reason,
		CreatedAt: stored.CreatedAt,
	}})

	return stored, nil
}

// readCache reports a hit only for a readable, decodable entry. Backend
// errors and corrupt values count as misses.
func (s *RecommendationService) readCache(ctx context.Context, kind cache.Kind, key string) ([]models.RecommendationEntry, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			cacheLookups.WithLabelValues(string(kind), "miss").Inc()
		} else {
			cacheLookups.WithLabelValues(string(kind), "error").Inc()
			s.logger.WithError(err).WithField("key", key).Warn("Cache read failed, recomputing")
		}
		return nil, false
	}

	var entries []models.RecommendationEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		cacheLookups.WithLabelValues(string(kind), "error").Inc()
		s.logger.WithError(err).WithField("key", key).Warn("Discarding undecodable cache entry")
		return nil, false
	}
	if entries == nil {
		entries = []models.RecommendationEntry{}
	}

	cacheLookups.WithLabelValues(string(kind), "hit").Inc()
	s.logger.WithField("key", key).Debug("Returning cached recommendations")
	return entries, true
}

func (s *RecommendationService) writeCache(ctx context.Context, kind cache.Kind, key string, entries []models.RecommendationEntry, ttl time.Duration) {
	data, err := json.Marshal(entries)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to encode recommendations for cache")
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"key":  key,
			"kind": kind,
		}).Warn("Failed to cache recommendations")
	}
}

func (s *RecommendationService) publish(ctx context.Context, eventType string, userID int, entries []models.RecommendationEntry) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, userID, entries); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":   eventType,
			"user_id": userID,
		}).Warn("Failed to publish recommendation event")
	}
}

func (s *RecommendationService) observe(kind cache.Kind, start time.Time, err *error) {
	generationDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	outcome := "success"
	if *err != nil {
		outcome = "error"
	}
	recommendationRequests.WithLabelValues(string(kind), outcome).Inc()
}

func (s *RecommendationService) logFailure(err error, endpoint, subjectField string, subject int) *logrus.Entry {
	return s.logger.WithError(err).WithFields(logrus.Fields{
		"endpoint":   endpoint,
		subjectField: subject,
	})
}
