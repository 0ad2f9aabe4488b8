package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrec/internal/services"
	"github.com/temcen/reelrec/pkg/models"
)

const (
	defaultListLimit    = 5
	defaultHistoryLimit = 10
	maxLimit            = 100
)

// RecommendationService is what the recommendation endpoints call into.
type RecommendationService interface {
	TopRecommendations(ctx context.Context, userID, limit int) ([]models.RecommendationEntry, error)
	SimilarMovies(ctx context.Context, movieID, limit int) ([]models.RecommendationEntry, error)
	PopularMovies(ctx context.Context, limit int) ([]models.RecommendationEntry, error)
	UserRecommendations(ctx context.Context, userID, limit int) ([]models.StoredRecommendation, error)
	CreateRecommendation(ctx context.Context, req *models.CreateRecommendationRequest) (*models.StoredRecommendation, error)
}

type RecommendationHandler struct {
	service   RecommendationService
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewRecommendationHandler(service RecommendationService, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// GetTop handles GET /api/recommendations/top?userId=&limit=
func (h *RecommendationHandler) GetTop(c *gin.Context) {
	userID, err := requiredInt(c.Query("userId"), "userId", 1)
	if err != nil {
		validationError(c, "INVALID_USER_ID", err)
		return
	}
	limit, err := limitParam(c, defaultListLimit)
	if err != nil {
		validationError(c, "INVALID_LIMIT", err)
		return
	}

	entries, err := h.service.TopRecommendations(c.Request.Context(), userID, limit)
	if err != nil {
		h.serviceError(c, err, "RECOMMENDATION_GENERATION_FAILED", "Failed to generate recommendations")
		return
	}

	c.JSON(http.StatusOK, entries)
}

// GetSimilar handles GET /api/recommendations/similar/:movie_id
func (h *RecommendationHandler) GetSimilar(c *gin.Context) {
	movieID, err := requiredInt(c.Param("movie_id"), "movie_id", 0)
	if err != nil {
		validationError(c, "INVALID_MOVIE_ID", err)
		return
	}
	limit, err := limitParam(c, defaultListLimit)
	if err != nil {
		validationError(c, "INVALID_LIMIT", err)
		return
	}

	entries, err := h.service.SimilarMovies(c.Request.Context(), movieID, limit)
	if err != nil {
		h.serviceError(c, err, "SIMILAR_MOVIES_FAILED", "Failed to get similar movies")
		return
	}

	c.JSON(http.StatusOK, entries)
}

// GetPopular handles GET /api/recommendations/popular
func (h *RecommendationHandler) GetPopular(c *gin.Context) {
	limit, err := limitParam(c, defaultListLimit)
	if err != nil {
		validationError(c, "INVALID_LIMIT", err)
		return
	}

	entries, err := h.service.PopularMovies(c.Request.Context(), limit)
	if err != nil {
		h.serviceError(c, err, "POPULAR_MOVIES_FAILED", "Failed to get popular movies")
		return
	}

	c.JSON(http.StatusOK, entries)
}

// GetUserHistory handles GET /api/recommendations/user/:user_id
func (h *RecommendationHandler) GetUserHistory(c *gin.Context) {
	userID, err := requiredInt(c.Param("user_id"), "user_id", 0)
	if err != nil {
		validationError(c, "INVALID_USER_ID", err)
		return
	}
	limit, err := limitParam(c, defaultHistoryLimit)
	if err != nil {
		validationError(c, "INVALID_LIMIT", err)
		return
	}

	recs, err := h.service.UserRecommendations(c.Request.Context(), userID, limit)
	if err != nil {
		h.serviceError(c, err, "USER_RECOMMENDATIONS_FAILED", "Failed to get user recommendations")
		return
	}

	c.JSON(http.StatusOK, recs)
}

// Create handles POST /api/recommendations
func (h *RecommendationHandler) Create(c *gin.Context) {
	var request models.CreateRecommendationRequest

	if err := c.ShouldBindJSON(&request); err != nil {
		h.logger.WithError(err).Warn("Invalid JSON in recommendation request")
		validationError(c, "INVALID_JSON", errors.New("invalid JSON format"))
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		h.logger.WithError(err).Warn("Recommendation validation failed")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": "Recommendation validation failed",
				"details": err.Error(),
			},
		})
		return
	}

	stored, err := h.service.CreateRecommendation(c.Request.Context(), &request)
	if err != nil {
		h.serviceError(c, err, "RECOMMENDATION_CREATION_FAILED", "Failed to create recommendation")
		return
	}

	c.JSON(http.StatusOK, stored)
}

// serviceError maps service failures to a status. Only the missing movie
// case gets a specific message; everything else is a generic failure.
func (h *RecommendationHandler) serviceError(c *gin.Context, err error, code, message string) {
	if errors.Is(err, services.ErrMovieNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":    "MOVIE_NOT_FOUND",
				"message": "Movie not found",
			},
		})
		return
	}

	h.logger.WithError(err).WithField("path", c.FullPath()).Error(message)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func validationError(c *gin.Context, code string, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error": gin.H{
			"code":    code,
			"message": err.Error(),
		},
	})
}

func requiredInt(raw, name string, floor int) (int, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if value < floor {
		return 0, fmt.Errorf("%s must be at least %d", name, floor)
	}
	return value, nil
}

func limitParam(c *gin.Context, fallback int) (int, error) {
	raw, ok := c.GetQuery("limit")
	if !ok {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, fmt.Errorf("limit must be an integer between 1 and %d", maxLimit)
	}
	return limit, nil
}
