package upstream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrec/internal/validation"
	"github.com/temcen/reelrec/pkg/models"
)

// RatingClient reads user rating history from the rating service.
type RatingClient struct {
	client *Client
}

func NewRatingClient(baseURL string, httpClient *http.Client, validator *validation.SchemaValidator, logger *logrus.Logger) *RatingClient {
	return &RatingClient{
		client: newClient("rating-service", baseURL, httpClient, validator, logger),
	}
}

type ratingsEnvelope struct {
	Data []models.Rating `json:"data"`
}

// GetUserRatings calls GET /api/ratings/user/{id}.
func (c *RatingClient) GetUserRatings(ctx context.Context, userID int) ([]models.Rating, error) {
	var envelope ratingsEnvelope
	path := fmt.Sprintf("/api/ratings/user/%d", userID)
	if err := c.client.getJSON(ctx, path, validation.RatingsResponseSchema, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}
