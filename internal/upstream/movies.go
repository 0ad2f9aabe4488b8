package upstream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrec/internal/validation"
	"github.com/temcen/reelrec/pkg/models"
)

// MovieClient reads movie details and the popular catalog from the movie service.
type MovieClient struct {
	client *Client
}

func NewMovieClient(baseURL string, httpClient *http.Client, validator *validation.SchemaValidator, logger *logrus.Logger) *MovieClient {
	return &MovieClient{
		client: newClient("movie-service", baseURL, httpClient, validator, logger),
	}
}

type movieEnvelope struct {
	Data models.Movie `json:"data"`
}

type popularEnvelope struct {
	Data struct {
		Results []models.Movie `json:"results"`
	} `json:"data"`
}

// GetPopularMovies calls GET /api/movies/popular/tmdb.
func (c *MovieClient) GetPopularMovies(ctx context.Context) ([]models.Movie, error) {
	var envelope popularEnvelope
	if err := c.client.getJSON(ctx, "/api/movies/popular/tmdb", validation.PopularMoviesResponseSchema, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data.Results, nil
}

// GetMovie calls GET /api/movies/{id}. A 404 surfaces as ErrNotFound.
func (c *MovieClient) GetMovie(ctx context.Context, movieID int) (*models.Movie, error) {
	var envelope movieEnvelope
	if err := c.client.getJSON(ctx, fmt.Sprintf("/api/movies/%d", movieID), validation.MovieResponseSchema, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}
