package services

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/reelrec/internal/config"
	"github.com/temcen/reelrec/pkg/models"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestScorer() *Scorer {
	s := NewScorer(&config.RecommendationConfig{
		PopularityWeight: 0.3,
		GenreWeight:      0.7,
		ExcludeRated:     true,
	})
	s.now = func() time.Time { return fixedNow }
	return s
}

func newTestExtractor() *PreferenceExtractor {
	e := NewPreferenceExtractor(10)
	e.now = func() time.Time { return fixedNow }
	return e
}

func sampleCatalog() []models.Movie {
	genres := [][]string{
		{"Action"}, {"Drama"}, {"Comedy"}, {"Action", "Thriller"}, {"Drama", "Romance"},
		{"Horror"}, {"Action", "Comedy"}, {"Documentary"}, {"Science Fiction"}, {"Drama", "Crime"},
	}
	movies := make([]models.Movie, 0, 20)
	for i := 0; i < 20; i++ {
		movies = append(movies, models.Movie{
			ID:         100 + i,
			Title:      fmt.Sprintf("Movie %d", i),
			Genres:     genres[i%len(genres)],
			Popularity: float64((i*37)%50) + 0.5,
		})
	}
	return movies
}

func movieIDs(entries []models.RecommendationEntry) []int {
	ids := make([]int, len(entries))
	for i, e := range entries {
		ids[i] = e.MovieID
	}
	return ids
}

func rankOf(entries []models.RecommendationEntry, movieID int) int {
	for i, e := range entries {
		if e.MovieID == movieID {
			return i
		}
	}
	return len(entries)
}

func TestPreferenceExtractor_Extract(t *testing.T) {
	extractor := newTestExtractor()

	t.Run("empty history yields empty profile", func(t *testing.T) {
		profile := extractor.Extract(nil, sampleCatalog())
		assert.True(t, profile.IsEmpty())
		assert.Empty(t, profile.GenreWeights)
		assert.Equal(t, fixedNow, profile.DerivedAt)
	})

	t.Run("weights are accumulated, folded and normalized", func(t *testing.T) {
		ratings := []models.Rating{
			{MovieID: 1, Rating: 8, Genres: []string{"Action", "Drama"}},
			{MovieID: 2, Rating: 4, Genres: []string{"action", "ACTION"}},
			{MovieID: 3, Rating: 10},
			{MovieID: 4, Rating: 9},
		}
		catalog := []models.Movie{{ID: 3, Genres: []string{"Comedy"}}}

		profile := extractor.Extract(ratings, catalog)

		require.Len(t, profile.GenreWeights, 3)
		assert.InDelta(t, 1.0, profile.GenreWeights["action"], 1e-9)
		assert.InDelta(t, 0.8/1.2, profile.GenreWeights["drama"], 1e-9)
		assert.InDelta(t, 1.0/1.2, profile.GenreWeights["comedy"], 1e-9)
		assert.Equal(t, "Action", profile.DisplayNames["action"])
		assert.Len(t, profile.RatedMovies, 4)
		assert.Contains(t, profile.RatedMovies, 4)
	})

	t.Run("ratings above the scale are clamped", func(t *testing.T) {
		profile := extractor.Extract([]models.Rating{
			{MovieID: 1, Rating: 25, Genres: []string{"Action"}},
			{MovieID: 2, Rating: 10, Genres: []string{"Drama"}},
		}, nil)
		assert.InDelta(t, 1.0, profile.GenreWeights["action"], 1e-9)
		assert.InDelta(t, 1.0, profile.GenreWeights["drama"], 1e-9)
	})

	t.Run("zero ratings leave the profile empty", func(t *testing.T) {
		profile := extractor.Extract([]models.Rating{{MovieID: 1, Rating: 0, Genres: []string{"Action"}}}, nil)
		assert.True(t, profile.IsEmpty())
	})
}

func TestScorer_ActionFanPrefersActionOverMorePopularDrama(t *testing.T) {
	profile := newTestExtractor().Extract([]models.Rating{
		{MovieID: 1, Rating: 5, Genres: []string{"Action"}},
	}, nil)
	candidates := []models.Movie{
		{ID: 10, Genres: []string{"Action"}, Popularity: 5},
		{ID: 11, Genres: []string{"Drama"}, Popularity: 9},
	}

	entries := newTestScorer().GenerateRecommendations(1, profile, candidates, 2)

	require.Len(t, entries, 2)
	assert.Equal(t, []int{10, 11}, movieIDs(entries))
	assert.Equal(t, 1, entries[0].UserID)
	assert.InDelta(t, 0.8667, entries[0].Score, 1e-9)
	assert.InDelta(t, 0.3, entries[1].Score, 1e-9)
	assert.Equal(t, "Matches your interest in Action", *entries[0].Reason)
	assert.Equal(t, "Popular movie", *entries[1].Reason)
	assert.Equal(t, fixedNow, entries[0].CreatedAt)
}

func TestScorer_GenerateRecommendations_LimitAndOrdering(t *testing.T) {
	scorer := newTestScorer()
	profile := &models.PreferenceProfile{
		GenreWeights: map[string]float64{"action": 0.4, "drama": 1, "comedy": 0.1},
	}
	catalog := sampleCatalog()

	for _, limit := range []int{1, 3, 7, 20, 50} {
		entries := scorer.GenerateRecommendations(5, profile, catalog, limit)
		assert.LessOrEqual(t, len(entries), limit)
		for i := 1; i < len(entries); i++ {
			assert.GreaterOrEqual(t, entries[i-1].Score, entries[i].Score, "limit %d position %d", limit, i)
		}
	}
}

func TestScorer_GenerateRecommendations_Deterministic(t *testing.T) {
	scorer := newTestScorer()
	profile := &models.PreferenceProfile{GenreWeights: map[string]float64{"action": 1, "comedy": 1}}
	catalog := sampleCatalog()

	first, err := json.Marshal(scorer.GenerateRecommendations(3, profile, catalog, 10))
	require.NoError(t, err)
	second, err := json.Marshal(scorer.GenerateRecommendations(3, profile, catalog, 10))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestScorer_GenerateRecommendations_TiesKeepCandidateOrder(t *testing.T) {
	candidates := []models.Movie{
		{ID: 3, Genres: []string{"Drama"}, Popularity: 4},
		{ID: 1, Genres: []string{"Drama"}, Popularity: 4},
		{ID: 2, Genres: []string{"Drama"}, Popularity: 4},
	}

	entries := newTestScorer().GenerateRecommendations(1, nil, candidates, 3)
	assert.Equal(t, []int{3, 1, 2}, movieIDs(entries))
}

func TestScorer_GenerateRecommendations_Monotonic(t *testing.T) {
	scorer := newTestScorer()
	catalog := sampleCatalog()

	for _, boosted := range []float64{0.3, 0.6, 1.0, 2.5} {
		base := &models.PreferenceProfile{GenreWeights: map[string]float64{"action": 0.2, "drama": 0.5, "horror": 0.3}}
		raised := &models.PreferenceProfile{GenreWeights: map[string]float64{"action": boosted, "drama": 0.5, "horror": 0.3}}

		before := scorer.GenerateRecommendations(1, base, catalog, len(catalog))
		after := scorer.GenerateRecommendations(1, raised, catalog, len(catalog))

		for _, movie := range catalog {
			for _, g := range movie.Genres {
				if g == "Action" {
					assert.LessOrEqual(t, rankOf(after, movie.ID), rankOf(before, movie.ID),
						"movie %d with action weight %.1f", movie.ID, boosted)
				}
			}
		}
	}
}

func TestScorer_GenerateRecommendations_EmptyCandidates(t *testing.T) {
	scorer := newTestScorer()
	profile := &models.PreferenceProfile{GenreWeights: map[string]float64{"action": 1}}

	for _, limit := range []int{0, 1, 10} {
		entries := scorer.GenerateRecommendations(1, profile, nil, limit)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	}
}

func TestScorer_EmptyHistoryMatchesPopularityRanking(t *testing.T) {
	scorer := newTestScorer()
	catalog := sampleCatalog()
	profile := newTestExtractor().Extract(nil, catalog)

	personalized := scorer.GenerateRecommendations(9, profile, catalog, 10)
	popular := scorer.RankPopular(catalog, 10)

	assert.Equal(t, movieIDs(popular), movieIDs(personalized))
	for _, e := range personalized {
		assert.Equal(t, "Popular movie", *e.Reason)
	}
}

func TestScorer_GenerateRecommendations_ExcludesRatedMovies(t *testing.T) {
	candidates := []models.Movie{
		{ID: 1, Genres: []string{"Action"}, Popularity: 10},
		{ID: 2, Genres: []string{"Action"}, Popularity: 1},
	}
	profile := newTestExtractor().Extract([]models.Rating{{MovieID: 1, Rating: 9}}, candidates)

	entries := newTestScorer().GenerateRecommendations(1, profile, candidates, 5)
	assert.Equal(t, []int{2}, movieIDs(entries))

	keep := NewScorer(&config.RecommendationConfig{PopularityWeight: 0.3, GenreWeight: 0.7})
	assert.Equal(t, []int{1, 2}, movieIDs(keep.GenerateRecommendations(1, profile, candidates, 5)))
}

func TestScorer_ReasonPicksStrongestGenre(t *testing.T) {
	scorer := newTestScorer()

	tied := &models.PreferenceProfile{GenreWeights: map[string]float64{"action": 1, "drama": 1}}
	entries := scorer.GenerateRecommendations(1, tied, []models.Movie{{ID: 1, Genres: []string{"Drama", "Action"}, Popularity: 1}}, 1)
	require.Len(t, entries, 1)
	assert.Equal(t, "Matches your interest in Action", *entries[0].Reason)

	weighted := &models.PreferenceProfile{
		GenreWeights: map[string]float64{"action": 0.2, "drama": 0.9},
		DisplayNames: map[string]string{"drama": "Drama"},
	}
	entries = scorer.GenerateRecommendations(1, weighted, []models.Movie{{ID: 1, Genres: []string{"action", "DRAMA"}, Popularity: 1}}, 1)
	require.Len(t, entries, 1)
	assert.Equal(t, "Matches your interest in Drama", *entries[0].Reason)
}

func TestScorer_SimilarMovies(t *testing.T) {
	heat := models.Movie{
		ID:       7,
		Title:    "Heat",
		Genres:   []string{"Crime", "Drama"},
		Director: "Michael Mann",
		Cast:     []string{"Al Pacino", "Robert De Niro"},
	}
	candidates := []models.Movie{
		heat,
		{ID: 21, Genres: []string{"Comedy"}, Director: "michael mann"},
		{ID: 22, Genres: []string{"Comedy"}},
		{ID: 20, Genres: []string{"Drama", "Crime"}},
		{ID: 23, Genres: []string{"Crime", "Thriller"}, Cast: []string{"Al Pacino"}},
	}

	entries := newTestScorer().SimilarMovies(heat, candidates, 5)

	require.Equal(t, []int{20, 23, 21}, movieIDs(entries))
	assert.InDelta(t, 0.6, entries[0].Score, 1e-9)
	assert.InDelta(t, 0.275, entries[1].Score, 1e-9)
	assert.InDelta(t, 0.25, entries[2].Score, 1e-9)
	assert.Equal(t, "Shares Crime, Drama with Heat", *entries[0].Reason)
	assert.Equal(t, "Shares Crime with Heat", *entries[1].Reason)
	assert.Equal(t, "Also directed by michael mann", *entries[2].Reason)
	for _, e := range entries {
		assert.Equal(t, models.SystemUserID, e.UserID)
	}

	assert.Len(t, newTestScorer().SimilarMovies(heat, candidates, 2), 2)
	assert.Empty(t, newTestScorer().SimilarMovies(heat, nil, 5))
}

func TestScorer_RankPopular(t *testing.T) {
	candidates := []models.Movie{
		{ID: 1, Popularity: 3.14159},
		{ID: 2, Popularity: 9},
		{ID: 3, Popularity: 3.14159},
		{ID: 2, Popularity: 100},
	}

	entries := newTestScorer().RankPopular(candidates, 5)

	require.Equal(t, []int{2, 1, 3}, movieIDs(entries))
	assert.Equal(t, 9.0, entries[0].Score)
	assert.Equal(t, 3.1416, entries[1].Score)
	for _, e := range entries {
		assert.Equal(t, models.SystemUserID, e.UserID)
		assert.Equal(t, "Popular movie", *e.Reason)
	}
}
