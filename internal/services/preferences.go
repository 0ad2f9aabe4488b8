package services

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/floats"

	"github.com/temcen/reelrec/pkg/models"
)

const defaultRatingScale = 10.0

// PreferenceExtractor turns a user's rating history into a genre weighting.
type PreferenceExtractor struct {
	ratingScale float64
	now         func() time.Time
}

func NewPreferenceExtractor(ratingScale float64) *PreferenceExtractor {
	if ratingScale <= 0 {
		ratingScale = defaultRatingScale
	}
	return &PreferenceExtractor{
		ratingScale: ratingScale,
		now:         time.Now,
	}
}

// Extract builds a profile from ratings. Genres missing on a rating are
// looked up in catalog by movie id; ratings whose genres cannot be resolved
// only mark the movie as rated.
//
// Every rating adds rating/scale (clamped to [0,1]) to each of its genres and
// the result is divided by the largest weight, so the favourite genre is 1.0
// regardless of how many ratings the user has.
func (e *PreferenceExtractor) Extract(ratings []models.Rating, catalog []models.Movie) *models.PreferenceProfile {
	profile := &models.PreferenceProfile{
		GenreWeights: make(map[string]float64),
		DisplayNames: make(map[string]string),
		RatedMovies:  make(map[int]struct{}, len(ratings)),
		DerivedAt:    e.now().UTC(),
	}
	if len(ratings) == 0 {
		return profile
	}

	catalogGenres := make(map[int][]string, len(catalog))
	for _, movie := range catalog {
		if _, ok := catalogGenres[movie.ID]; !ok {
			catalogGenres[movie.ID] = movie.Genres
		}
	}

	folder := newGenreFolder()
	for _, rating := range ratings {
		profile.RatedMovies[rating.MovieID] = struct{}{}

		genres := rating.Genres
		if len(genres) == 0 {
			genres = catalogGenres[rating.MovieID]
		}

		contribution := clamp(rating.Rating/e.ratingScale, 0, 1)
		seen := make(map[string]struct{}, len(genres))
		for _, genre := range genres {
			key := folder.key(genre)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			profile.GenreWeights[key] += contribution
			if _, named := profile.DisplayNames[key]; !named {
				profile.DisplayNames[key] = strings.TrimSpace(genre)
			}
		}
	}

	normalizeWeights(profile.GenreWeights)
	return profile
}

// normalizeWeights divides every weight by the maximum. All-zero maps are left alone.
func normalizeWeights(weights map[string]float64) {
	if len(weights) == 0 {
		return
	}
	values := make([]float64, 0, len(weights))
	for _, w := range weights {
		values = append(values, w)
	}
	maxWeight := floats.Max(values)
	if maxWeight <= 0 {
		return
	}
	for k := range weights {
		weights[k] /= maxWeight
	}
}

// genreFolder canonicalizes genre names so "Action", "action" and
// differently composed unicode spellings share a key. A cases.Caser keeps
// state, so one folder must not be shared between goroutines.
type genreFolder struct {
	caser cases.Caser
}

func newGenreFolder() *genreFolder {
	return &genreFolder{caser: cases.Fold()}
}

func (f *genreFolder) key(genre string) string {
	trimmed := strings.TrimSpace(genre)
	if trimmed == "" {
		return ""
	}
	return f.caser.String(norm.NFC.String(trimmed))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
