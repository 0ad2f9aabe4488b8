package services

import (
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/temcen/reelrec/internal/config"
	"github.com/temcen/reelrec/pkg/models"
)

const (
	reasonPopular = "Popular movie"

	similarGenreWeight    = 0.6
	similarDirectorWeight = 0.25
	similarCastWeight     = 0.15

	scorePrecision = 4
)

// Scorer ranks candidate movies. It holds no per-request state and is safe
// for concurrent use.
//
// Every ranking sorts on the unrounded score with a stable sort, so equal
// scores keep the order in which candidates were supplied. Duplicate
// candidate ids are collapsed to their first occurrence.
type Scorer struct {
	popularityWeight float64
	genreWeight      float64
	excludeRated     bool
	now              func() time.Time
}

func NewScorer(cfg *config.RecommendationConfig) *Scorer {
	return &Scorer{
		popularityWeight: cfg.PopularityWeight,
		genreWeight:      cfg.GenreWeight,
		excludeRated:     cfg.ExcludeRated,
		now:              time.Now,
	}
}

type scoredMovie struct {
	movieID int
	score   float64
	reason  string
}

// GenerateRecommendations scores candidates against a user's profile:
//
//	popularityWeight * popularity/maxPopularity + genreWeight * Σ weights of matched genres
//
// An empty profile degrades to a pure popularity ranking.
func (s *Scorer) GenerateRecommendations(userID int, profile *models.PreferenceProfile, candidates []models.Movie, limit int) []models.RecommendationEntry {
	candidates = uniqueMovies(candidates)
	if len(candidates) == 0 || limit <= 0 {
		return []models.RecommendationEntry{}
	}
	if profile == nil {
		profile = &models.PreferenceProfile{}
	}

	topPopularity := maxPopularity(candidates)
	folder := newGenreFolder()

	scored := make([]scoredMovie, 0, len(candidates))
	for _, movie := range candidates {
		if s.excludeRated {
			if _, rated := profile.RatedMovies[movie.ID]; rated {
				continue
			}
		}

		score := 0.0
		if topPopularity > 0 {
			score = s.popularityWeight * clamp(movie.Popularity, 0, topPopularity) / topPopularity
		}

		reason := reasonPopular
		bestWeight := 0.0
		bestName := ""
		seen := make(map[string]struct{}, len(movie.Genres))
		for _, genre := range movie.Genres {
			key := folder.key(genre)
			if _, dup := seen[key]; dup || key == "" {
				continue
			}
			seen[key] = struct{}{}

			weight := profile.GenreWeights[key]
			if weight <= 0 {
				continue
			}
			score += s.genreWeight * weight

			name := profile.DisplayNames[key]
			if name == "" {
				name = strings.TrimSpace(genre)
			}
			if weight > bestWeight || (weight == bestWeight && name < bestName) {
				bestWeight = weight
				bestName = name
			}
		}
		if bestName != "" {
			reason = "Matches your interest in " + bestName
		}

		scored = append(scored, scoredMovie{movieID: movie.ID, score: score, reason: reason})
	}

	return s.rank(userID, scored, limit)
}

// SimilarMovies ranks candidates by attribute overlap with reference:
// 0.6 * genre Jaccard + 0.25 * same director + 0.15 * cast Jaccard.
// The reference itself and candidates sharing nothing are dropped.
func (s *Scorer) SimilarMovies(reference models.Movie, candidates []models.Movie, limit int) []models.RecommendationEntry {
	candidates = uniqueMovies(candidates)
	if len(candidates) == 0 || limit <= 0 {
		return []models.RecommendationEntry{}
	}

	folder := newGenreFolder()
	refGenres := folder.keys(reference.Genres)
	refCast := folder.keys(reference.Cast)
	refDirector := folder.key(reference.Director)

	scored := make([]scoredMovie, 0, len(candidates))
	for _, movie := range candidates {
		if movie.ID == reference.ID {
			continue
		}

		genres := folder.keys(movie.Genres)
		cast := folder.keys(movie.Cast)
		sameDirector := refDirector != "" && folder.key(movie.Director) == refDirector

		score := similarGenreWeight*jaccard(refGenres, genres) + similarCastWeight*jaccard(refCast, cast)
		if sameDirector {
			score += similarDirectorWeight
		}
		if score <= 0 {
			continue
		}

		scored = append(scored, scoredMovie{
			movieID: movie.ID,
			score:   score,
			reason:  similarityReason(reference, movie, genres, sameDirector, folder),
		})
	}

	return s.rank(models.SystemUserID, scored, limit)
}

// RankPopular orders candidates by raw popularity.
func (s *Scorer) RankPopular(candidates []models.Movie, limit int) []models.RecommendationEntry {
	candidates = uniqueMovies(candidates)
	if len(candidates) == 0 || limit <= 0 {
		return []models.RecommendationEntry{}
	}

	scored := make([]scoredMovie, 0, len(candidates))
	for _, movie := range candidates {
		scored = append(scored, scoredMovie{movieID: movie.ID, score: movie.Popularity, reason: reasonPopular})
	}

	return s.rank(models.SystemUserID, scored, limit)
}

func (s *Scorer) rank(userID int, scored []scoredMovie, limit int) []models.RecommendationEntry {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	createdAt := s.now().UTC()
	entries := make([]models.RecommendationEntry, 0, len(scored))
	for _, sm := range scored {
		entries = append(entries, models.RecommendationEntry{
			UserID:    userID,
			MovieID:   sm.movieID,
			Score:     scalar.Round(sm.score, scorePrecision),
			Reason:    models.StringPtr(sm.reason),
			CreatedAt: createdAt,
		})
	}
	return entries
}

func similarityReason(reference, movie models.Movie, genres map[string]struct{}, sameDirector bool, folder *genreFolder) string {
	var shared []string
	added := make(map[string]struct{})
	for _, genre := range reference.Genres {
		key := folder.key(genre)
		if _, ok := genres[key]; !ok {
			continue
		}
		if _, dup := added[key]; dup {
			continue
		}
		added[key] = struct{}{}
		shared = append(shared, strings.TrimSpace(genre))
	}

	switch {
	case len(shared) > 0:
		return "Shares " + strings.Join(shared, ", ") + " with " + reference.Title
	case sameDirector:
		return "Also directed by " + strings.TrimSpace(movie.Director)
	default:
		return "Shares cast with " + reference.Title
	}
}

func (f *genreFolder) keys(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if key := f.key(v); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func maxPopularity(movies []models.Movie) float64 {
	values := make([]float64, len(movies))
	for i, m := range movies {
		values[i] = m.Popularity
	}
	return floats.Max(values)
}

func uniqueMovies(movies []models.Movie) []models.Movie {
	seen := make(map[int]struct{}, len(movies))
	out := make([]models.Movie, 0, len(movies))
	for _, m := range movies {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
