package models

import "time"

// SystemUserID marks recommendations that are not tied to a user.
const SystemUserID = 0

// RecommendationEntry is a single ranked recommendation as returned to clients.
type RecommendationEntry struct {
	UserID    int       `json:"user_id"`
	MovieID   int       `json:"movie_id"`
	Score     float64   `json:"score"`
	Reason    *string   `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StoredRecommendation is a RecommendationEntry persisted in the recommendations table.
type StoredRecommendation struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	MovieID   int       `json:"movie_id" db:"movie_id"`
	Score     float64   `json:"score" db:"score"`
	Reason    *string   `json:"reason,omitempty" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type CreateRecommendationRequest struct {
	UserID  *int     `json:"user_id" validate:"required,min=0"`
	MovieID *int     `json:"movie_id" validate:"required,min=1"`
	Score   *float64 `json:"score" validate:"required"`
	Reason  *string  `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// Entry converts a validated request into the entry that gets persisted.
func (r *CreateRecommendationRequest) Entry(now time.Time) RecommendationEntry {
	return RecommendationEntry{
		UserID:    *r.UserID,
		MovieID:   *r.MovieID,
		Score:     *r.Score,
		Reason:    r.Reason,
		CreatedAt: now,
	}
}

// PreferenceProfile is the per-request genre weighting derived from a user's ratings.
type PreferenceProfile struct {
	GenreWeights map[string]float64 `json:"genre_weights"`
	// DisplayNames maps canonical genre keys to the name first seen upstream.
	DisplayNames map[string]string `json:"display_names,omitempty"`
	// RatedMovies holds the ids the user has already rated.
	RatedMovies map[int]struct{} `json:"-"`
	DerivedAt   time.Time        `json:"derived_at"`
}

// IsEmpty reports whether the profile carries no positive genre weight.
func (p *PreferenceProfile) IsEmpty() bool {
	if p == nil {
		return true
	}
	for _, w := range p.GenreWeights {
		if w > 0 {
			return false
		}
	}
	return true
}

func StringPtr(s string) *string {
	return &s
}
