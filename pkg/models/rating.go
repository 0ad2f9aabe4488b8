package models

import (
	"encoding/json"
	"fmt"
)

// Rating is one entry of a user's rating history as served by the rating service.
type Rating struct {
	MovieID int      `json:"movie_id"`
	Rating  float64  `json:"rating"`
	Genres  []string `json:"genres,omitempty"`
}

type ratingWire struct {
	MovieID      *int            `json:"movie_id"`
	MovieIDCamel *int            `json:"movieId"`
	Rating       FlexFloat       `json:"rating"`
	Genres       json.RawMessage `json:"genres"`
	Genre        string          `json:"genre"`
}

func (r *Rating) UnmarshalJSON(data []byte) error {
	var w ratingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var movieID int
	switch {
	case w.MovieID != nil:
		movieID = *w.MovieID
	case w.MovieIDCamel != nil:
		movieID = *w.MovieIDCamel
	default:
		return fmt.Errorf("rating is missing movie id")
	}

	genres, err := parseGenres(w.Genres)
	if err != nil {
		return fmt.Errorf("rating for movie %d: %w", movieID, err)
	}
	if len(genres) == 0 {
		genres = splitNames(w.Genre)
	}

	*r = Rating{
		MovieID: movieID,
		Rating:  float64(w.Rating),
		Genres:  genres,
	}
	return nil
}
