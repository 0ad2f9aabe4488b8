package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Movie is the read-only view of a movie served by the movie service.
type Movie struct {
	ID          int            `json:"id"`
	Title       string         `json:"title"`
	Genres      []string       `json:"genres"`
	Popularity  float64        `json:"popularity"`
	VoteAverage float64        `json:"vote_average"`
	Director    string         `json:"director,omitempty"`
	Cast        []string       `json:"cast,omitempty"`
	ReleaseYear int            `json:"release_year,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// tmdbGenres is TMDB's fixed movie genre list, used when the popular feed
// only carries genre_ids.
var tmdbGenres = map[int]string{
	28:    "Action",
	12:    "Adventure",
	16:    "Animation",
	35:    "Comedy",
	80:    "Crime",
	99:    "Documentary",
	18:    "Drama",
	10751: "Family",
	14:    "Fantasy",
	36:    "History",
	27:    "Horror",
	10402: "Music",
	9648:  "Mystery",
	10749: "Romance",
	878:   "Science Fiction",
	10770: "TV Movie",
	53:    "Thriller",
	10752: "War",
	37:    "Western",
}

// TMDBGenreName returns the TMDB genre name for id.
func TMDBGenreName(id int) (string, bool) {
	name, ok := tmdbGenres[id]
	return name, ok
}

// movieWire accepts both the movie service's own model (camelCase, genre
// objects, decimal strings) and raw TMDB results (snake_case, genre_ids).
type movieWire struct {
	ID               int             `json:"id"`
	TMDBID           *int            `json:"tmdbId"`
	Title            string          `json:"title"`
	Name             string          `json:"name"`
	Genres           json.RawMessage `json:"genres"`
	GenreIDs         []int           `json:"genre_ids"`
	Popularity       FlexFloat       `json:"popularity"`
	VoteAverage      FlexFloat       `json:"vote_average"`
	VoteAverageCamel FlexFloat       `json:"voteAverage"`
	Director         string          `json:"director"`
	Actors           json.RawMessage `json:"actors"`
	Cast             json.RawMessage `json:"cast"`
	ReleaseYear      int             `json:"release_year"`
	ReleaseYearCamel int             `json:"releaseYear"`
	ReleaseDate      string          `json:"release_date"`
	OriginalLanguage string          `json:"original_language"`
	Attributes       map[string]any  `json:"attributes"`
}

func (m *Movie) UnmarshalJSON(data []byte) error {
	var w movieWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	genres, err := parseGenres(w.Genres)
	if err != nil {
		return fmt.Errorf("movie %d: %w", w.ID, err)
	}
	if len(genres) == 0 {
		for _, id := range w.GenreIDs {
			if name, ok := tmdbGenres[id]; ok {
				genres = append(genres, name)
			}
		}
	}

	cast, err := parseNames(w.Cast)
	if err != nil {
		return fmt.Errorf("movie %d cast: %w", w.ID, err)
	}
	if len(cast) == 0 {
		if cast, err = parseNames(w.Actors); err != nil {
			return fmt.Errorf("movie %d actors: %w", w.ID, err)
		}
	}

	*m = Movie{
		ID:          w.ID,
		Title:       firstNonEmpty(w.Title, w.Name),
		Genres:      genres,
		Popularity:  float64(w.Popularity),
		VoteAverage: float64(w.VoteAverage),
		Director:    strings.TrimSpace(w.Director),
		Cast:        cast,
		ReleaseYear: w.ReleaseYear,
		Attributes:  w.Attributes,
	}
	if m.VoteAverage == 0 {
		m.VoteAverage = float64(w.VoteAverageCamel)
	}
	if m.ReleaseYear == 0 {
		m.ReleaseYear = w.ReleaseYearCamel
	}
	if m.ReleaseYear == 0 && len(w.ReleaseDate) >= 4 {
		if year, err := strconv.Atoi(w.ReleaseDate[:4]); err == nil {
			m.ReleaseYear = year
		}
	}

	if w.TMDBID != nil || w.OriginalLanguage != "" {
		if m.Attributes == nil {
			m.Attributes = make(map[string]any)
		}
		if w.TMDBID != nil {
			m.Attributes["tmdb_id"] = *w.TMDBID
		}
		if w.OriginalLanguage != "" {
			m.Attributes["original_language"] = w.OriginalLanguage
		}
	}

	return nil
}

// parseGenres reads either ["Action", ...] or [{"id": 28, "name": "Action"}, ...].
func parseGenres(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("genres must be an array: %w", err)
	}

	genres := make([]string, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		switch {
		case len(item) > 0 && item[0] == '"':
			var name string
			if err := json.Unmarshal(item, &name); err != nil {
				return nil, err
			}
			if name = strings.TrimSpace(name); name != "" {
				genres = append(genres, name)
			}
		case len(item) > 0 && item[0] == '{':
			var obj struct {
				ID   int    `json:"id"`
				Name string `json:"name"`
			}
			if err := json.Unmarshal(item, &obj); err != nil {
				return nil, err
			}
			name := strings.TrimSpace(obj.Name)
			if name == "" {
				name = tmdbGenres[obj.ID]
			}
			if name != "" {
				genres = append(genres, name)
			}
		case len(item) > 0:
			var id int
			if err := json.Unmarshal(item, &id); err != nil {
				return nil, fmt.Errorf("unsupported genre entry %s", string(item))
			}
			if name, ok := tmdbGenres[id]; ok {
				genres = append(genres, name)
			}
		}
	}

	return genres, nil
}

// parseNames reads either a JSON array of strings or a comma separated string.
func parseNames(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return nil, nil
	}

	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return splitNames(joined), nil
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, err
	}

	out := names[:0]
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}

func splitNames(joined string) []string {
	var names []string
	for _, part := range strings.Split(joined, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// FlexFloat decodes JSON numbers as well as numeric strings, which is how
// Postgres DECIMAL columns come out of the movie and rating services.
// NaN and infinities are rejected.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q: %w", s, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite numeric string %q", s)
		}
		*f = FlexFloat(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}
