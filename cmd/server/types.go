package main

import (
	"github.com/himanishpuri/CollabMatch/internal/tabular"
	"github.com/himanishpuri/CollabMatch/pkg/models"
)

// UserDTO represents a ranked user in API responses
type UserDTO struct {
	ID       string   `json:"user_id"`
	Name     string   `json:"name"`
	Genres   []string `json:"genres"`
	Roles    []string `json:"roles"`
	Location string   `json:"location"`
	HasAudio bool     `json:"has_audio"`
}

// ListUsersResponse is the response for GET /api/users
type ListUsersResponse struct {
	Users []UserDTO `json:"users"`
	Count int       `json:"count"`
}

// MatchDTO is one ranked match. Component scores are fractions for final
// matches, weighted points for metadata matches and the raw cosine for audio.
type MatchDTO struct {
	Rank          int                `json:"rank"`
	UserID        string             `json:"user_id"`
	Name          string             `json:"name"`
	Score         float64            `json:"score"`
	Components    map[string]float64 `json:"components,omitempty"`
	GenreMatches  []string           `json:"genre_matches,omitempty"`
	RoleMatches   []string           `json:"role_matches,omitempty"`
	AgeCompatible *bool              `json:"age_compatible,omitempty"`
	DistanceKm    *float64           `json:"distance_km,omitempty"`
	Location      string             `json:"location,omitempty"`
}

// MatchesResponse is the response for the GET /api/matches endpoints
type MatchesResponse struct {
	UserID  string     `json:"user_id"`
	Name    string     `json:"name"`
	Kind    string     `json:"kind"`
	Matches []MatchDTO `json:"matches"`
	Count   int        `json:"count"`
}

// MetricsResponse summarises the loaded ranking
type MetricsResponse struct {
	Status       string `json:"status"`
	RunID        string `json:"run_id"`
	Scheme       string `json:"scheme"`
	DatabasePath string `json:"database_path"`
	UserCount    int    `json:"user_count"`
	AudioCount   int    `json:"audio_user_count"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func toMatchDTOs(l *models.RankedMatchList) []MatchDTO {
	out := make([]MatchDTO, len(l.Edges))
	for i, e := range l.Edges {
		dto := MatchDTO{
			Rank:     i + 1,
			UserID:   e.TargetID,
			Name:     e.TargetName,
			Score:    tabular.Round(e.Score, 4),
			Location: e.TargetLocation,
		}
		if l.Kind == models.KindAudio {
			out[i] = dto
			continue
		}

		c := e.Components
		dto.Components = map[string]float64{
			"genre":    tabular.Round(c.Genre, 4),
			"role":     tabular.Round(c.Role, 4),
			"age":      tabular.Round(c.Age, 4),
			"location": tabular.Round(c.Location, 4),
		}
		if l.Kind == models.KindConsolidated {
			dto.Components["audio"] = tabular.Round(c.Audio, 4)
		}
		dto.GenreMatches = e.Details.GenreMatches
		dto.RoleMatches = e.Details.RoleMatches
		compatible := e.Details.AgeCompatible
		dto.AgeCompatible = &compatible
		if d := e.Details.DistanceKm; d != nil {
			km := tabular.Round(*d, 2)
			dto.DistanceKm = &km
		}
		out[i] = dto
	}
	return out
}
