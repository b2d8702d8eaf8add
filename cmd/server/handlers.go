package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/himanishpuri/CollabMatch/pkg/collabmatch"
	"github.com/himanishpuri/CollabMatch/pkg/logger"
	"github.com/himanishpuri/CollabMatch/pkg/models"
)

// Server serves one immutable ranking result.
type Server struct {
	result *collabmatch.Result
	config *ServerConfig
	log    collabmatch.Logger
	users  map[string]int // user_id -> index in result.Entities
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	EntitiesPath   string
	Scheme         string
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(result *collabmatch.Result, config *ServerConfig) *Server {
	users := make(map[string]int, len(result.Entities))
	for i, e := range result.Entities {
		users[e.ID] = i
	}
	return &Server{
		result: result,
		config: config,
		log:    logger.GetLogger(),
		users:  users,
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "CollabMatch API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":          "GET /health",
			"metrics":         "GET /api/health/metrics",
			"users":           "GET /api/users",
			"matches":         "GET /api/matches/{user_id}",
			"metadataMatches": "GET /api/matches/{user_id}/metadata",
			"audioMatches":    "GET /api/matches/{user_id}/audio",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		RunID:        s.result.RunID,
		Scheme:       s.config.Scheme,
		DatabasePath: s.config.DBPath,
		UserCount:    len(s.result.Entities),
		AudioCount:   len(s.result.Audio),
	})
}

// handleUsers handles GET /api/users
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users := make([]UserDTO, len(s.result.Entities))
	for i := range s.result.Entities {
		e := &s.result.Entities[i]
		users[i] = UserDTO{
			ID:       e.ID,
			Name:     e.Name(),
			Genres:   e.Genres,
			Roles:    e.Roles,
			Location: e.LocationText,
			HasAudio: e.HasAudio(),
		}
	}
	s.respondJSON(w, http.StatusOK, ListUsersResponse{Users: users, Count: len(users)})
}

func (s *Server) handleFinalMatches(w http.ResponseWriter, r *http.Request) {
	s.respondMatches(w, r, models.KindConsolidated)
}

func (s *Server) handleMetadataMatches(w http.ResponseWriter, r *http.Request) {
	s.respondMatches(w, r, models.KindMetadata)
}

func (s *Server) handleAudioMatches(w http.ResponseWriter, r *http.Request) {
	s.respondMatches(w, r, models.KindAudio)
}

// respondMatches writes the list of the given kind for the user in the path. A
// known user without audio gets an empty audio list rather than 404.
func (s *Server) respondMatches(w http.ResponseWriter, r *http.Request, kind models.ListKind) {
	userID := r.PathValue("user_id")
	idx, ok := s.users[userID]
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("User not found: %s", userID))
		return
	}

	resp := MatchesResponse{
		UserID:  userID,
		Name:    s.result.Entities[idx].Name(),
		Kind:    string(kind),
		Matches: []MatchDTO{},
	}
	if l, ok := s.result.List(kind, userID); ok {
		resp.Matches = toMatchDTOs(l)
	}
	resp.Count = len(resp.Matches)
	s.respondJSON(w, http.StatusOK, resp)
}
