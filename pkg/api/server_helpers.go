package api

import (
	"encoding/json"
	"net/http"

	"github.com/dd0wney/cluso-graphview/pkg/logging"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// respondInternal logs err and answers with a message that does not leak it
func (s *Server) respondInternal(w http.ResponseWriter, status int, operation string, err error) {
	s.logger.Error(operation+" failed", logging.Error(err))
	s.respondError(w, status, operation+" failed")
}
