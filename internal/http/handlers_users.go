package http

import (
	"context"
	"net/http"

	"fintrack/internal/core"
)

// UserService registers accounts.
type UserService interface {
	Register(ctx context.Context, in core.UserInput) (core.User, error)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := s.users.Register(r.Context(), req.Input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{ID: u.ID, Email: u.Email})
}
