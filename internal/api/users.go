package api

import (
	"net/http"

	"shareit/internal/models"
)

func (s *HTTPServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body models.UserPatch
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := &models.User{}
	if body.Name != nil {
		user.Name = *body.Name
	}
	if body.Email != nil {
		user.Email = *body.Email
	}

	created, err := s.services.Users.CreateUser(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.services.Users.GetUser(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch models.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.services.Users.UpdateUser(r.Context(), userID, patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
