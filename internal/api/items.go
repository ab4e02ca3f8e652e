package api

import (
	"net/http"

	"shareit/internal/models"
)

func (s *HTTPServer) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body models.ItemPatch
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item := &models.Item{}
	if body.Name != nil {
		item.Name = *body.Name
	}
	if body.Description != nil {
		item.Description = *body.Description
	}
	if body.Available != nil {
		item.Available = *body.Available
	}

	created, err := s.services.Items.CreateItem(r.Context(), userID, item)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *HTTPServer) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch models.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := s.services.Items.UpdateItem(r.Context(), userID, itemID, patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *HTTPServer) handleGetItem(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.services.Items.GetItem(r.Context(), userID, itemID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleOwnerItems(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	views, err := s.services.Items.GetOwnerItems(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *HTTPServer) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := s.services.Items.SearchItems(r.Context(), userID, r.URL.Query().Get("text"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []*models.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}
