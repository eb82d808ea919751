package http

import (
	"net/http"
	"strings"

	"kakeibo/internal/core"
)

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := queryDatasetID(w, r)
	if !ok {
		return
	}
	members, err := s.repo.ListMembers(r.Context(), datasetID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if members == nil {
		members = []core.Member{}
	}
	respondJSON(w, http.StatusOK, members)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DatasetID string `json:"dataset_id"`
		Name      string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.DatasetID == "" || strings.TrimSpace(body.Name) == "" {
		respondBadRequest(w, "dataset_id and name are required")
		return
	}
	if _, err := s.repo.GetDataset(r.Context(), body.DatasetID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	m, err := s.repo.CreateMember(r.Context(), body.DatasetID, body.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	m, err := s.repo.RenameMember(r.Context(), id, body.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r)
	if !ok {
		return
	}
	if err := s.repo.DeleteMember(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Member deleted"})
}
