package http

import (
	"net/http"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := queryDatasetID(w, r)
	if !ok {
		return
	}
	purchases, err := s.repo.ListPurchases(r.Context(), datasetID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if purchases == nil {
		purchases = []core.Purchase{}
	}
	respondJSON(w, http.StatusOK, purchases)
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var in core.PurchaseInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if _, err := s.repo.GetDataset(r.Context(), in.DatasetID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	p, err := s.repo.CreatePurchase(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// handleBulkImportPurchases inserts a JSON array of purchases for one
// dataset in a single transaction.
func (s *Server) handleBulkImportPurchases(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := queryDatasetID(w, r)
	if !ok {
		return
	}
	var inputs []core.PurchaseInput
	if !decodeJSON(w, r, &inputs) {
		return
	}
	if _, err := s.repo.GetDataset(r.Context(), datasetID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	var created []core.Purchase
	err := s.repo.InTx(r.Context(), func(q *storage.Queries) error {
		for _, in := range inputs {
			in.DatasetID = datasetID
			in.Normalize()
			if err := in.Validate(); err != nil {
				return err
			}
			p, err := q.CreatePurchase(r.Context(), in)
			if err != nil {
				return err
			}
			created = append(created, p)
		}
		return nil
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if created == nil {
		created = []core.Purchase{}
	}
	respondJSON(w, http.StatusOK, created)
}

func (s *Server) handleUpdatePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r)
	if !ok {
		return
	}
	var body storage.UpdatePurchaseParams
	if !decodeJSON(w, r, &body) {
		return
	}

	var p core.Purchase
	err := s.repo.InTx(r.Context(), func(q *storage.Queries) error {
		var err error
		p, err = q.UpdatePurchase(r.Context(), id, body)
		return err
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePurchaseStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r)
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	if status == "" {
		var body struct {
			Status string `json:"status"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		status = body.Status
	}
	if !core.ValidStatus(status) {
		respondBadRequest(w, "invalid status: "+status)
		return
	}

	p, err := s.repo.SetPurchaseStatus(r.Context(), id, status)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r)
	if !ok {
		return
	}
	if err := s.repo.DeletePurchase(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Purchase deleted"})
}
