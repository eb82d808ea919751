package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"kakeibo/internal/core"
	"kakeibo/internal/services"
)

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.repo.ListDatasets(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if datasets == nil {
		datasets = []core.Dataset{}
	}
	respondJSON(w, http.StatusOK, datasets)
}

func (s *Server) handleCreateDataset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		respondBadRequest(w, "name is required")
		return
	}

	d, err := s.repo.CreateDataset(r.Context(), uuid.NewString(), body.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDataset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	d, err := s.repo.RenameDataset(r.Context(), r.PathValue("id"), body.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteDataset(r.Context(), r.PathValue("id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Dataset deleted"})
}

func (s *Server) handleRolloverDataset(w http.ResponseWriter, r *http.Request) {
	var params services.RolloverParams
	if !decodeJSON(w, r, &params) {
		return
	}
	if strings.TrimSpace(params.Name) == "" {
		respondBadRequest(w, "name is required")
		return
	}

	d, err := s.rollover.Rollover(r.Context(), params)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := queryDatasetID(w, r)
	if !ok {
		return
	}
	summary, err := s.dashboard.Summary(r.Context(), datasetID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetPurchaseImportSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := s.repo.GetPurchaseImportSetting(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, setting)
}

func (s *Server) handleSavePurchaseImportSetting(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MappingJSON string `json:"mapping_json"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if _, err := s.repo.GetDataset(r.Context(), r.PathValue("id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	setting, err := s.repo.SavePurchaseImportSetting(r.Context(), r.PathValue("id"), body.MappingJSON)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, setting)
}

func (s *Server) handleExportPurchasesCSV(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := queryDatasetID(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=purchases_%s.csv", datasetID))
	if err := s.exporter.ExportPurchases(r.Context(), datasetID, w); err != nil {
		respondServiceError(w, r, err)
	}
}

func (s *Server) handleImportPurchasesCSV(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := queryDatasetID(w, r)
	if !ok {
		return
	}
	file, overwrite, ok := s.uploadedCSV(w, r)
	if !ok {
		return
	}
	defer file.Close()

	count, err := s.importer.ImportPurchases(r.Context(), datasetID, file, overwrite)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, importResponse{Count: count, Message: "Import successful"})
}
