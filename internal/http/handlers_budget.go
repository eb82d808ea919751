package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := queryDatasetID(w, r)
	if !ok {
		return
	}
	budgets, err := s.repo.ListBudgets(r.Context(), datasetID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	respondJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID          string  `json:"id"`
		DatasetID   string  `json:"dataset_id"`
		Name        string  `json:"name"`
		TotalAmount float64 `json:"total_amount"`
		Unit        string  `json:"unit"`
		Description string  `json:"description"`
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
	// Callers may bring their own id (spreadsheet-stable references);
	// otherwise one is generated.
	if body.ID == "" {
		body.ID = uuid.NewString()
	}

	b, err := s.repo.CreateBudget(r.Context(), storage.CreateBudgetParams{
		ID:          body.ID,
		DatasetID:   body.DatasetID,
		Name:        body.Name,
		TotalAmount: body.TotalAmount,
		Unit:        body.Unit,
		Description: body.Description,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var body storage.UpdateBudgetParams
	if !decodeJSON(w, r, &body) {
		return
	}
	b, err := s.repo.UpdateBudget(r.Context(), r.PathValue("id"), body)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteBudget(r.Context(), r.PathValue("id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Budget deleted"})
}

func (s *Server) handleMergeBudgets(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SourceBudgetID string `json:"source_budget_id"`
		TargetBudgetID string `json:"target_budget_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.SourceBudgetID == "" || body.TargetBudgetID == "" {
		respondBadRequest(w, "source_budget_id and target_budget_id are required")
		return
	}
	if body.SourceBudgetID == body.TargetBudgetID {
		respondBadRequest(w, "cannot merge a budget into itself")
		return
	}

	b, err := s.merger.Merge(r.Context(), body.SourceBudgetID, body.TargetBudgetID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) handleGetImportSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := s.repo.GetImportSetting(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, setting)
}

func (s *Server) handleSaveImportSetting(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MappingJSON string `json:"mapping_json"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if _, err := s.repo.GetBudget(r.Context(), r.PathValue("id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	setting, err := s.repo.SaveImportSetting(r.Context(), r.PathValue("id"), body.MappingJSON)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, setting)
}

func (s *Server) handleImportExpensesCSV(w http.ResponseWriter, r *http.Request) {
	file, overwrite, ok := s.uploadedCSV(w, r)
	if !ok {
		return
	}
	defer file.Close()

	count, err := s.importer.ImportActualExpenses(r.Context(), r.PathValue("id"), file, overwrite)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, importResponse{Count: count, Message: "Import successful"})
}

func (s *Server) handleListActualExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.repo.ListActualExpenses(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []core.ActualExpense{}
	}
	respondJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateActualExpense(w http.ResponseWriter, r *http.Request) {
	var body storage.ActualExpenseParams
	if !decodeJSON(w, r, &body) {
		return
	}
	if _, err := s.repo.GetBudget(r.Context(), r.PathValue("id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	e, err := s.repo.CreateActualExpense(r.Context(), r.PathValue("id"), body)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateActualExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r)
	if !ok {
		return
	}
	var body storage.ActualExpenseParams
	if !decodeJSON(w, r, &body) {
		return
	}
	e, err := s.repo.UpdateActualExpense(r.Context(), id, body)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteActualExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r)
	if !ok {
		return
	}
	if err := s.repo.DeleteActualExpense(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Actual expense deleted"})
}
