// Package services orchestrates the multi-entity operations: dashboard
// aggregation, budget merge, dataset rollover and CSV import/export.
package services

import (
	"context"
	"fmt"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

// DashboardService computes the read-only spending summary of one
// dataset.
type DashboardService struct {
	repo *storage.Repository
}

func NewDashboardService(repo *storage.Repository) *DashboardService {
	return &DashboardService{repo: repo}
}

// Summary loads a dataset's budgets, purchases, assignments and actual
// expenses and folds them into one dashboard snapshot. No writes.
func (s *DashboardService) Summary(ctx context.Context, datasetID string) (core.DashboardSummary, error) {
	if _, err := s.repo.GetDataset(ctx, datasetID); err != nil {
		return core.DashboardSummary{}, err
	}

	budgets, err := s.repo.ListBudgets(ctx, datasetID)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("load budgets: %w", err)
	}
	purchases, err := s.repo.ListPurchases(ctx, datasetID)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("load purchases: %w", err)
	}
	assignments, err := s.repo.ListAssignmentsByDataset(ctx, datasetID)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("load assignments: %w", err)
	}
	expenses, err := s.repo.ListActualExpensesByDataset(ctx, datasetID)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("load actual expenses: %w", err)
	}

	return core.ComputeDashboard(budgets, purchases, assignments, expenses), nil
}
