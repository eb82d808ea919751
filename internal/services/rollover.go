package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

// RolloverService starts a fresh dataset from an existing one.
type RolloverService struct {
	repo *storage.Repository
}

func NewRolloverService(repo *storage.Repository) *RolloverService {
	return &RolloverService{repo: repo}
}

// RolloverParams selects what the new dataset inherits from the source.
// CarrySettings is accepted for API compatibility but currently copies
// nothing.
type RolloverParams struct {
	Name            string `json:"name"`
	SourceDatasetID string `json:"source_dataset_id"`
	CarryMembers    bool   `json:"carry_members"`
	CarryBudget     bool   `json:"carry_budget"`
	CarrySettings   bool   `json:"carry_settings"`
}

// Rollover creates the new dataset and, when a source is given, copies
// its members and consolidates the unspent remainder of every source
// budget into a single carry-over budget. Purchases and the source
// budgets themselves are never copied.
func (s *RolloverService) Rollover(ctx context.Context, p RolloverParams) (core.Dataset, error) {
	var created core.Dataset
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		if p.SourceDatasetID != "" {
			if _, err := q.GetDataset(ctx, p.SourceDatasetID); err != nil {
				return err
			}
		}

		var err error
		created, err = q.CreateDataset(ctx, uuid.NewString(), p.Name)
		if err != nil {
			return err
		}

		if p.SourceDatasetID == "" {
			return nil
		}

		if p.CarryMembers {
			members, err := q.ListMembers(ctx, p.SourceDatasetID)
			if err != nil {
				return err
			}
			for _, m := range members {
				if _, err := q.CreateMember(ctx, created.ID, m.Name); err != nil {
					return err
				}
			}
		}

		// The remainder is computed per source budget and clamped at 0
		// so an overspent budget never eats into the others.
		budgets, err := q.ListBudgets(ctx, p.SourceDatasetID)
		if err != nil {
			return err
		}
		var carryOver float64
		for _, b := range budgets {
			spent, err := q.SumActualExpenses(ctx, b.ID)
			if err != nil {
				return err
			}
			if remaining := b.TotalAmount - spent; remaining > 0 {
				carryOver += remaining
			}
		}

		if p.CarryBudget && carryOver > 0 {
			_, err := q.CreateBudget(ctx, storage.CreateBudgetParams{
				ID:          uuid.NewString(),
				DatasetID:   created.ID,
				Name:        core.CarryOverBudgetName,
				TotalAmount: carryOver,
				Unit:        core.DefaultUnit,
				Description: fmt.Sprintf("旧データセット %s からの繰り越し分です。", p.SourceDatasetID),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Dataset{}, err
	}

	slog.InfoContext(ctx, "Rolled over dataset",
		"source_id", p.SourceDatasetID, "new_id", created.ID, "name", created.Name)
	return created, nil
}
