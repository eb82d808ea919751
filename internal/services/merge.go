package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

// MergeService folds one budget into another within the same dataset.
type MergeService struct {
	repo *storage.Repository
}

func NewMergeService(repo *storage.Repository) *MergeService {
	return &MergeService{repo: repo}
}

// Merge moves everything owned by the source budget onto the target and
// deletes the source, all in one transaction:
//
//   - target's total grows by source's total
//   - source assignments are re-pointed to target, except where target
//     already charges the same purchase, in which case the amounts are
//     summed into the existing target assignment
//   - actual expenses are re-pointed in bulk
//   - target inherits source's import setting if it has none of its own
//
// Both budgets must belong to the same dataset or the merge fails with
// ErrConflict.
func (s *MergeService) Merge(ctx context.Context, sourceID, targetID string) (core.Budget, error) {
	var merged core.Budget
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		source, err := q.GetBudget(ctx, sourceID)
		if err != nil {
			return err
		}
		target, err := q.GetBudget(ctx, targetID)
		if err != nil {
			return err
		}
		if source.DatasetID != target.DatasetID {
			return fmt.Errorf("budgets %s and %s belong to different datasets: %w",
				sourceID, targetID, core.ErrConflict)
		}

		target.TotalAmount += source.TotalAmount
		if err := q.SetBudgetTotal(ctx, targetID, target.TotalAmount); err != nil {
			return err
		}

		targetAsgns, err := q.ListAssignmentsByBudget(ctx, targetID)
		if err != nil {
			return err
		}
		byPurchase := make(map[int64]core.BudgetAssignment, len(targetAsgns))
		for _, a := range targetAsgns {
			byPurchase[a.PurchaseID] = a
		}

		sourceAsgns, err := q.ListAssignmentsByBudget(ctx, sourceID)
		if err != nil {
			return err
		}
		for _, a := range sourceAsgns {
			existing, ok := byPurchase[a.PurchaseID]
			if ok {
				// One assignment per (budget, purchase) pair: sum into
				// the existing row and drop the source row.
				existing.Amount += a.Amount
				if err := q.SetAssignmentAmount(ctx, existing.ID, existing.Amount); err != nil {
					return err
				}
				if err := q.DeleteAssignment(ctx, a.ID); err != nil {
					return err
				}
				byPurchase[a.PurchaseID] = existing
				continue
			}
			if err := q.RepointAssignment(ctx, a.ID, targetID); err != nil {
				return err
			}
			a.BudgetID = targetID
			byPurchase[a.PurchaseID] = a
		}

		if err := q.RepointActualExpenses(ctx, sourceID, targetID); err != nil {
			return err
		}

		// The setting's primary key is the budget id, so it has to be
		// copied before the source cascade takes it away.
		if _, err := q.GetImportSetting(ctx, targetID); errors.Is(err, core.ErrMappingNotFound) {
			sourceSetting, err := q.GetImportSetting(ctx, sourceID)
			if err == nil {
				if _, err := q.SaveImportSetting(ctx, targetID, sourceSetting.MappingJSON); err != nil {
					return err
				}
			} else if !errors.Is(err, core.ErrMappingNotFound) {
				return err
			}
		} else if err != nil {
			return err
		}

		if err := q.DeleteBudget(ctx, sourceID); err != nil {
			return err
		}

		merged = target
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Merged budgets",
		"source_id", sourceID, "target_id", targetID, "new_total", merged.TotalAmount)
	return merged, nil
}
