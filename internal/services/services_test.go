package services

import (
	"context"
	"path/filepath"
	"testing"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

func openTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCreateDataset(t *testing.T, repo *storage.Repository, id string) core.Dataset {
	t.Helper()
	d, err := repo.CreateDataset(context.Background(), id, "dataset "+id)
	if err != nil {
		t.Fatalf("create dataset: %v", err)
	}
	return d
}

func mustCreateBudget(t *testing.T, repo *storage.Repository, id, datasetID, name string, total float64) core.Budget {
	t.Helper()
	b, err := repo.CreateBudget(context.Background(), storage.CreateBudgetParams{
		ID: id, DatasetID: datasetID, Name: name, TotalAmount: total,
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	return b
}

func mustCreatePurchase(t *testing.T, repo *storage.Repository, datasetID, item string, amount float64, status string, asgns []core.AssignmentInput) core.Purchase {
	t.Helper()
	in := core.PurchaseInput{
		DatasetID:   datasetID,
		ItemName:    item,
		Amount:      amount,
		Status:      status,
		Assignments: asgns,
	}
	in.Normalize()
	p, err := repo.CreatePurchase(context.Background(), in)
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	return p
}

func mustCreateExpense(t *testing.T, repo *storage.Repository, budgetID string, amount float64) {
	t.Helper()
	_, err := repo.CreateActualExpense(context.Background(), budgetID, storage.ActualExpenseParams{
		ItemName: "expense", Amount: amount,
	})
	if err != nil {
		t.Fatalf("create actual expense: %v", err)
	}
}
