package services

import (
	"context"
	"errors"
	"testing"

	"kakeibo/internal/core"
)

// Mirrors the canonical merge scenario: a purchase assigned on both
// sides must end up with exactly one summed assignment on the target.
func TestMergeCombinesBudgets(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	svc := NewMergeService(repo)

	mustCreateDataset(t, repo, "ds-1")
	source := mustCreateBudget(t, repo, "src", "ds-1", "旅行", 5000)
	target := mustCreateBudget(t, repo, "tgt", "ds-1", "食費", 10000)

	shared := mustCreatePurchase(t, repo, "ds-1", "共有品", 2000, "", []core.AssignmentInput{
		{BudgetID: source.ID, Amount: 1500},
		{BudgetID: target.ID, Amount: 500},
	})
	moved := mustCreatePurchase(t, repo, "ds-1", "移動品", 800, "", []core.AssignmentInput{
		{BudgetID: source.ID, Amount: 800},
	})
	mustCreateExpense(t, repo, source.ID, 300)

	merged, err := svc.Merge(ctx, source.ID, target.ID)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged.TotalAmount != 15000 {
		t.Errorf("total = %v, want 15000", merged.TotalAmount)
	}

	if _, err := repo.GetBudget(ctx, source.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("source budget still exists: %v", err)
	}

	asgns, err := repo.ListAssignmentsByBudget(ctx, target.ID)
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	if len(asgns) != 2 {
		t.Fatalf("expected 2 assignments on target, got %d", len(asgns))
	}
	byPurchase := make(map[int64]float64)
	for _, a := range asgns {
		byPurchase[a.PurchaseID] += a.Amount
	}
	if byPurchase[shared.ID] != 2000 {
		t.Errorf("shared purchase assignment = %v, want 2000", byPurchase[shared.ID])
	}
	if byPurchase[moved.ID] != 800 {
		t.Errorf("moved purchase assignment = %v, want 800", byPurchase[moved.ID])
	}

	sum, err := repo.SumActualExpenses(ctx, target.ID)
	if err != nil {
		t.Fatalf("sum actual expenses: %v", err)
	}
	if sum != 300 {
		t.Errorf("actual expenses on target = %v, want 300", sum)
	}
}

// A purchase can carry several assignments naming the same budget; a
// merge must still collapse them to one row per (budget, purchase) pair.
func TestMergeCollapsesDuplicateSourceAssignments(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	svc := NewMergeService(repo)

	mustCreateDataset(t, repo, "ds-1")
	source := mustCreateBudget(t, repo, "src", "ds-1", "旅行", 5000)
	target := mustCreateBudget(t, repo, "tgt", "ds-1", "食費", 10000)

	split := mustCreatePurchase(t, repo, "ds-1", "分割品", 300, "", []core.AssignmentInput{
		{BudgetID: source.ID, Amount: 100},
		{BudgetID: source.ID, Amount: 200},
	})

	if _, err := svc.Merge(ctx, source.ID, target.ID); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	asgns, err := repo.ListAssignmentsByBudget(ctx, target.ID)
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	if len(asgns) != 1 {
		t.Fatalf("expected 1 assignment on target, got %d: %+v", len(asgns), asgns)
	}
	if asgns[0].PurchaseID != split.ID || asgns[0].Amount != 300 {
		t.Errorf("assignment = %+v, want purchase %d with amount 300", asgns[0], split.ID)
	}
}

func TestMergeCopiesImportSetting(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	svc := NewMergeService(repo)

	mustCreateDataset(t, repo, "ds-1")
	source := mustCreateBudget(t, repo, "src", "ds-1", "a", 100)
	target := mustCreateBudget(t, repo, "tgt", "ds-1", "b", 100)
	if _, err := repo.SaveImportSetting(ctx, source.ID, `{"item_name":"品名","amount":"金額"}`); err != nil {
		t.Fatalf("save setting: %v", err)
	}

	if _, err := svc.Merge(ctx, source.ID, target.ID); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	s, err := repo.GetImportSetting(ctx, target.ID)
	if err != nil {
		t.Fatalf("target should have inherited the setting: %v", err)
	}
	if s.MappingJSON != `{"item_name":"品名","amount":"金額"}` {
		t.Errorf("mapping = %q", s.MappingJSON)
	}
}

func TestMergeKeepsTargetImportSetting(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	svc := NewMergeService(repo)

	mustCreateDataset(t, repo, "ds-1")
	source := mustCreateBudget(t, repo, "src", "ds-1", "a", 100)
	target := mustCreateBudget(t, repo, "tgt", "ds-1", "b", 100)
	repo.SaveImportSetting(ctx, source.ID, `{"item_name":"source"}`)
	repo.SaveImportSetting(ctx, target.ID, `{"item_name":"target"}`)

	if _, err := svc.Merge(ctx, source.ID, target.ID); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	s, _ := repo.GetImportSetting(ctx, target.ID)
	if s.MappingJSON != `{"item_name":"target"}` {
		t.Errorf("target setting was overwritten: %q", s.MappingJSON)
	}
}

func TestMergeRejectsCrossDataset(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	svc := NewMergeService(repo)

	mustCreateDataset(t, repo, "ds-1")
	mustCreateDataset(t, repo, "ds-2")
	source := mustCreateBudget(t, repo, "src", "ds-1", "a", 100)
	target := mustCreateBudget(t, repo, "tgt", "ds-2", "b", 200)

	_, err := svc.Merge(ctx, source.ID, target.ID)
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// Nothing may have been applied.
	b, _ := repo.GetBudget(ctx, target.ID)
	if b.TotalAmount != 200 {
		t.Errorf("target total changed: %v", b.TotalAmount)
	}
	if _, err := repo.GetBudget(ctx, source.ID); err != nil {
		t.Errorf("source should survive a rejected merge: %v", err)
	}
}

func TestMergeUnknownBudget(t *testing.T) {
	repo := openTestRepo(t)
	svc := NewMergeService(repo)

	mustCreateDataset(t, repo, "ds-1")
	b := mustCreateBudget(t, repo, "b-1", "ds-1", "a", 100)

	if _, err := svc.Merge(context.Background(), "missing", b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing source, got %v", err)
	}
	if _, err := svc.Merge(context.Background(), b.ID, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing target, got %v", err)
	}
}
