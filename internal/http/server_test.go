package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.Repository) {
	t.Helper()
	repo, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	s := NewServer(":0", repo, 10<<20)
	t.Cleanup(func() { s.rateLimiter.stop() })
	return s, repo
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestDatasetEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/datasets", map[string]string{"name": "2026年度"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[core.Dataset](t, rec)
	if created.ID == "" || created.Name != "2026年度" {
		t.Fatalf("created = %+v", created)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/datasets", nil)
	list := decodeBody[[]core.Dataset](t, rec)
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/datasets/"+created.ID, map[string]string{"name": "renamed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/datasets/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/datasets/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d, want 404", rec.Code)
	}
}

func TestCreateDatasetRejectsBlankName(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/datasets", map[string]string{"name": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPurchaseEndpoints(t *testing.T) {
	s, repo := newTestServer(t)
	ctx := context.Background()

	if _, err := repo.CreateDataset(ctx, "ds-1", "test"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateBudget(ctx, storage.CreateBudgetParams{ID: "b-1", DatasetID: "ds-1", Name: "食費", TotalAmount: 50000}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, s, http.MethodPost, "/api/purchases", core.PurchaseInput{
		DatasetID: "ds-1",
		ItemName:  "米",
		Amount:    3000,
		Assignments: []core.AssignmentInput{
			{BudgetID: "b-1", Amount: 3000},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	p := decodeBody[core.Purchase](t, rec)
	if p.Status != core.StatusDrafted || p.Priority != core.DefaultPriority {
		t.Errorf("defaults not applied: %+v", p)
	}
	if len(p.Assignments) != 1 {
		t.Fatalf("assignments = %+v", p.Assignments)
	}

	// Status patch via query parameter.
	rec = doJSON(t, s, http.MethodPatch,
		fmt.Sprintf("/api/purchases/%d/status?status=%s", p.ID, "購入済み"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", rec.Code, rec.Body.String())
	}
	patched := decodeBody[core.Purchase](t, rec)
	if patched.Status != core.StatusPurchased {
		t.Errorf("status = %q", patched.Status)
	}

	rec = doJSON(t, s, http.MethodPatch,
		fmt.Sprintf("/api/purchases/%d/status?status=nonsense", p.ID), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status should be rejected, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/purchases?dataset_id=ds-1", nil)
	list := decodeBody[[]core.Purchase](t, rec)
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}
}

func TestCreatePurchaseRequiresItemName(t *testing.T) {
	s, repo := newTestServer(t)
	repo.CreateDataset(context.Background(), "ds-1", "test")

	rec := doJSON(t, s, http.MethodPost, "/api/purchases", core.PurchaseInput{
		DatasetID: "ds-1",
		ItemName:  "   ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBulkImportPurchases(t *testing.T) {
	s, repo := newTestServer(t)
	repo.CreateDataset(context.Background(), "ds-1", "test")

	rec := doJSON(t, s, http.MethodPost, "/api/purchases/import?dataset_id=ds-1", []core.PurchaseInput{
		{ItemName: "米", Amount: 3000},
		{ItemName: "肉", Amount: 2000},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[[]core.Purchase](t, rec)
	if len(created) != 2 {
		t.Fatalf("created = %+v", created)
	}
}

func TestMergeEndpoint(t *testing.T) {
	s, repo := newTestServer(t)
	ctx := context.Background()

	repo.CreateDataset(ctx, "ds-1", "a")
	repo.CreateDataset(ctx, "ds-2", "b")
	repo.CreateBudget(ctx, storage.CreateBudgetParams{ID: "src", DatasetID: "ds-1", Name: "旅行", TotalAmount: 5000})
	repo.CreateBudget(ctx, storage.CreateBudgetParams{ID: "tgt", DatasetID: "ds-1", Name: "食費", TotalAmount: 10000})
	repo.CreateBudget(ctx, storage.CreateBudgetParams{ID: "other", DatasetID: "ds-2", Name: "別", TotalAmount: 100})

	rec := doJSON(t, s, http.MethodPost, "/api/budgets/merge", map[string]string{
		"source_budget_id": "src",
		"target_budget_id": "other",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("cross-dataset merge status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/budgets/merge", map[string]string{
		"source_budget_id": "src",
		"target_budget_id": "tgt",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("merge status = %d: %s", rec.Code, rec.Body.String())
	}
	merged := decodeBody[core.Budget](t, rec)
	if merged.TotalAmount != 15000 {
		t.Errorf("total = %v, want 15000", merged.TotalAmount)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/budgets/merge", map[string]string{
		"source_budget_id": "missing",
		"target_budget_id": "tgt",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown budget merge status = %d, want 404", rec.Code)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	s, repo := newTestServer(t)
	ctx := context.Background()

	repo.CreateDataset(ctx, "ds-1", "test")
	repo.CreateBudget(ctx, storage.CreateBudgetParams{ID: "b-1", DatasetID: "ds-1", Name: "食費", TotalAmount: 10000})
	in := core.PurchaseInput{
		DatasetID: "ds-1", ItemName: "米", Amount: 6000, Status: core.StatusEstimated,
		Assignments: []core.AssignmentInput{{BudgetID: "b-1", Amount: 6000}},
	}
	in.Normalize()
	repo.CreatePurchase(ctx, in)

	rec := doJSON(t, s, http.MethodGet, "/api/dashboard?dataset_id=ds-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	sum := decodeBody[core.DashboardSummary](t, rec)
	if len(sum.Budgets) != 1 || sum.Budgets[0].PlannedTotal != 6000 {
		t.Errorf("summary = %+v", sum)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/dashboard", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing dataset_id status = %d, want 400", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/dashboard?dataset_id=missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown dataset status = %d, want 404", rec.Code)
	}
}

func TestImportSettingEndpoints(t *testing.T) {
	s, repo := newTestServer(t)
	ctx := context.Background()

	repo.CreateDataset(ctx, "ds-1", "test")
	repo.CreateBudget(ctx, storage.CreateBudgetParams{ID: "b-1", DatasetID: "ds-1", Name: "食費", TotalAmount: 1000})

	rec := doJSON(t, s, http.MethodGet, "/api/budgets/b-1/import-setting", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unset mapping status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/budgets/b-1/import-setting", map[string]string{
		"mapping_json": `{"item_name":"品名","amount":"金額"}`,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/budgets/b-1/import-setting", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	setting := decodeBody[core.ImportSetting](t, rec)
	if setting.BudgetID != "b-1" {
		t.Errorf("setting = %+v", setting)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/datasets/ds-1/purchase-import-setting", map[string]string{
		"mapping_json": `{"item_name":"品名","amount":"金額"}`,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("save purchase setting status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/datasets/no-such/purchase-import-setting", map[string]string{
		"mapping_json": `{"item_name":"品名","amount":"金額"}`,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("save for unknown dataset status = %d, want 404", rec.Code)
	}
}

func TestCSVImportAndExportEndpoints(t *testing.T) {
	s, repo := newTestServer(t)
	ctx := context.Background()

	repo.CreateDataset(ctx, "ds-1", "test")
	repo.SavePurchaseImportSetting(ctx, "ds-1", `{"item_name":"アイテム名","amount":"金額"}`)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "purchases.csv")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(fw, "アイテム名,金額\n米,3000\n肉,\"1,200\"\n")
	mw.WriteField("overwrite", "false")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/purchases/import-csv?dataset_id=ds-1", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body.String())
	}
	result := decodeBody[importResponse](t, rec)
	if result.Count != 2 {
		t.Errorf("count = %d, want 2", result.Count)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/purchases/export-csv?dataset_id=ds-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "米") || !strings.Contains(rec.Body.String(), "1200") {
		t.Errorf("export body = %q", rec.Body.String())
	}
}

func TestActualExpenseEndpoints(t *testing.T) {
	s, repo := newTestServer(t)
	ctx := context.Background()

	repo.CreateDataset(ctx, "ds-1", "test")
	repo.CreateBudget(ctx, storage.CreateBudgetParams{ID: "b-1", DatasetID: "ds-1", Name: "食費", TotalAmount: 1000})

	rec := doJSON(t, s, http.MethodPost, "/api/budgets/b-1/actual-expenses", map[string]any{
		"item_name": "米", "amount": 2980,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	e := decodeBody[core.ActualExpense](t, rec)
	if e.Unit != core.DefaultUnit || e.Amount != 2980 {
		t.Errorf("expense = %+v", e)
	}

	rec = doJSON(t, s, http.MethodPut, fmt.Sprintf("/api/actual-expenses/%d", e.ID), map[string]any{
		"item_name": "米", "amount": 3000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/budgets/b-1/actual-expenses", nil)
	list := decodeBody[[]core.ActualExpense](t, rec)
	if len(list) != 1 || list[0].Amount != 3000 {
		t.Errorf("list = %+v", list)
	}

	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/actual-expenses/%d", e.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/actual-expenses/%d", e.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d, want 404", rec.Code)
	}
}

func TestRolloverEndpoint(t *testing.T) {
	s, repo := newTestServer(t)
	ctx := context.Background()

	repo.CreateDataset(ctx, "old", "old year")
	repo.CreateBudget(ctx, storage.CreateBudgetParams{ID: "b-1", DatasetID: "old", Name: "食費", TotalAmount: 10000})

	rec := doJSON(t, s, http.MethodPost, "/api/datasets/rollover", map[string]any{
		"name":              "new year",
		"source_dataset_id": "old",
		"carry_budget":      true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[core.Dataset](t, rec)

	budgets, err := repo.ListBudgets(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(budgets) != 1 || budgets[0].Name != core.CarryOverBudgetName {
		t.Errorf("budgets = %+v", budgets)
	}
}
