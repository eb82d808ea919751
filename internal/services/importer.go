package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

// ImportService turns mapped CSV uploads into purchases or actual
// expenses.
type ImportService struct {
	repo *storage.Repository
}

func NewImportService(repo *storage.Repository) *ImportService {
	return &ImportService{repo: repo}
}

// Recognized mapping keys for purchase import. Only item_name and
// amount are mandatory.
type purchaseMapping struct {
	ItemName   string `json:"item_name"`
	Amount     string `json:"amount"`
	MemberName string `json:"member_name"`
	Category   string `json:"category"`
	Status     string `json:"status"`
	Priority   string `json:"priority"`
	Note       string `json:"note"`
	BudgetID   string `json:"budget_id"`
	AsgnAmount string `json:"asgn_amount"`
}

type expenseMapping struct {
	ItemName string `json:"item_name"`
	Amount   string `json:"amount"`
}

// ImportPurchases reads a mapped CSV stream and bulk-creates purchases
// for the dataset, returning how many rows were inserted. Rows without
// an item name are skipped; unparseable amounts fall back to 0. With
// overwrite, the dataset's existing purchases are deleted and that
// delete is committed before any new row is read.
func (s *ImportService) ImportPurchases(ctx context.Context, datasetID string, r io.Reader, overwrite bool) (int, error) {
	if _, err := s.repo.GetDataset(ctx, datasetID); err != nil {
		return 0, err
	}

	setting, err := s.repo.GetPurchaseImportSetting(ctx, datasetID)
	if err != nil {
		return 0, err
	}
	var mapping purchaseMapping
	if err := json.Unmarshal([]byte(setting.MappingJSON), &mapping); err != nil {
		return 0, fmt.Errorf("parse mapping: %w", core.ErrInvalidMapping)
	}
	if mapping.ItemName == "" || mapping.Amount == "" {
		return 0, fmt.Errorf("item_name and amount columns are required: %w", core.ErrInvalidMapping)
	}

	// The delete is committed on its own so the insert below never sees
	// (or resurrects) the rows it replaced.
	if overwrite {
		err := s.repo.InTx(ctx, func(q *storage.Queries) error {
			return q.DeletePurchasesByDataset(ctx, datasetID)
		})
		if err != nil {
			return 0, err
		}
	}

	rows, err := readMappedCSV(r)
	if err != nil {
		return 0, fmt.Errorf("read csv: %w", err)
	}

	var inputs []core.PurchaseInput
	for _, row := range rows {
		itemName := strings.TrimSpace(row[mapping.ItemName])
		if itemName == "" {
			continue
		}

		in := core.PurchaseInput{
			DatasetID:  datasetID,
			ItemName:   itemName,
			Amount:     parseAmount(row[mapping.Amount]),
			MemberName: cell(row, mapping.MemberName),
			Category:   core.NormalizeCategory(cell(row, mapping.Category)),
			Status:     core.NormalizeStatus(cell(row, mapping.Status)),
			Priority:   core.NormalizePriority(cell(row, mapping.Priority)),
			Note:       cell(row, mapping.Note),
			Unit:       core.DefaultUnit,
		}

		if mapping.BudgetID != "" && mapping.AsgnAmount != "" {
			budgetID := cell(row, mapping.BudgetID)
			raw := cell(row, mapping.AsgnAmount)
			if budgetID != "" && raw != "" {
				if amount, ok := tryParseAmount(raw); ok {
					in.Assignments = []core.AssignmentInput{{BudgetID: budgetID, Amount: amount}}
				}
			}
		}
		inputs = append(inputs, in)
	}

	err = s.repo.InTx(ctx, func(q *storage.Queries) error {
		for _, in := range inputs {
			if _, err := q.CreatePurchase(ctx, in); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("insert purchases: %w", err)
	}

	slog.InfoContext(ctx, "Imported purchases",
		"dataset_id", datasetID, "count", len(inputs), "overwrite", overwrite)
	return len(inputs), nil
}

// ImportActualExpenses reads a mapped CSV stream and bulk-creates
// actual expenses for the budget. Only rows with both the item-name and
// amount cells present are taken; an unparseable amount fails the whole
// import. With overwrite, the budget's existing expenses are replaced
// in the same transaction.
func (s *ImportService) ImportActualExpenses(ctx context.Context, budgetID string, r io.Reader, overwrite bool) (int, error) {
	if _, err := s.repo.GetBudget(ctx, budgetID); err != nil {
		return 0, err
	}

	setting, err := s.repo.GetImportSetting(ctx, budgetID)
	if err != nil {
		return 0, err
	}
	var mapping expenseMapping
	if err := json.Unmarshal([]byte(setting.MappingJSON), &mapping); err != nil {
		return 0, fmt.Errorf("parse mapping: %w", core.ErrInvalidMapping)
	}
	if mapping.ItemName == "" || mapping.Amount == "" {
		return 0, fmt.Errorf("item_name and amount columns are required: %w", core.ErrInvalidMapping)
	}

	rows, err := readMappedCSV(r)
	if err != nil {
		return 0, fmt.Errorf("read csv: %w", err)
	}

	var expenses []storage.ActualExpenseParams
	for _, row := range rows {
		itemName := row[mapping.ItemName]
		raw := row[mapping.Amount]
		if itemName == "" || raw == "" {
			continue
		}
		amount, ok := tryParseAmount(raw)
		if !ok {
			return 0, fmt.Errorf("parse amount %q for %q", raw, itemName)
		}
		expenses = append(expenses, storage.ActualExpenseParams{
			ItemName: itemName,
			Amount:   amount,
			Unit:     core.DefaultUnit,
		})
	}

	err = s.repo.InTx(ctx, func(q *storage.Queries) error {
		if overwrite {
			if err := q.DeleteActualExpensesByBudget(ctx, budgetID); err != nil {
				return err
			}
		}
		for _, e := range expenses {
			if _, err := q.CreateActualExpense(ctx, budgetID, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("insert actual expenses: %w", err)
	}

	slog.InfoContext(ctx, "Imported actual expenses",
		"budget_id", budgetID, "count", len(expenses), "overwrite", overwrite)
	return len(expenses), nil
}

// readMappedCSV reads a header row plus data rows and returns each data
// row keyed by header. Header tokens lose surrounding whitespace and
// any byte-order-mark artifact left behind by spreadsheet exporters.
func readMappedCSV(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.ReplaceAll(h, "\uFEFF", ""))
	}

	var rows []map[string]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cell(row map[string]string, column string) string {
	if column == "" {
		return ""
	}
	return strings.TrimSpace(row[column])
}

// parseAmount strips thousands separators and parses a decimal,
// defaulting to 0 when the cell does not parse.
func parseAmount(raw string) float64 {
	v, _ := tryParseAmount(raw)
	return v
}

func tryParseAmount(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}
