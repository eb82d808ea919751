package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

// ExportService writes a dataset's purchases back out as CSV in the
// same column layout the import mapping targets.
type ExportService struct {
	repo *storage.Repository
}

func NewExportService(repo *storage.Repository) *ExportService {
	return &ExportService{repo: repo}
}

var exportHeader = []string{
	"担当者", "区分", "アイテム名", "金額", "単位", "ステータス", "優先度", "備考", "対応お財布ID", "割当金額",
}

// ExportPurchases streams the dataset's purchases as UTF-8 CSV with a
// leading byte-order mark so spreadsheet tools pick up the encoding.
// A purchase with assignments produces one row per assignment; one
// without produces a single row with empty assignment columns.
func (s *ExportService) ExportPurchases(ctx context.Context, datasetID string, w io.Writer) error {
	if _, err := s.repo.GetDataset(ctx, datasetID); err != nil {
		return err
	}
	purchases, err := s.repo.ListPurchases(ctx, datasetID)
	if err != nil {
		return fmt.Errorf("load purchases: %w", err)
	}

	if _, err := io.WriteString(w, "\uFEFF"); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, p := range purchases {
		if len(p.Assignments) == 0 {
			if err := cw.Write(exportRow(p, nil)); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
			continue
		}
		for i := range p.Assignments {
			if err := cw.Write(exportRow(p, &p.Assignments[i])); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func exportRow(p core.Purchase, a *core.BudgetAssignment) []string {
	row := []string{
		p.MemberName,
		p.Category,
		p.ItemName,
		formatAmount(p.Amount),
		p.Unit,
		p.Status,
		strconv.Itoa(p.Priority),
		p.Note,
		"",
		"",
	}
	if a != nil {
		row[8] = a.BudgetID
		row[9] = formatAmount(a.Amount)
	}
	return row
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
