package core

import (
	"errors"
	"strings"
	"time"
)

// Purchase categories. Anything unrecognized is folded into CategoryOther.
const (
	CategoryFixed  = "固定費"
	CategoryTravel = "旅費"
	CategoryOther  = "その他"
)

// Purchase statuses, in workflow order.
const (
	StatusDrafted   = "書いただけ"
	StatusEstimated = "見積済み"
	StatusShopping  = "買い物中"
	StatusPurchased = "購入済み"
	StatusNotBuying = "購入しない"
)

// DefaultUnit is a display label only; no conversion happens anywhere.
const DefaultUnit = "JPY"

// DefaultPriority is used when a purchase carries no explicit priority.
const DefaultPriority = 3

// CarryOverBudgetName is the single consolidated budget created by a
// dataset rollover.
const CarryOverBudgetName = "前年度繰越"

type (
	// Dataset is an isolated budgeting period/project scope. Members,
	// budgets and purchases reference it by id and are cascade-deleted
	// with it.
	Dataset struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
	}

	Member struct {
		ID        int64  `json:"id"`
		DatasetID string `json:"dataset_id"`
		Name      string `json:"name"`
	}

	// Budget is a named pool of money. Its allocation is consumed by
	// assignments (planned spend) and actual expenses (settled spend);
	// the two are tracked independently and never reconciled against
	// each other.
	Budget struct {
		ID          string  `json:"id"`
		DatasetID   string  `json:"dataset_id"`
		Name        string  `json:"name"`
		TotalAmount float64 `json:"total_amount"`
		Unit        string  `json:"unit"`
		Description string  `json:"description,omitempty"`
	}

	// Purchase is a planned or completed spending item. MemberName is
	// free text rather than a Member foreign key so attribution survives
	// member renames and deletions.
	Purchase struct {
		ID         int64   `json:"id"`
		DatasetID  string  `json:"dataset_id"`
		MemberName string  `json:"member_name,omitempty"`
		Category   string  `json:"category"`
		ItemName   string  `json:"item_name"`
		Amount     float64 `json:"amount"`
		Unit       string  `json:"unit"`
		Status     string  `json:"status"`
		Priority   int     `json:"priority"`
		Note       string  `json:"note,omitempty"`

		Assignments []BudgetAssignment `json:"assignments"`
	}

	// BudgetAssignment charges a portion of one purchase against one
	// budget. The amounts of a purchase's assignments are not required
	// to sum to the purchase amount; the shortfall is the "unassigned"
	// figure on the dashboard.
	BudgetAssignment struct {
		ID         int64   `json:"id"`
		PurchaseID int64   `json:"purchase_id"`
		BudgetID   string  `json:"budget_id"`
		Amount     float64 `json:"amount"`
	}

	// ActualExpense is a confirmed, settled expenditure against a budget,
	// independent of any purchase or assignment.
	ActualExpense struct {
		ID       int64   `json:"id"`
		BudgetID string  `json:"budget_id"`
		ItemName string  `json:"item_name"`
		Amount   float64 `json:"amount"`
		Unit     string  `json:"unit"`
	}

	// ImportSetting stores a budget's actual-expense CSV column mapping.
	// At most one per budget: the budget id is the primary key.
	ImportSetting struct {
		BudgetID    string `json:"budget_id"`
		MappingJSON string `json:"mapping_json"`
	}

	// PurchaseImportSetting stores a dataset's purchase CSV column
	// mapping. At most one per dataset.
	PurchaseImportSetting struct {
		DatasetID   string `json:"dataset_id"`
		MappingJSON string `json:"mapping_json"`
	}
)

// AssignmentInput is the caller-supplied portion of a new assignment.
type AssignmentInput struct {
	BudgetID string  `json:"budget_id"`
	Amount   float64 `json:"amount"`
}

// PurchaseInput carries everything needed to create one purchase,
// including its initial assignments.
type PurchaseInput struct {
	DatasetID  string  `json:"dataset_id"`
	MemberName string  `json:"member_name"`
	Category   string  `json:"category"`
	ItemName   string  `json:"item_name"`
	Amount     float64 `json:"amount"`
	Unit       string  `json:"unit"`
	Status     string  `json:"status"`
	Priority   int     `json:"priority"`
	Note       string  `json:"note"`

	Assignments []AssignmentInput `json:"assignments"`
}

var (
	ErrEmptyName     = errors.New("empty name")
	ErrEmptyItemName = errors.New("empty item name")
)

// Normalize fills the enumerated and defaulted fields in place so that
// every stored purchase holds exactly one category and one status from
// the fixed sets.
func (p *PurchaseInput) Normalize() {
	p.ItemName = strings.TrimSpace(p.ItemName)
	p.MemberName = strings.TrimSpace(p.MemberName)
	if p.Category == "" {
		p.Category = CategoryOther
	}
	if p.Status == "" {
		p.Status = StatusDrafted
	}
	if p.Unit == "" {
		p.Unit = DefaultUnit
	}
	if p.Priority == 0 {
		p.Priority = DefaultPriority
	}
}

func (p *PurchaseInput) Validate() error {
	if strings.TrimSpace(p.ItemName) == "" {
		return ErrEmptyItemName
	}
	return nil
}

// ValidStatus reports whether s is one of the five workflow statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusDrafted, StatusEstimated, StatusShopping, StatusPurchased, StatusNotBuying:
		return true
	}
	return false
}
