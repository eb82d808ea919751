package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kakeibo/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every query can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries bundles all entity-level statements over one DBTX.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// --- Datasets ---

func (q *Queries) CreateDataset(ctx context.Context, id, name string) (core.Dataset, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO datasets (id, name) VALUES (?, ?) RETURNING id, name, created_at`,
		id, name)
	var d core.Dataset
	if err := row.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
		return core.Dataset{}, fmt.Errorf("create dataset: %w", err)
	}
	return d, nil
}

func (q *Queries) GetDataset(ctx context.Context, id string) (core.Dataset, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM datasets WHERE id = ?`, id)
	var d core.Dataset
	if err := row.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Dataset{}, fmt.Errorf("dataset %s: %w", id, core.ErrNotFound)
		}
		return core.Dataset{}, fmt.Errorf("get dataset: %w", err)
	}
	return d, nil
}

// ListDatasets returns all datasets, newest first.
func (q *Queries) ListDatasets(ctx context.Context) ([]core.Dataset, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM datasets ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []core.Dataset
	for rows.Next() {
		var d core.Dataset
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *Queries) RenameDataset(ctx context.Context, id, name string) (core.Dataset, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE datasets SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("rename dataset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Dataset{}, fmt.Errorf("dataset %s: %w", id, core.ErrNotFound)
	}
	return q.GetDataset(ctx, id)
}

func (q *Queries) DeleteDataset(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("dataset %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// --- Members ---

func (q *Queries) CreateMember(ctx context.Context, datasetID, name string) (core.Member, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO members (dataset_id, name) VALUES (?, ?) RETURNING id, dataset_id, name`,
		datasetID, name)
	var m core.Member
	if err := row.Scan(&m.ID, &m.DatasetID, &m.Name); err != nil {
		return core.Member{}, fmt.Errorf("create member: %w", err)
	}
	return m, nil
}

func (q *Queries) ListMembers(ctx context.Context, datasetID string) ([]core.Member, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, dataset_id, name FROM members WHERE dataset_id = ? ORDER BY id`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []core.Member
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.DatasetID, &m.Name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (q *Queries) RenameMember(ctx context.Context, id int64, name string) (core.Member, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE members SET name = ? WHERE id = ? RETURNING id, dataset_id, name`, name, id)
	var m core.Member
	if err := row.Scan(&m.ID, &m.DatasetID, &m.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Member{}, fmt.Errorf("member %d: %w", id, core.ErrNotFound)
		}
		return core.Member{}, fmt.Errorf("rename member: %w", err)
	}
	return m, nil
}

func (q *Queries) DeleteMember(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("member %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// --- Budgets ---

type CreateBudgetParams struct {
	ID          string
	DatasetID   string
	Name        string
	TotalAmount float64
	Unit        string
	Description string
}

func (q *Queries) CreateBudget(ctx context.Context, p CreateBudgetParams) (core.Budget, error) {
	if p.Unit == "" {
		p.Unit = core.DefaultUnit
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO budgets (id, dataset_id, name, total_amount, unit, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.DatasetID, p.Name, p.TotalAmount, p.Unit, nullable(p.Description))
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return q.GetBudget(ctx, p.ID)
}

func (q *Queries) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, dataset_id, name, total_amount, unit, description FROM budgets WHERE id = ?`, id)
	return scanBudget(row, id)
}

func scanBudget(row *sql.Row, id string) (core.Budget, error) {
	var b core.Budget
	var desc sql.NullString
	if err := row.Scan(&b.ID, &b.DatasetID, &b.Name, &b.TotalAmount, &b.Unit, &desc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Budget{}, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
		}
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	b.Description = desc.String
	return b, nil
}

func (q *Queries) ListBudgets(ctx context.Context, datasetID string) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, dataset_id, name, total_amount, unit, description
		 FROM budgets WHERE dataset_id = ? ORDER BY rowid`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		var desc sql.NullString
		if err := rows.Scan(&b.ID, &b.DatasetID, &b.Name, &b.TotalAmount, &b.Unit, &desc); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Description = desc.String
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBudgetParams carries optional fields; nil means "leave as is".
type UpdateBudgetParams struct {
	Name        *string  `json:"name"`
	TotalAmount *float64 `json:"total_amount"`
	Unit        *string  `json:"unit"`
	Description *string  `json:"description"`
}

func (q *Queries) UpdateBudget(ctx context.Context, id string, p UpdateBudgetParams) (core.Budget, error) {
	b, err := q.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.TotalAmount != nil {
		b.TotalAmount = *p.TotalAmount
	}
	if p.Unit != nil {
		b.Unit = *p.Unit
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	_, err = q.db.ExecContext(ctx,
		`UPDATE budgets SET name = ?, total_amount = ?, unit = ?, description = ? WHERE id = ?`,
		b.Name, b.TotalAmount, b.Unit, nullable(b.Description), id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return b, nil
}

func (q *Queries) SetBudgetTotal(ctx context.Context, id string, total float64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE budgets SET total_amount = ? WHERE id = ?`, total, id)
	if err != nil {
		return fmt.Errorf("set budget total: %w", err)
	}
	return nil
}

func (q *Queries) DeleteBudget(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// --- Purchases ---

func (q *Queries) CreatePurchase(ctx context.Context, in core.PurchaseInput) (core.Purchase, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO purchases (dataset_id, member_name, category, item_name, amount, unit, status, priority, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		in.DatasetID, nullable(in.MemberName), in.Category, in.ItemName,
		in.Amount, in.Unit, in.Status, in.Priority, nullable(in.Note))
	var id int64
	if err := row.Scan(&id); err != nil {
		return core.Purchase{}, fmt.Errorf("create purchase: %w", err)
	}

	p := core.Purchase{
		ID:         id,
		DatasetID:  in.DatasetID,
		MemberName: in.MemberName,
		Category:   in.Category,
		ItemName:   in.ItemName,
		Amount:     in.Amount,
		Unit:       in.Unit,
		Status:     in.Status,
		Priority:   in.Priority,
		Note:       in.Note,
	}
	for _, a := range in.Assignments {
		asgn, err := q.CreateAssignment(ctx, id, a.BudgetID, a.Amount)
		if err != nil {
			return core.Purchase{}, err
		}
		p.Assignments = append(p.Assignments, asgn)
	}
	return p, nil
}

func (q *Queries) GetPurchase(ctx context.Context, id int64) (core.Purchase, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, dataset_id, member_name, category, item_name, amount, unit, status, priority, note
		 FROM purchases WHERE id = ?`, id)
	var p core.Purchase
	var member, note sql.NullString
	err := row.Scan(&p.ID, &p.DatasetID, &member, &p.Category, &p.ItemName,
		&p.Amount, &p.Unit, &p.Status, &p.Priority, &note)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Purchase{}, fmt.Errorf("purchase %d: %w", id, core.ErrNotFound)
		}
		return core.Purchase{}, fmt.Errorf("get purchase: %w", err)
	}
	p.MemberName = member.String
	p.Note = note.String

	p.Assignments, err = q.ListAssignmentsByPurchase(ctx, id)
	if err != nil {
		return core.Purchase{}, err
	}
	return p, nil
}

// ListPurchases returns a dataset's purchases with their assignments
// attached in one extra query.
func (q *Queries) ListPurchases(ctx context.Context, datasetID string) ([]core.Purchase, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, dataset_id, member_name, category, item_name, amount, unit, status, priority, note
		 FROM purchases WHERE dataset_id = ? ORDER BY id`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var out []core.Purchase
	index := make(map[int64]int)
	for rows.Next() {
		var p core.Purchase
		var member, note sql.NullString
		if err := rows.Scan(&p.ID, &p.DatasetID, &member, &p.Category, &p.ItemName,
			&p.Amount, &p.Unit, &p.Status, &p.Priority, &note); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		p.MemberName = member.String
		p.Note = note.String
		index[p.ID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	assignments, err := q.ListAssignmentsByDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		if i, ok := index[a.PurchaseID]; ok {
			out[i].Assignments = append(out[i].Assignments, a)
		}
	}
	return out, nil
}

// UpdatePurchaseParams carries optional fields; nil means "leave as is".
// A non-nil Assignments slice replaces all existing assignments.
type UpdatePurchaseParams struct {
	MemberName  *string                `json:"member_name"`
	Category    *string                `json:"category"`
	ItemName    *string                `json:"item_name"`
	Amount      *float64               `json:"amount"`
	Unit        *string                `json:"unit"`
	Status      *string                `json:"status"`
	Priority    *int                   `json:"priority"`
	Note        *string                `json:"note"`
	Assignments []core.AssignmentInput `json:"assignments"`
}

func (q *Queries) UpdatePurchase(ctx context.Context, id int64, p UpdatePurchaseParams) (core.Purchase, error) {
	cur, err := q.GetPurchase(ctx, id)
	if err != nil {
		return core.Purchase{}, err
	}
	if p.MemberName != nil {
		cur.MemberName = *p.MemberName
	}
	if p.Category != nil {
		cur.Category = *p.Category
	}
	if p.ItemName != nil {
		cur.ItemName = *p.ItemName
	}
	if p.Amount != nil {
		cur.Amount = *p.Amount
	}
	if p.Unit != nil {
		cur.Unit = *p.Unit
	}
	if p.Status != nil {
		cur.Status = *p.Status
	}
	if p.Priority != nil {
		cur.Priority = *p.Priority
	}
	if p.Note != nil {
		cur.Note = *p.Note
	}

	_, err = q.db.ExecContext(ctx,
		`UPDATE purchases SET member_name = ?, category = ?, item_name = ?, amount = ?,
		 unit = ?, status = ?, priority = ?, note = ? WHERE id = ?`,
		nullable(cur.MemberName), cur.Category, cur.ItemName, cur.Amount,
		cur.Unit, cur.Status, cur.Priority, nullable(cur.Note), id)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("update purchase: %w", err)
	}

	if p.Assignments != nil {
		if _, err := q.db.ExecContext(ctx,
			`DELETE FROM budget_assignments WHERE purchase_id = ?`, id); err != nil {
			return core.Purchase{}, fmt.Errorf("clear assignments: %w", err)
		}
		cur.Assignments = nil
		for _, a := range p.Assignments {
			asgn, err := q.CreateAssignment(ctx, id, a.BudgetID, a.Amount)
			if err != nil {
				return core.Purchase{}, err
			}
			cur.Assignments = append(cur.Assignments, asgn)
		}
	}
	return cur, nil
}

func (q *Queries) SetPurchaseStatus(ctx context.Context, id int64, status string) (core.Purchase, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE purchases SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("set purchase status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Purchase{}, fmt.Errorf("purchase %d: %w", id, core.ErrNotFound)
	}
	return q.GetPurchase(ctx, id)
}

func (q *Queries) DeletePurchase(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM purchases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete purchase: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("purchase %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// DeletePurchasesByDataset bulk-drops a dataset's purchases and their
// assignments. The assignment delete is explicit rather than relying on
// the cascade so the statement order is fixed.
func (q *Queries) DeletePurchasesByDataset(ctx context.Context, datasetID string) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM budget_assignments WHERE purchase_id IN
		   (SELECT id FROM purchases WHERE dataset_id = ?)`, datasetID)
	if err != nil {
		return fmt.Errorf("delete assignments by dataset: %w", err)
	}
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM purchases WHERE dataset_id = ?`, datasetID); err != nil {
		return fmt.Errorf("delete purchases by dataset: %w", err)
	}
	return nil
}

// --- Budget assignments ---

func (q *Queries) CreateAssignment(ctx context.Context, purchaseID int64, budgetID string, amount float64) (core.BudgetAssignment, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO budget_assignments (purchase_id, budget_id, amount) VALUES (?, ?, ?)
		 RETURNING id, purchase_id, budget_id, amount`,
		purchaseID, budgetID, amount)
	var a core.BudgetAssignment
	if err := row.Scan(&a.ID, &a.PurchaseID, &a.BudgetID, &a.Amount); err != nil {
		return core.BudgetAssignment{}, fmt.Errorf("create assignment: %w", err)
	}
	return a, nil
}

func scanAssignments(rows *sql.Rows) ([]core.BudgetAssignment, error) {
	defer rows.Close()
	var out []core.BudgetAssignment
	for rows.Next() {
		var a core.BudgetAssignment
		if err := rows.Scan(&a.ID, &a.PurchaseID, &a.BudgetID, &a.Amount); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *Queries) ListAssignmentsByPurchase(ctx context.Context, purchaseID int64) ([]core.BudgetAssignment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, purchase_id, budget_id, amount FROM budget_assignments
		 WHERE purchase_id = ? ORDER BY id`, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("list assignments by purchase: %w", err)
	}
	return scanAssignments(rows)
}

func (q *Queries) ListAssignmentsByBudget(ctx context.Context, budgetID string) ([]core.BudgetAssignment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, purchase_id, budget_id, amount FROM budget_assignments
		 WHERE budget_id = ? ORDER BY id`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list assignments by budget: %w", err)
	}
	return scanAssignments(rows)
}

func (q *Queries) ListAssignmentsByDataset(ctx context.Context, datasetID string) ([]core.BudgetAssignment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT a.id, a.purchase_id, a.budget_id, a.amount
		 FROM budget_assignments a
		 JOIN purchases p ON p.id = a.purchase_id
		 WHERE p.dataset_id = ? ORDER BY a.id`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("list assignments by dataset: %w", err)
	}
	return scanAssignments(rows)
}

func (q *Queries) SetAssignmentAmount(ctx context.Context, id int64, amount float64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE budget_assignments SET amount = ? WHERE id = ?`, amount, id)
	if err != nil {
		return fmt.Errorf("set assignment amount: %w", err)
	}
	return nil
}

// RepointAssignment moves an assignment to another budget, keeping the
// same row.
func (q *Queries) RepointAssignment(ctx context.Context, id int64, budgetID string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE budget_assignments SET budget_id = ? WHERE id = ?`, budgetID, id)
	if err != nil {
		return fmt.Errorf("repoint assignment: %w", err)
	}
	return nil
}

func (q *Queries) DeleteAssignment(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM budget_assignments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}

// --- Actual expenses ---

type ActualExpenseParams struct {
	ItemName string  `json:"item_name"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
}

func (q *Queries) CreateActualExpense(ctx context.Context, budgetID string, p ActualExpenseParams) (core.ActualExpense, error) {
	if p.Unit == "" {
		p.Unit = core.DefaultUnit
	}
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO actual_expenses (budget_id, item_name, amount, unit) VALUES (?, ?, ?, ?)
		 RETURNING id, budget_id, item_name, amount, unit`,
		budgetID, nullable(p.ItemName), p.Amount, p.Unit)
	return scanActualExpenseRow(row)
}

func scanActualExpenseRow(row *sql.Row) (core.ActualExpense, error) {
	var e core.ActualExpense
	var item sql.NullString
	if err := row.Scan(&e.ID, &e.BudgetID, &item, &e.Amount, &e.Unit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.ActualExpense{}, core.ErrNotFound
		}
		return core.ActualExpense{}, fmt.Errorf("scan actual expense: %w", err)
	}
	e.ItemName = item.String
	return e, nil
}

func (q *Queries) ListActualExpenses(ctx context.Context, budgetID string) ([]core.ActualExpense, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, budget_id, item_name, amount, unit FROM actual_expenses
		 WHERE budget_id = ? ORDER BY id`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list actual expenses: %w", err)
	}
	return scanActualExpenses(rows)
}

func (q *Queries) ListActualExpensesByDataset(ctx context.Context, datasetID string) ([]core.ActualExpense, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT e.id, e.budget_id, e.item_name, e.amount, e.unit
		 FROM actual_expenses e
		 JOIN budgets b ON b.id = e.budget_id
		 WHERE b.dataset_id = ? ORDER BY e.id`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("list actual expenses by dataset: %w", err)
	}
	return scanActualExpenses(rows)
}

func scanActualExpenses(rows *sql.Rows) ([]core.ActualExpense, error) {
	defer rows.Close()
	var out []core.ActualExpense
	for rows.Next() {
		var e core.ActualExpense
		var item sql.NullString
		if err := rows.Scan(&e.ID, &e.BudgetID, &item, &e.Amount, &e.Unit); err != nil {
			return nil, fmt.Errorf("scan actual expense: %w", err)
		}
		e.ItemName = item.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateActualExpense(ctx context.Context, id int64, p ActualExpenseParams) (core.ActualExpense, error) {
	if p.Unit == "" {
		p.Unit = core.DefaultUnit
	}
	row := q.db.QueryRowContext(ctx,
		`UPDATE actual_expenses SET item_name = ?, amount = ?, unit = ? WHERE id = ?
		 RETURNING id, budget_id, item_name, amount, unit`,
		nullable(p.ItemName), p.Amount, p.Unit, id)
	e, err := scanActualExpenseRow(row)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ActualExpense{}, fmt.Errorf("actual expense %d: %w", id, core.ErrNotFound)
		}
		return core.ActualExpense{}, err
	}
	return e, nil
}

func (q *Queries) DeleteActualExpense(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM actual_expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete actual expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("actual expense %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (q *Queries) DeleteActualExpensesByBudget(ctx context.Context, budgetID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM actual_expenses WHERE budget_id = ?`, budgetID)
	if err != nil {
		return fmt.Errorf("delete actual expenses by budget: %w", err)
	}
	return nil
}

// RepointActualExpenses reassigns every expense row from one budget to
// another in bulk.
func (q *Queries) RepointActualExpenses(ctx context.Context, fromBudgetID, toBudgetID string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE actual_expenses SET budget_id = ? WHERE budget_id = ?`, toBudgetID, fromBudgetID)
	if err != nil {
		return fmt.Errorf("repoint actual expenses: %w", err)
	}
	return nil
}

// SumActualExpenses returns the settled total for one budget.
func (q *Queries) SumActualExpenses(ctx context.Context, budgetID string) (float64, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM actual_expenses WHERE budget_id = ?`, budgetID)
	var sum float64
	if err := row.Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum actual expenses: %w", err)
	}
	return sum, nil
}

// --- Import settings ---

func (q *Queries) GetImportSetting(ctx context.Context, budgetID string) (core.ImportSetting, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT budget_id, mapping_json FROM import_settings WHERE budget_id = ?`, budgetID)
	var s core.ImportSetting
	if err := row.Scan(&s.BudgetID, &s.MappingJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.ImportSetting{}, fmt.Errorf("import setting for budget %s: %w", budgetID, core.ErrMappingNotFound)
		}
		return core.ImportSetting{}, fmt.Errorf("get import setting: %w", err)
	}
	return s, nil
}

func (q *Queries) SaveImportSetting(ctx context.Context, budgetID, mappingJSON string) (core.ImportSetting, error) {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO import_settings (budget_id, mapping_json) VALUES (?, ?)
		 ON CONFLICT(budget_id) DO UPDATE SET mapping_json = excluded.mapping_json`,
		budgetID, mappingJSON)
	if err != nil {
		return core.ImportSetting{}, fmt.Errorf("save import setting: %w", err)
	}
	return core.ImportSetting{BudgetID: budgetID, MappingJSON: mappingJSON}, nil
}

func (q *Queries) GetPurchaseImportSetting(ctx context.Context, datasetID string) (core.PurchaseImportSetting, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT dataset_id, mapping_json FROM purchase_import_settings WHERE dataset_id = ?`, datasetID)
	var s core.PurchaseImportSetting
	if err := row.Scan(&s.DatasetID, &s.MappingJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.PurchaseImportSetting{}, fmt.Errorf("purchase import setting for dataset %s: %w", datasetID, core.ErrMappingNotFound)
		}
		return core.PurchaseImportSetting{}, fmt.Errorf("get purchase import setting: %w", err)
	}
	return s, nil
}

func (q *Queries) SavePurchaseImportSetting(ctx context.Context, datasetID, mappingJSON string) (core.PurchaseImportSetting, error) {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO purchase_import_settings (dataset_id, mapping_json) VALUES (?, ?)
		 ON CONFLICT(dataset_id) DO UPDATE SET mapping_json = excluded.mapping_json`,
		datasetID, mappingJSON)
	if err != nil {
		return core.PurchaseImportSetting{}, fmt.Errorf("save purchase import setting: %w", err)
	}
	return core.PurchaseImportSetting{DatasetID: datasetID, MappingJSON: mappingJSON}, nil
}
