package core

// BudgetSummary is the per-budget slice of the dashboard forecast.
type BudgetSummary struct {
	BudgetID    string  `json:"budget_id"`
	Name        string  `json:"name"`
	TotalAmount float64 `json:"total_amount"`
	ActualTotal float64 `json:"actual_total"`
	// PlannedTotal sums assignment amounts of purchases that are still
	// drafted or estimated; committed purchases no longer count as plans.
	PlannedTotal      float64 `json:"planned_total"`
	RemainingForecast float64 `json:"remaining_forecast"`
	Unit              string  `json:"unit"`
	Description       string  `json:"description,omitempty"`
}

// DashboardSummary reconciles planned spend, actual spend and remaining
// budget across one dataset. All sums over empty sets are 0; forecasts
// may go negative and are not clamped; no rounding is applied here.
type DashboardSummary struct {
	OverallActualTotal       float64 `json:"overall_actual_total"`
	OverallPlannedTotal      float64 `json:"overall_planned_total"`
	OverallRemainingForecast float64 `json:"overall_remaining_forecast"`
	UnassignedPlannedTotal   float64 `json:"unassigned_planned_total"`
	FixedCostTotal           float64 `json:"fixed_cost_total"`
	FixedCostPlannedTotal    float64 `json:"fixed_cost_planned_total"`
	TravelPlannedTotal       float64 `json:"travel_planned_total"`
	OtherPlannedTotal        float64 `json:"other_planned_total"`
	TravelCostTotal          float64 `json:"travel_cost_total"`

	Budgets     []BudgetSummary `json:"budgets"`
	TravelItems []Purchase      `json:"travel_items"`
}

// planned reports whether a status still counts as pure plan.
func planned(status string) bool {
	return status == StatusDrafted || status == StatusEstimated
}

// ComputeDashboard aggregates one dataset's budgets, purchases,
// assignments and actual expenses into a DashboardSummary. It is a pure
// read: relations arrive as flat slices and are resolved through
// id-indexed maps, never through live object graphs.
func ComputeDashboard(budgets []Budget, purchases []Purchase, assignments []BudgetAssignment, expenses []ActualExpense) DashboardSummary {
	statusByPurchase := make(map[int64]string, len(purchases))
	for _, p := range purchases {
		statusByPurchase[p.ID] = p.Status
	}

	actualByBudget := make(map[string]float64, len(budgets))
	for _, ae := range expenses {
		actualByBudget[ae.BudgetID] += ae.Amount
	}

	plannedByBudget := make(map[string]float64, len(budgets))
	assignedByPurchase := make(map[int64]float64, len(purchases))
	for _, a := range assignments {
		assignedByPurchase[a.PurchaseID] += a.Amount
		if planned(statusByPurchase[a.PurchaseID]) {
			plannedByBudget[a.BudgetID] += a.Amount
		}
	}

	var s DashboardSummary
	var budgetTotal float64
	for _, b := range budgets {
		actual := actualByBudget[b.ID]
		plan := plannedByBudget[b.ID]
		s.Budgets = append(s.Budgets, BudgetSummary{
			BudgetID:          b.ID,
			Name:              b.Name,
			TotalAmount:       b.TotalAmount,
			ActualTotal:       actual,
			PlannedTotal:      plan,
			RemainingForecast: b.TotalAmount - actual - plan,
			Unit:              b.Unit,
			Description:       b.Description,
		})
		s.OverallActualTotal += actual
		budgetTotal += b.TotalAmount
	}

	for _, p := range purchases {
		if planned(p.Status) {
			switch p.Category {
			case CategoryFixed:
				s.FixedCostPlannedTotal += p.Amount
			case CategoryTravel:
				s.TravelPlannedTotal += p.Amount
			default:
				s.OtherPlannedTotal += p.Amount
			}
			if rest := p.Amount - assignedByPurchase[p.ID]; rest > 0 {
				s.UnassignedPlannedTotal += rest
			}
		}
		if p.Status != StatusNotBuying {
			switch p.Category {
			case CategoryFixed:
				s.FixedCostTotal += p.Amount
			case CategoryTravel:
				s.TravelCostTotal += p.Amount
				s.TravelItems = append(s.TravelItems, p)
			}
		}
	}

	s.OverallPlannedTotal = s.FixedCostPlannedTotal + s.TravelPlannedTotal + s.OtherPlannedTotal
	s.OverallRemainingForecast = budgetTotal - s.OverallActualTotal - s.OverallPlannedTotal
	return s
}
