// Package core holds the domain model and the pure computations over it:
// token classification and the dashboard aggregation.
package core

import (
	"strconv"
	"strings"
)

// The classification functions are total: they trim and lower-case their
// input, recognize Japanese and English synonyms, and fall back to the
// domain default instead of failing. They serve the CSV importers and any
// direct API input that arrives unnormalized.

var categoryTokens = map[string]string{
	"旅費":          CategoryTravel,
	"travel":      CategoryTravel,
	"travel cost": CategoryTravel,
	"travel_cost": CategoryTravel,
	"固定費":         CategoryFixed,
	"fixed":       CategoryFixed,
	"fixed cost":  CategoryFixed,
	"fixed_cost":  CategoryFixed,
}

var statusTokens = map[string]string{
	"書いただけ":          StatusDrafted,
	"提案":             StatusDrafted,
	"proposal":       StatusDrafted,
	"written":        StatusDrafted,
	"draft":          StatusDrafted,
	"見積済み":           StatusEstimated,
	"見積済":            StatusEstimated,
	"estimated":      StatusEstimated,
	"estimate":       StatusEstimated,
	"買い物中":           StatusShopping,
	"買い物":            StatusShopping,
	"shopping":       StatusShopping,
	"in_progress":    StatusShopping,
	"shop":           StatusShopping,
	"購入済み":           StatusPurchased,
	"購入済":            StatusPurchased,
	"purchased":      StatusPurchased,
	"done":           StatusPurchased,
	"complete":       StatusPurchased,
	"購入しない":          StatusNotBuying,
	"not purchasing": StatusNotBuying,
	"not_purchasing": StatusNotBuying,
	"skip":           StatusNotBuying,
	"cancel":         StatusNotBuying,
}

var priorityTokens = map[string]int{
	"最高":      5,
	"highest": 5,
	"最優先":     5,
	"高":       4,
	"high":    4,
	"中":       3,
	"medium":  3,
	"normal":  3,
	"低":       2,
	"low":     2,
	"最低":      1,
	"lowest":  1,
}

// NormalizeCategory maps a free-text category token to one of the fixed
// categories. Unrecognized or empty input becomes CategoryOther.
func NormalizeCategory(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return CategoryOther
	}
	if c, ok := categoryTokens[v]; ok {
		return c
	}
	return CategoryOther
}

// NormalizeStatus maps a free-text status token to one of the five
// workflow statuses. Unrecognized or empty input becomes StatusDrafted.
func NormalizeStatus(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return StatusDrafted
	}
	if s, ok := statusTokens[v]; ok {
		return s
	}
	return StatusDrafted
}

// NormalizePriority maps a free-text priority token to an integer level.
// Numeric literals pass through unchanged, even out of the 1..5 range;
// word tokens use the fixed table; anything else is DefaultPriority.
func NormalizePriority(raw string) int {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return DefaultPriority
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return n
	}
	if p, ok := priorityTokens[v]; ok {
		return p
	}
	return DefaultPriority
}
