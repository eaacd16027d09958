package handlers

import (
	"math"
	"sort"
	"strings"

	"expense-manager/internal/models"
)

// CategoryDef is a suggested category offered on the expense form.
type CategoryDef struct {
	ID    string
	Name  string
	Icon  string
	Color string
}

var categories = []CategoryDef{
	{"food", "Food", "🍽️", "#60a5fa"},
	{"transport", "Transport", "🚌", "#a78bfa"},
	{"entertainment", "Entertainment", "🎮", "#f472b6"},
	{"utilities", "Utilities", "💡", "#fbbf24"},
	{"housing", "Housing", "🏠", "#818cf8"},
	{"gifts", "Gifts", "🎁", "#fb7185"},
	{"other", "Other", "📦", "#94a3b8"},
}

// CategoryStyle defines the visual style for a category.
type CategoryStyle struct {
	Icon  string
	Color string
}

// getCategoryStyle matches free-text categories case-insensitively against
// the suggestions; anything else gets the neutral style.
func getCategoryStyle(category string) CategoryStyle {
	catLower := strings.ToLower(strings.TrimSpace(category))
	for _, c := range categories {
		if c.ID == catLower {
			return CategoryStyle{Icon: c.Icon, Color: c.Color}
		}
	}
	return CategoryStyle{Icon: "📦", Color: "#94a3b8"}
}

// ExpenseItem represents an expense in the list view.
type ExpenseItem struct {
	models.Expense
	Style    CategoryStyle
	IsRefund bool
}

// CategorySummary is the per-category line of the dashboard header.
type CategorySummary struct {
	Category string
	Total    float64
	Count    int
	// Percentage is the category's share of all absolute amounts.
	Percentage float64
	Style      CategoryStyle
}

func toItems(list []models.Expense) []ExpenseItem {
	items := make([]ExpenseItem, 0, len(list))
	for _, e := range list {
		items = append(items, ExpenseItem{
			Expense:  e,
			Style:    getCategoryStyle(e.Category),
			IsRefund: e.Amount < 0,
		})
	}
	return items
}

// summarizeByCategory groups list by category, largest total first.
// Categories differing only in case are merged under the first spelling seen.
func summarizeByCategory(list []models.Expense) []CategorySummary {
	byKey := make(map[string]*CategorySummary)
	var order []string
	var absTotal float64

	for _, e := range list {
		key := strings.ToLower(e.Category)
		s, ok := byKey[key]
		if !ok {
			s = &CategorySummary{Category: e.Category, Style: getCategoryStyle(e.Category)}
			byKey[key] = s
			order = append(order, key)
		}
		s.Total += e.Amount
		s.Count++
		absTotal += math.Abs(e.Amount)
	}

	out := make([]CategorySummary, 0, len(order))
	for _, key := range order {
		s := byKey[key]
		if absTotal > 0 {
			s.Percentage = math.Abs(s.Total) / absTotal * 100
		}
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}
