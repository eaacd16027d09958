package expenses

import (
	"math"
	"strconv"
	"strings"

	"expense-manager/internal/models"
)

// Input is a validated expense form submission.
type Input struct {
	Description string
	Amount      float64
	Category    string
}

// ParseExpenseInput validates raw form values. Text fields are trimmed and
// must be non-empty; amount must be a finite number. A comma is accepted as
// the decimal separator.
func ParseExpenseInput(description, amount, category string) (Input, error) {
	in := Input{
		Description: strings.TrimSpace(description),
		Category:    strings.TrimSpace(category),
	}

	if in.Description == "" {
		return Input{}, models.Invalid("description", "is required")
	}
	if in.Category == "" {
		return Input{}, models.Invalid("category", "is required")
	}

	v, err := parseAmount(amount)
	if err != nil {
		return Input{}, err
	}
	in.Amount = v
	return in, nil
}

func parseAmount(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, models.Invalid("amount", "is required")
	}

	switch {
	case strings.Contains(raw, ",") && strings.Contains(raw, "."):
		// 1,234.50
		raw = strings.ReplaceAll(raw, ",", "")
	case strings.Count(raw, ",") == 1:
		raw = strings.Replace(raw, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, models.Invalid("amount", "must be a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, models.Invalid("amount", "must be a finite number")
	}
	return v, nil
}
