package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"expense-manager/internal/expenses"
	"expense-manager/internal/metrics"
	"expense-manager/internal/models"

	"go.uber.org/zap"
)

const (
	msgEditNotFound   = "Expense not found or you do not have permission to edit this expense."
	msgDeleteNotFound = "Expense not found or you do not have permission to delete this expense."
	msgDeleteRefused  = "Delete links from other sites are not accepted. Use the Delete button instead."
)

// DashboardViewModel is the data passed to the dashboard template.
type DashboardViewModel struct {
	Page
	Expenses   []ExpenseItem
	Total      float64
	Categories []CategorySummary
}

// FormViewModel is the data passed to the add/edit form template. Values
// are kept as typed so a rejected submission can be shown again.
type FormViewModel struct {
	Page
	IsEdit      bool
	Action      string
	Description string
	Amount      string
	Category    string
	Error       string
	Categories  []CategoryDef
}

// Dashboard lists the caller's expenses with their total.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	list, err := h.expenses.ListExpenses(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, r, "Failed to list expenses", err)
		return
	}

	h.render(w, r, http.StatusOK, "dashboard.html", &DashboardViewModel{
		Expenses:   toItems(list),
		Total:      expenses.Total(list),
		Categories: summarizeByCategory(list),
	})
}

// CreateExpenseForm renders the form to add an expense.
func (h *Handlers) CreateExpenseForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "expense_form.html", &FormViewModel{
		Action:     "/manage_expenses",
		Categories: categories,
	})
}

// CreateExpense handles the submission of a new expense.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	form := &FormViewModel{Action: "/manage_expenses", Categories: categories}

	in, ok := h.parseExpenseForm(w, r, form)
	if !ok {
		return
	}

	e, err := h.expenses.AddExpense(r.Context(), user.ID, in)
	if err != nil {
		h.serverError(w, r, "Failed to create expense", err)
		return
	}

	h.metrics.ExpenseOperations.WithLabelValues(metrics.OpCreate).Inc()
	h.log(r).Debug("Expense created", zap.Int64("user_id", user.ID), zap.Int64("expense_id", e.ID))
	h.setFlash(w, flashSuccess, "Expense added successfully.")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// EditExpenseForm renders the form to edit one of the caller's expenses.
func (h *Handlers) EditExpenseForm(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	id, ok := expenseID(r)
	if !ok {
		h.redirectWithError(w, r, msgEditNotFound)
		return
	}

	e, err := h.expenses.GetExpense(r.Context(), user.ID, id)
	if errors.Is(err, expenses.ErrNotFoundOrForbidden) {
		h.redirectWithError(w, r, msgEditNotFound)
		return
	}
	if err != nil {
		h.serverError(w, r, "Failed to load expense", err)
		return
	}

	h.render(w, r, http.StatusOK, "expense_form.html", &FormViewModel{
		IsEdit:      true,
		Action:      r.URL.Path,
		Description: e.Description,
		Amount:      strconv.FormatFloat(e.Amount, 'f', -1, 64),
		Category:    e.Category,
		Categories:  categories,
	})
}

// UpdateExpense handles the edit form submission.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	id, ok := expenseID(r)
	if !ok {
		h.redirectWithError(w, r, msgEditNotFound)
		return
	}

	form := &FormViewModel{IsEdit: true, Action: r.URL.Path, Categories: categories}
	in, ok := h.parseExpenseForm(w, r, form)
	if !ok {
		return
	}

	_, err := h.expenses.EditExpense(r.Context(), user.ID, id, in)
	if errors.Is(err, expenses.ErrNotFoundOrForbidden) {
		h.log(r).Warn("Refused expense update", zap.Int64("user_id", user.ID), zap.Int64("expense_id", id))
		h.redirectWithError(w, r, msgEditNotFound)
		return
	}
	if err != nil {
		h.serverError(w, r, "Failed to update expense", err)
		return
	}

	h.metrics.ExpenseOperations.WithLabelValues(metrics.OpUpdate).Inc()
	h.setFlash(w, flashSuccess, "Expense updated successfully.")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// DeleteExpense removes one of the caller's expenses. A GET arriving from
// another site is refused, since SameSite=Lax still sends the session cookie
// on cross-site top-level navigations.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	if r.Method == http.MethodGet && r.Header.Get("Sec-Fetch-Site") == "cross-site" {
		h.log(r).Warn("Refused cross-site delete", zap.Int64("user_id", user.ID), zap.String("id", r.PathValue("id")))
		h.redirectWithError(w, r, msgDeleteRefused)
		return
	}

	id, ok := expenseID(r)
	if !ok {
		h.redirectWithError(w, r, msgDeleteNotFound)
		return
	}

	err := h.expenses.DeleteExpense(r.Context(), user.ID, id)
	if errors.Is(err, expenses.ErrNotFoundOrForbidden) {
		h.log(r).Warn("Refused expense delete", zap.Int64("user_id", user.ID), zap.Int64("expense_id", id))
		h.redirectWithError(w, r, msgDeleteNotFound)
		return
	}
	if err != nil {
		h.serverError(w, r, "Failed to delete expense", err)
		return
	}

	h.metrics.ExpenseOperations.WithLabelValues(metrics.OpDelete).Inc()
	h.setFlash(w, flashSuccess, "Expense deleted successfully.")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// parseExpenseForm validates the submitted form. On failure it renders form
// with status 422 and reports false.
func (h *Handlers) parseExpenseForm(w http.ResponseWriter, r *http.Request, form *FormViewModel) (expenses.Input, bool) {
	if err := r.ParseForm(); err != nil {
		form.Error = "Invalid form submission"
		h.render(w, r, http.StatusBadRequest, "expense_form.html", form)
		return expenses.Input{}, false
	}

	form.Description = r.PostFormValue("description")
	form.Amount = r.PostFormValue("amount")
	form.Category = r.PostFormValue("category")

	in, err := expenses.ParseExpenseInput(form.Description, form.Amount, form.Category)
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		form.Error = capitalize(verr.Error()) + "."
		h.render(w, r, http.StatusUnprocessableEntity, "expense_form.html", form)
		return expenses.Input{}, false
	}
	if err != nil {
		h.serverError(w, r, "Failed to parse expense", err)
		return expenses.Input{}, false
	}
	return in, true
}

func (h *Handlers) redirectWithError(w http.ResponseWriter, r *http.Request, msg string) {
	h.setFlash(w, flashError, msg)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func expenseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
