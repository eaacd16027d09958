package handlers

import (
	"errors"
	"net/http"
	"strings"

	"expense-manager/internal/auth"
	"expense-manager/internal/metrics"
	"expense-manager/internal/models"
	"expense-manager/internal/storage"

	"go.uber.org/zap"
)

const (
	msgInvalidCredentials = "Invalid credentials. Please try again."
	msgUsernameTaken      = "Username already exists. Please choose a different one."
)

// LoginViewModel holds data for the login page.
type LoginViewModel struct {
	Page
	Error    string
	Username string
}

// RegisterViewModel holds data for the registration page.
type RegisterViewModel struct {
	Page
	Error    string
	Username string
}

// LoginForm renders the login page. Callers with a valid session go
// straight to the dashboard.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if id := h.identify(w, r); id != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, "login.html", &LoginViewModel{})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "login.html", &LoginViewModel{Error: "Invalid form submission"})
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	res, err := h.auth.Login(r.Context(), username, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.metrics.AuthAttempts.WithLabelValues(metrics.OutcomeFailure).Inc()
		h.log(r).Warn("Login failed", zap.String("username", username))
		h.render(w, r, http.StatusUnauthorized, "login.html", &LoginViewModel{
			Error:    msgInvalidCredentials,
			Username: username,
		})
		return
	}
	if err != nil {
		h.serverError(w, r, "Failed to log in", err)
		return
	}

	h.metrics.AuthAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	h.metrics.SessionsCreated.Inc()
	h.log(r).Info("User logged in", zap.Int64("user_id", res.User.ID))

	h.setSessionCookie(w, res.Token)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Logout revokes the session and clears the cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			h.log(r).Error("Failed to delete session", zap.Error(err))
		} else {
			h.metrics.SessionsRevoked.Inc()
		}
	}
	h.clearSessionCookie(w)
	h.setFlash(w, flashSuccess, "You have been logged out.")
	http.Redirect(w, r, "/", http.StatusFound)
}

// RegisterForm renders the registration page.
func (h *Handlers) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register.html", &RegisterViewModel{})
}

// Register creates an account from the registration form.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "register.html", &RegisterViewModel{Error: "Invalid form submission"})
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := h.creds.Register(r.Context(), username, password)
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		h.render(w, r, http.StatusUnprocessableEntity, "register.html", &RegisterViewModel{
			Error:    capitalize(verr.Error()) + ".",
			Username: username,
		})
		return
	case errors.Is(err, storage.ErrDuplicateUsername):
		h.render(w, r, http.StatusConflict, "register.html", &RegisterViewModel{
			Error:    msgUsernameTaken,
			Username: username,
		})
		return
	case err != nil:
		h.serverError(w, r, "Failed to register user", err)
		return
	}

	h.log(r).Info("User registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	h.setFlash(w, flashSuccess, "Registration successful! Please log in.")
	http.Redirect(w, r, "/", http.StatusFound)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
