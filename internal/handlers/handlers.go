// Package handlers implements the HTTP surface of the expense manager.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"expense-manager/internal/auth"
	"expense-manager/internal/expenses"
	"expense-manager/internal/metrics"
	"expense-manager/internal/middleware"
	"expense-manager/internal/models"

	"go.uber.org/zap"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// FlashCookieName carries a one-shot message across a redirect.
	FlashCookieName = "flash"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of Handlers. Metrics and Logger may be nil.
type Deps struct {
	Auth        *auth.Authenticator
	Credentials *auth.Credentials
	Expenses    *expenses.Service
	Store       Pinger
	Metrics     *metrics.Registry
	Logger      *zap.Logger
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	auth         *auth.Authenticator
	creds        *auth.Credentials
	expenses     *expenses.Service
	store        Pinger
	metrics      *metrics.Registry
	logger       *zap.Logger
	templateDir  string
	secureCookie bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps, templateDir string, secureCookie bool) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := deps.Metrics
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Handlers{
		auth:         deps.Auth,
		creds:        deps.Credentials,
		expenses:     deps.Expenses,
		store:        deps.Store,
		metrics:      reg,
		logger:       logger,
		templateDir:  templateDir,
		secureCookie: secureCookie,
	}
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// AuthMiddleware wraps handlers to require authentication. Anonymous
// requests are redirected to the login page before next runs.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := h.identify(w, r)
		if id == nil {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, id.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identify resolves the session cookie of r. It returns nil for anonymous
// requests and clears a cookie that no longer resolves. A renewed session
// gets its new token written back.
func (h *Handlers) identify(w http.ResponseWriter, r *http.Request) *auth.Identity {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	id, err := h.auth.Resolve(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthenticated) {
			h.log(r).Error("Failed to resolve session", zap.Error(err))
		}
		h.clearSessionCookie(w)
		return nil
	}

	if id.Renewed {
		h.setSessionCookie(w, id.Token)
	}
	return id
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.auth.SessionDuration().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

const (
	flashSuccess = "success"
	flashError   = "error"
)

func (h *Handlers) setFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    url.QueryEscape(kind + ":" + message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the flash cookie.
func (h *Handlers) popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(raw, ":")
	if !ok || message == "" {
		return nil
	}
	if kind != flashSuccess && kind != flashError {
		kind = flashError
	}
	return &Flash{Kind: kind, Message: message}
}

// Page is the layout data every view carries.
type Page struct {
	User  *models.User
	Flash *Flash
}

// withPage lets render fill in the layout data of a view model.
type withPage interface {
	setPage(Page)
}

func (p *Page) setPage(page Page) { *p = page }

var templateFuncs = template.FuncMap{
	"formatAmount": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}

// render executes viewName inside base.html and writes it with status.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, viewName string, data withPage) {
	data.setPage(Page{User: GetUserFromContext(r), Flash: h.popFlash(w, r)})

	tmpl, err := template.New("base.html").Funcs(templateFuncs).ParseFiles(
		filepath.Join(h.templateDir, "base.html"),
		filepath.Join(h.templateDir, viewName),
	)
	if err != nil {
		h.log(r).Error("Template error", zap.String("view", viewName), zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		h.log(r).Error("Template execution error", zap.String("view", viewName), zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.log(r).Error(msg, zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// log returns the logger annotated with the request id.
func (h *Handlers) log(r *http.Request) *zap.Logger {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		return h.logger.With(zap.String("request_id", id))
	}
	return h.logger
}

// Metrics serves the Prometheus exposition.
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.Handler().ServeHTTP(w, r)
}

// Health reports liveness and store reachability.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.log(r).Warn("Health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"status":"unavailable"}`)
			return
		}
	}
	fmt.Fprint(w, `{"status":"ok"}`)
}
