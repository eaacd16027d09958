package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"expense-manager/internal/auth"
	"expense-manager/internal/expenses"
	"expense-manager/internal/handlers"
	"expense-manager/internal/metrics"
	"expense-manager/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandlers(t *testing.T, db *storage.DB) *handlers.Handlers {
	t.Helper()
	creds := auth.NewCredentials(db)
	a, err := auth.NewAuthenticator(auth.Config{
		SigningKey:      []byte("0123456789abcdef0123456789abcdef"),
		SessionDuration: time.Hour,
	}, creds, db, zap.NewNop())
	require.NoError(t, err)

	return handlers.NewHandlers(handlers.Deps{
		Auth:        a,
		Credentials: creds,
		Expenses:    expenses.NewService(db),
		Store:       db,
		Metrics:     metrics.NewRegistry(),
		Logger:      zap.NewNop(),
	}, "../../web/templates", false)
}

func TestSetupRouter(t *testing.T) {
	// Setup dependencies
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err, "failed to create database")
	defer db.Close()

	if _, err := os.Stat("../../web/templates"); os.IsNotExist(err) {
		t.Skip("Template directory not found, skipping router test")
	}

	h := newTestHandlers(t, db)

	// Create router - this triggers the panic if routing conflict exists
	mux := setupRouter(h, "../../web/static")

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantLoc    string
	}{
		{name: "Root shows login page", method: "GET", path: "/", wantStatus: http.StatusOK},
		{name: "Login page", method: "GET", path: "/login", wantStatus: http.StatusOK},
		{name: "Register page", method: "GET", path: "/register", wantStatus: http.StatusOK},
		{name: "Static file access", method: "GET", path: "/static/style.css", wantStatus: http.StatusOK},
		{name: "Health", method: "GET", path: "/healthz", wantStatus: http.StatusOK},
		{name: "Metrics", method: "GET", path: "/metrics", wantStatus: http.StatusOK},
		{name: "Dashboard requires auth", method: "GET", path: "/dashboard", wantStatus: http.StatusFound, wantLoc: "/"},
		{name: "Add form requires auth", method: "GET", path: "/manage_expenses", wantStatus: http.StatusFound, wantLoc: "/"},
		{name: "Add requires auth", method: "POST", path: "/manage_expenses", wantStatus: http.StatusFound, wantLoc: "/"},
		{name: "Edit requires auth", method: "GET", path: "/update_expense/1", wantStatus: http.StatusFound, wantLoc: "/"},
		{name: "Update requires auth", method: "POST", path: "/update_expense/1", wantStatus: http.StatusFound, wantLoc: "/"},
		{name: "Delete requires auth", method: "GET", path: "/delete_expense/1", wantStatus: http.StatusFound, wantLoc: "/"},
		{name: "Logout without session", method: "GET", path: "/logout", wantStatus: http.StatusFound, wantLoc: "/"},
		{name: "Unknown path", method: "GET", path: "/expenses", wantStatus: http.StatusNotFound},
		{name: "Wrong method", method: "DELETE", path: "/dashboard", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code,
				"%s %s returned unexpected status", tt.method, tt.path)
			if tt.wantLoc != "" {
				assert.Equal(t, tt.wantLoc, w.Header().Get("Location"))
			}
		})
	}
}

func TestMiddlewareChain(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	reg := metrics.NewRegistry()
	handler := withMiddleware(setupRouter(newTestHandlers(t, db), "../../web/static"), zap.NewNop(), reg)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestBootstrapAdmin(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	creds := auth.NewCredentials(db)

	require.NoError(t, bootstrapAdmin(ctx, creds, "admin", "adminpass", zap.NewNop()))
	user, err := creds.Authenticate(ctx, "admin", "adminpass")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)

	// Running again keeps the existing account and password
	require.NoError(t, bootstrapAdmin(ctx, creds, "admin", "changed", zap.NewNop()))
	_, err = creds.Authenticate(ctx, "admin", "adminpass")
	assert.NoError(t, err)

	count, err := db.UserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
