package userkit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestAs(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/refinery", nil)
	if userID != "" {
		req = req.WithContext(WithUserID(req.Context(), userID))
	}
	return req
}

// TestMiddlewareNewMiddleware tests the middleware constructor
func TestMiddlewareNewMiddleware(t *testing.T) {
	s, _ := newTestService(t)

	mw := NewMiddleware(s)
	require.NotNil(t, mw)
	assert.Same(t, s, mw.service)
	assert.NotNil(t, mw.getUserID)
	assert.NotNil(t, mw.errorHandler)

	mw = NewMiddleware(s,
		WithUserIDExtractor(func(r *http.Request) string { return "custom-user" }),
		WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			w.WriteHeader(http.StatusTeapot)
		}),
	)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "custom-user", mw.getUserID(req))

	w := httptest.NewRecorder()
	mw.errorHandler(w, req, nil)
	assert.Equal(t, http.StatusTeapot, w.Code)
}

// TestMiddlewareDefaultErrorHandler tests the default error handler
func TestMiddlewareDefaultErrorHandler(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"unauthorized", NewError(ErrUnauthorized, "plugin not active"), http.StatusForbidden},
		{"no user", ErrNoUserID, http.StatusUnauthorized},
		{"user not found", ErrUserNotFound, http.StatusUnauthorized},
		{"other", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			defaultErrorHandler(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

// TestMiddlewareRequirePlugin tests plugin gating
func TestMiddlewareRequirePlugin(t *testing.T) {
	s, store := newTestService(t)
	admin := mustCreateFirst(t, s, "admin")
	editor := mustInsertUser(t, store, "editor")
	_, err := s.SetPlugins(context.Background(), editor, []string{"refinery_pages"})
	require.NoError(t, err)

	mw := NewMiddleware(s)

	tests := []struct {
		name           string
		userID         string
		plugin         string
		expectedStatus int
	}{
		{"granted", editor.ID, "refinery_pages", http.StatusOK},
		{"always allowed", editor.ID, "refinery_dashboard", http.StatusOK},
		{"not granted", editor.ID, "refinery_images", http.StatusForbidden},
		{"superuser", admin.ID, "refinery_settings", http.StatusOK},
		{"anonymous", "", "refinery_dashboard", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			mw.RequirePlugin(tt.plugin)(okHandler()).ServeHTTP(w, requestAs(tt.userID))
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

// TestMiddlewareRequireRole tests role gating
func TestMiddlewareRequireRole(t *testing.T) {
	s, _ := newTestService(t)
	admin := mustCreateFirst(t, s, "admin")
	editor := mustCreateFirst(t, s, "editor")

	mw := NewMiddleware(s)

	w := httptest.NewRecorder()
	mw.RequireSuperuser()(okHandler()).ServeHTTP(w, requestAs(admin.ID))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mw.RequireSuperuser()(okHandler()).ServeHTTP(w, requestAs(editor.ID))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	mw.RequireRole("refinery")(okHandler()).ServeHTTP(w, requestAs(editor.ID))
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestMiddlewareRequireMultiWordRole tests gating on an underscore separated role
func TestMiddlewareRequireMultiWordRole(t *testing.T) {
	s, _ := newTestService(t)
	admin := mustCreateFirst(t, s, "admin")
	editor := mustCreateFirst(t, s, "editor")
	require.NoError(t, s.AddRole(context.Background(), editor, "translator_admin"))

	mw := NewMiddleware(s)
	for _, title := range []RoleTitle{"translator_admin", "TranslatorAdmin"} {
		w := httptest.NewRecorder()
		mw.RequireRole(title)(okHandler()).ServeHTTP(w, requestAs(editor.ID))
		assert.Equal(t, http.StatusOK, w.Code, string(title))

		w = httptest.NewRecorder()
		mw.RequireRole(title)(okHandler()).ServeHTTP(w, requestAs(admin.ID))
		assert.Equal(t, http.StatusForbidden, w.Code, string(title))
	}
}

// TestMiddlewareUsesContextAccess tests that a snapshot already in context is reused
func TestMiddlewareUsesContextAccess(t *testing.T) {
	s, _ := newTestService(t)
	mw := NewMiddleware(s)

	access := NewAccess("user1", nil, []string{"refinery_images"}, s.Catalog())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithAccess(req.Context(), access))

	var seen *Access
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	})

	w := httptest.NewRecorder()
	mw.RequirePlugin("refinery_images")(handler).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Same(t, access, seen)
}

// TestMiddlewareLoadAccess tests loading the snapshot for handlers
func TestMiddlewareLoadAccess(t *testing.T) {
	s, _ := newTestService(t)
	admin := mustCreateFirst(t, s, "admin")
	mw := NewMiddleware(s)

	var seen *Access
	handler := mw.LoadAccess()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetAccess(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), requestAs(admin.ID))
	require.NotNil(t, seen)
	assert.True(t, seen.IsSuperuser())

	seen = nil
	handler.ServeHTTP(httptest.NewRecorder(), requestAs(""))
	assert.Nil(t, seen)
}

// TestMiddlewareDeletedUser tests that a deleted user's ID grants nothing
func TestMiddlewareDeletedUser(t *testing.T) {
	s, _ := newTestService(t)
	admin := mustCreateFirst(t, s, "admin")
	editor := mustCreateFirst(t, s, "editor")
	editorID := editor.ID
	require.NoError(t, s.DeleteUser(context.Background(), admin, editor))

	mw := NewMiddleware(s)

	w := httptest.NewRecorder()
	mw.RequirePlugin("refinery_dashboard")(okHandler()).ServeHTTP(w, requestAs(editorID))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	reached := false
	handler := mw.LoadAccess()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs(editorID))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, reached)

	w = httptest.NewRecorder()
	mw.RequirePlugin("refinery_dashboard")(okHandler()).ServeHTTP(w, requestAs("never-existed"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestMiddlewareLandingRedirect tests the post sign in redirect
func TestMiddlewareLandingRedirect(t *testing.T) {
	c := NewCatalog()
	c.Register("refinery_core").URL("/refinery/core").HideFromMenu().AlwaysAllowed().
		Register("refinery_pages").URL("/refinery/pages")
	store := NewMemoryStore()
	s := NewService(c, store, WithLogger(newTestLogger()))
	mw := NewMiddleware(s)

	editor := mustInsertUser(t, store, "editor")
	nobody := mustInsertUser(t, store, "nobody")
	_, err := s.SetPlugins(context.Background(), editor, []string{"refinery_pages"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	mw.LandingRedirect("/").ServeHTTP(w, requestAs(editor.ID))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/refinery/pages", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	mw.LandingRedirect("/").ServeHTTP(w, requestAs(nobody.ID))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	mw.LandingRedirect("/").ServeHTTP(w, requestAs(""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestMiddlewareInjectAuditContext tests request metadata extraction
func TestMiddlewareInjectAuditContext(t *testing.T) {
	s, _ := newTestService(t)
	mw := NewMiddleware(s, WithUserIDExtractor(func(r *http.Request) string {
		return r.Header.Get("X-User-ID")
	}))

	var ac AuditContext
	handler := mw.InjectAuditContext()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac = GetAuditContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/refinery/users", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-Request-ID", "req-1")
	req.Header.Set("X-User-ID", "user-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, AuditContext{
		ActorID:   "user-1",
		IPAddress: "10.0.0.1",
		UserAgent: "test-agent",
		RequestID: "req-1",
	}, ac)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "10.0.0.2")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "10.0.0.2", ac.IPAddress)
	assert.Empty(t, ac.ActorID)
}
