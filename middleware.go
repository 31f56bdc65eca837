package userkit

import (
	"errors"
	"net/http"
)

// Middleware provides HTTP middleware for plugin and role checks on top of a Service.
type Middleware struct {
	service      *Service
	getUserID    func(*http.Request) string
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := userkit.NewMiddleware(service,
//	    userkit.WithUserIDExtractor(func(r *http.Request) string {
//	        return session.UserID(r)
//	    }),
//	)
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:      service,
		getUserID:    defaultGetUserID,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithUserIDExtractor sets a custom function to extract user ID from request.
func WithUserIDExtractor(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.getUserID = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetUserID(r *http.Request) string {
	return GetUserID(r.Context())
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case IsUnauthorized(err):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNoUserID), IsUserNotFound(err):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// access returns the snapshot already in the request context or loads it.
func (m *Middleware) access(r *http.Request) (*Access, error) {
	if access := GetAccess(r.Context()); access != nil {
		return access, nil
	}
	userID := m.getUserID(r)
	if userID == "" {
		return nil, ErrNoUserID
	}
	return m.service.AccessByID(r.Context(), userID)
}

// require builds middleware that rejects requests whose snapshot fails allowed.
func (m *Middleware) require(allowed func(*Access) bool, denied func(*Access) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, err := m.access(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}
			if !allowed(access) {
				m.errorHandler(w, r, denied(access))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccess(r.Context(), access)))
		})
	}
}

// RequirePlugin creates middleware that requires the named plugin to be active
// for the user.
//
// Example:
//
//	mux.Handle("/refinery/pages/", mw.RequirePlugin("refinery_pages")(pagesHandler))
func (m *Middleware) RequirePlugin(name string) func(http.Handler) http.Handler {
	return m.require(
		func(a *Access) bool {
			allowed := a.HasPlugin(name)
			m.service.metrics.recordPluginCheck(allowed)
			return allowed
		},
		func(a *Access) error {
			return NewError(ErrUnauthorized, "plugin not active for user").
				WithPlugin(name).
				WithUser(a.UserID())
		},
	)
}

// RequireRole creates middleware that requires the user to hold a role.
//
// Example:
//
//	mux.Handle("/refinery/translations/", mw.RequireRole("translator")(handler))
func (m *Middleware) RequireRole(title RoleTitle) func(http.Handler) http.Handler {
	title = CanonicalRoleTitle(string(title))
	return m.require(
		func(a *Access) bool { return a.HasRole(title) },
		func(a *Access) error {
			return NewError(ErrUnauthorized, "missing required role").
				WithRole(string(title)).
				WithUser(a.UserID())
		},
	)
}

// RequireSuperuser creates middleware that requires the Superuser role.
func (m *Middleware) RequireSuperuser() func(http.Handler) http.Handler {
	return m.RequireRole(RoleSuperuser)
}

// LoadAccess creates middleware that loads the user's Access into context.
// Use this when you want to do plugin checks in the handler rather than middleware.
// Requests without a user continue without a snapshot. A user ID that no
// longer belongs to a saved user is passed to the error handler.
//
// Example:
//
//	mux.Handle("/refinery", mw.LoadAccess()(http.HandlerFunc(menuHandler)))
//
//	func menuHandler(w http.ResponseWriter, r *http.Request) {
//	    access := userkit.FromContext(r.Context())
//	    for _, p := range access.ActivePlugins().InMenu() {
//	        // render menu entry
//	    }
//	}
func (m *Middleware) LoadAccess() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.getUserID(r) == "" {
				next.ServeHTTP(w, r)
				return
			}

			access, err := m.access(r)
			if IsUserNotFound(err) {
				m.errorHandler(w, r, err)
				return
			}
			if err != nil {
				m.service.log.WithError(err).Warn("failed to load user access")
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccess(r.Context(), access)))
		})
	}
}

// LandingRedirect returns a handler that redirects the user to the URL of its
// first active in-menu plugin, or to fallback when there is none.
func (m *Middleware) LandingRedirect(fallback string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access, err := m.access(r)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}

		target := access.LandingURL()
		if target == "" {
			target = fallback
		}
		http.Redirect(w, r, target, http.StatusFound)
	})
}

// InjectAuditContext creates middleware that extracts audit information from the request
// and adds it to the context for use in user, role and grant changes.
//
// Example:
//
//	handler = mw.InjectAuditContext()(handler)
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}
			ctx = WithIPAddress(ctx, ip)
			ctx = WithUserAgent(ctx, r.UserAgent())

			if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			if userID := m.getUserID(r); userID != "" {
				ctx = WithActorID(ctx, userID)
				ctx = WithUserID(ctx, userID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
