package userkit

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// DefaultResetPasswordWithin is how long a reset password token stays valid.
const DefaultResetPasswordWithin = 6 * time.Hour

// Service manages users, their roles and their plugin grants, and answers
// authorization questions against a plugin catalog.
//
// Error Handling:
// Storage errors are returned unchanged (PostgresStore wraps them with dbkit's
// chainable error context). Domain failures use the sentinel errors of this
// package, wrapped in *Error:
//
//	err := service.AddRole(ctx, user, role)
//	if userkit.IsInvalidArgument(err) {
//	    // a Role row was passed instead of its title
//	}
//	if userkit.IsNotPersisted(err) {
//	    // the user must be saved first
//	}
//
// Validation failures are not errors: CreateFirst and UpdateUser return false
// and leave the messages on user.Errors.
type Service struct {
	store     Store
	catalog   *Catalog
	validate  *validator.Validate
	log       logrus.FieldLogger
	metrics   *Metrics
	cache     *accessCache
	tokens    TokenGenerator
	txMonitor *transactionMonitor
	now       func() time.Time

	resetPasswordWithin time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to logrus.StandardLogger().
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithMetrics records service activity on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAccessCache keeps up to size Access snapshots for at most ttl.
// Snapshots are dropped as soon as the user is changed through this Service;
// ttl bounds staleness for changes made elsewhere.
func WithAccessCache(size int, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = newAccessCache(size, ttl)
	}
}

// WithTokenGenerator sets the generator used for reset password tokens.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(s *Service) {
		s.tokens = g
	}
}

// WithResetPasswordWithin sets how long a reset password token stays valid.
func WithResetPasswordWithin(d time.Duration) Option {
	return func(s *Service) {
		s.resetPasswordWithin = d
	}
}

// NewService creates a new userkit service.
//
// Example:
//
//	catalog := userkit.NewCatalog()
//	catalog.Register("refinery_dashboard").URL("/refinery").AlwaysAllowed().
//	    Register("refinery_pages").Title("Pages").URL("/refinery/pages")
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := userkit.NewService(catalog, userkit.NewPostgresStore(db),
//	    userkit.WithLogger(logger),
//	)
func NewService(catalog *Catalog, store Store, opts ...Option) *Service {
	if catalog == nil {
		catalog = NewCatalog()
	}
	s := &Service{
		store:               store,
		catalog:             catalog,
		validate:            validator.New(),
		log:                 logrus.StandardLogger(),
		tokens:              NewHMACTokenGenerator(nil),
		txMonitor:           newTransactionMonitor(),
		now:                 time.Now,
		resetPasswordWithin: DefaultResetPasswordWithin,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the plugin catalog.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Store returns the storage collaborator.
func (s *Service) Store() Store {
	return s.store
}

// invalidate drops cached access for the user.
func (s *Service) invalidate(userID string) {
	if s.cache != nil && userID != "" {
		s.cache.invalidate(userID)
	}
}

// logger returns the service logger with the request correlation fields set.
func (s *Service) logger(ctx context.Context) logrus.FieldLogger {
	log := s.log
	if requestID := GetRequestID(ctx); requestID != "" {
		log = log.WithField("request_id", requestID)
	}
	if actorID := GetActorID(ctx); actorID != "" {
		log = log.WithField("actor_id", actorID)
	}
	return log
}
