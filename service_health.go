package userkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Health reports the state of the store. Stores that cannot report their own
// health are assumed healthy.
func (s *Service) Health(ctx context.Context) dbkit.HealthStatus {
	if hm, ok := s.store.(HealthMonitor); ok {
		return hm.Health(ctx)
	}
	return dbkit.HealthStatus{Healthy: true}
}

// IsHealthy performs a simple connectivity check of the store.
func (s *Service) IsHealthy(ctx context.Context) bool {
	if hm, ok := s.store.(HealthMonitor); ok {
		return hm.Ping(ctx) == nil
	}
	return true
}

// Health performs a health check of the database connection, including
// latency and pool statistics when the store owns the connection.
func (s *PostgresStore) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.Health(ctx)
	}

	status := dbkit.HealthStatus{Healthy: true}
	if err := s.Ping(ctx); err != nil {
		status.Healthy = false
		status.Error = err.Error()
	}
	return status
}

// Ping performs a basic connectivity test to the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	var result int
	return dbkit.WithErr1(s.db.NewRaw("SELECT 1").Scan(ctx, &result), "Ping").Err()
}
