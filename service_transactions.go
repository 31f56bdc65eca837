package userkit

import (
	"context"
	"time"
)

// transaction runs fn against a transactional view of the store and records
// the outcome in the transaction monitor and metrics. Nested calls made with a
// transactional store join the outer transaction (a savepoint on Postgres).
func (s *Service) transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	start := time.Now()
	err := s.store.Transaction(ctx, fn)

	duration := time.Since(start)
	s.txMonitor.recordTransaction(duration, err == nil)
	s.metrics.recordTransaction(duration, err == nil)

	if err != nil {
		s.log.WithError(err).WithField("duration", duration).Debug("transaction rolled back")
	}
	return err
}

// GetTransactionMetrics returns statistics for the transactions run by the service.
func (s *Service) GetTransactionMetrics() TransactionMetrics {
	return s.txMonitor.getMetrics()
}

// ResetTransactionMetrics clears the transaction statistics.
func (s *Service) ResetTransactionMetrics() {
	s.txMonitor.reset()
}

// IsTransactionHealthy reports false when more than a tenth of the recorded
// transactions failed.
func (s *Service) IsTransactionHealthy() bool {
	return s.txMonitor.healthy(0.1)
}
