package userkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTransactionMonitor tests the running statistics
func TestTransactionMonitor(t *testing.T) {
	tm := newTransactionMonitor()

	metrics := tm.getMetrics()
	assert.Zero(t, metrics.TotalTransactions)
	assert.Zero(t, metrics.FailureRate())
	assert.True(t, tm.healthy(0.1))

	tm.recordTransaction(30*time.Millisecond, true)
	tm.recordTransaction(10*time.Millisecond, true)
	tm.recordTransaction(20*time.Millisecond, false)

	metrics = tm.getMetrics()
	assert.Equal(t, int64(3), metrics.TotalTransactions)
	assert.Equal(t, int64(2), metrics.SuccessfulTransactions)
	assert.Equal(t, int64(1), metrics.FailedTransactions)
	assert.Equal(t, 20*time.Millisecond, metrics.AverageDuration)
	assert.Equal(t, 30*time.Millisecond, metrics.MaxDuration)
	assert.Equal(t, 10*time.Millisecond, metrics.MinDuration)
	assert.InDelta(t, 1.0/3.0, metrics.FailureRate(), 0.0001)
	assert.False(t, tm.healthy(0.1))

	before := metrics.LastReset
	tm.reset()
	metrics = tm.getMetrics()
	assert.Zero(t, metrics.TotalTransactions)
	assert.Zero(t, metrics.MinDuration)
	assert.False(t, metrics.LastReset.Before(before))
}

// TestServiceTransactionMetrics tests that service operations feed the monitor
func TestServiceTransactionMetrics(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	u := mustInsertUser(t, store, "editor")
	_, err := s.SetPlugins(ctx, u, []string{"refinery_pages"})
	require.NoError(t, err)

	metrics := s.GetTransactionMetrics()
	assert.Equal(t, int64(1), metrics.TotalTransactions)
	assert.True(t, s.IsTransactionHealthy())

	require.NoError(t, store.DeleteUser(ctx, u.ID))
	_, err = s.SetPlugins(ctx, u, []string{"refinery_images"})
	require.Error(t, err)

	metrics = s.GetTransactionMetrics()
	assert.Equal(t, int64(1), metrics.FailedTransactions)
	assert.False(t, s.IsTransactionHealthy())

	s.ResetTransactionMetrics()
	assert.Zero(t, s.GetTransactionMetrics().TotalTransactions)
	assert.True(t, s.IsTransactionHealthy())
}
