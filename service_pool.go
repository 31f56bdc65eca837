package userkit

import (
	"fmt"
	"time"

	"github.com/fernandezvara/dbkit"
)

// PoolConfig holds the connection pool settings of a PostgresStore.
type PoolConfig struct {
	MaxOpenConnections    int           `mapstructure:"max_open_connections" validate:"gte=0"`
	MaxIdleConnections    int           `mapstructure:"max_idle_connections" validate:"gte=0"`
	ConnectionMaxLifetime time.Duration `mapstructure:"connection_max_lifetime"`
	ConnectionMaxIdleTime time.Duration `mapstructure:"connection_max_idle_time"`
}

// DefaultPoolConfig suits an admin backend with a handful of concurrent editors.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConnections:    10,
		MaxIdleConnections:    5,
		ConnectionMaxLifetime: time.Hour,
		ConnectionMaxIdleTime: 10 * time.Minute,
	}
}

// HighPerformancePoolConfig is meant for services answering access checks on
// every request.
func HighPerformancePoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConnections:    50,
		MaxIdleConnections:    25,
		ConnectionMaxLifetime: 30 * time.Minute,
		ConnectionMaxIdleTime: 5 * time.Minute,
	}
}

// ConfigureConnectionPool updates the database connection pool settings.
// Zero values leave the corresponding driver default untouched.
func (s *PostgresStore) ConfigureConnectionPool(config PoolConfig) error {
	db, ok := s.db.(*dbkit.DBKit)
	if !ok {
		return fmt.Errorf("connection pool configuration requires a dbkit.DBKit instance")
	}
	bunDB := db.Bun()
	if bunDB == nil {
		return fmt.Errorf("database instance not available")
	}

	if config.MaxOpenConnections > 0 {
		bunDB.SetMaxOpenConns(config.MaxOpenConnections)
	}
	if config.MaxIdleConnections > 0 {
		bunDB.SetMaxIdleConns(config.MaxIdleConnections)
	}
	if config.ConnectionMaxLifetime > 0 {
		bunDB.SetConnMaxLifetime(config.ConnectionMaxLifetime)
	}
	if config.ConnectionMaxIdleTime > 0 {
		bunDB.SetConnMaxIdleTime(config.ConnectionMaxIdleTime)
	}
	s.pool = config
	return nil
}

// GetConnectionPoolConfig returns the last applied pool configuration, with the
// open connection limit read back from the driver.
func (s *PostgresStore) GetConnectionPoolConfig() (*PoolConfig, error) {
	db, ok := s.db.(*dbkit.DBKit)
	if !ok {
		return nil, fmt.Errorf("connection pool configuration requires a dbkit.DBKit instance")
	}
	bunDB := db.Bun()
	if bunDB == nil {
		return nil, fmt.Errorf("database instance not available")
	}

	config := s.pool
	config.MaxOpenConnections = bunDB.Stats().MaxOpenConnections
	return &config, nil
}

// PoolStats returns connection pool statistics, or zero values inside a transaction.
func (s *PostgresStore) PoolStats() dbkit.PoolStats {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return dbkit.PoolStatsFromSQL(db.Stats())
	}
	return dbkit.PoolStats{}
}
