package backend

import (
	"context"

	"wallet/internal/services"
	"wallet/internal/storage"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Result is everything the services need from the outside world: a user
// store and, when AMQP is configured and reachable, an event publisher.
type Result struct {
	Store     storage.UserStore
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// json
	DataFile string
	// sqlite
	SQLiteDBPath string
	// postgres
	PostgresURL string

	// Optional ledger event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType names a UserStore implementation.
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	JSONBackend     BackendType = "json"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, JSONBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
