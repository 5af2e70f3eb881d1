package backend

import (
	"context"
	"time"

	"savvy/internal/records"
	"savvy/internal/reference"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the record store and its lifecycle hooks.
type BackendResult struct {
	Store records.Store
	// Ping checks the store is reachable; nil when there is nothing to check.
	Ping    func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates record stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// PostgREST specific
	PostgRESTURL    string
	PostgRESTAPIKey string
	RequestTimeout  time.Duration

	// Memory specific: when DemoOwner is set the store is seeded with the
	// reference sample rows for that owner.
	DemoOwner string
	Reference *reference.Data
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend    BackendType = "sqlite"
	PostgRESTBackend BackendType = "postgrest"
	MemoryBackend    BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgRESTBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
