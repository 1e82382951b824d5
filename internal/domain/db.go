package domain

import "context"

// Database defines lifecycle operations for the underlying database.
// Each implementation owns its own migration files and strategy, so the
// validation store can be swapped without touching the services.
type Database interface {
	Migrate(ctx context.Context) error
	Close() error
}
