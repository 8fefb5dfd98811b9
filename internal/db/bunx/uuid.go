package bunx

import "github.com/google/uuid"

// NewUUIDv7 generates a time-ordered UUIDv7 string for database primary keys.
// UUIDv7 keeps index order friendly on both PostgreSQL and SQLite without
// relying on gen_random_uuid(). Panics only on entropy exhaustion, at which
// point nothing else would work either.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}
