package database

import (
	"context"
	"database/sql"
	"time"
)

// Clock supplies the authoritative current time for every expiry decision.
// All share windows are compared against the database's own clock rather
// than the application host's, so a handler and the conditional updates it
// issues always agree on "now".
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}

// DBClock reads UTC time from MySQL. Microsecond precision matches the
// DATETIME(6) columns used by the share tables.
type DBClock struct{ DB *sql.DB }

func NewDBClock(db *sql.DB) *DBClock { return &DBClock{DB: db} }

// Now returns the current UTC timestamp as reported by the database.
func (c *DBClock) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	err := c.DB.QueryRowContext(ctx, "SELECT UTC_TIMESTAMP(6)").Scan(&now)
	if err != nil {
		return time.Time{}, err
	}
	return now.UTC(), nil
}
