package handler // handler defines http handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arsipwarga/arsipwarga/internal/model"
)

// Narrow store interfaces declared on the consumer side. The repository
// types satisfy them; tests substitute in-memory fakes so the workflow
// and share state machines are exercised without a database.

// UserGetter re-reads the acting user. Workflow handlers call it on every
// role-gated operation so authorization always derives from stored state,
// never from a cached claim.
type UserGetter interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Clock supplies the authoritative current time. One reading is taken per
// request decision and reused for every comparison in that decision.
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}

// URLSigner mints time-limited download URLs for stored objects.
type URLSigner interface {
	SignedURL(path string, ttl time.Duration, now time.Time) (string, error)
}

// getUserID extracts the user_id set by the JWT middleware and converts
// it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseIDParam parses a positive numeric path parameter.
func parseIDParam(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
