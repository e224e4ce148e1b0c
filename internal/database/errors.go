package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrIntegrity wraps constraint violations (SQLSTATE class 23).
	ErrIntegrity = errors.New("integrity violation")
	// ErrInvalidValue wraps data exceptions (SQLSTATE class 22).
	ErrInvalidValue = errors.New("invalid value")
	ErrNotFound     = errors.New("not found")
)

// classify maps postgres errors onto the package sentinels. The original
// error stays in the chain.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case strings.HasPrefix(pgErr.Code, "23"):
		return fmt.Errorf("%w: %w", ErrIntegrity, err)
	case strings.HasPrefix(pgErr.Code, "22"):
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	default:
		return err
	}
}
