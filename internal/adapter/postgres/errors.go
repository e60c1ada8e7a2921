package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/heartmarshall/lingua-backend/internal/domain"
)

// mapError converts pgx/pgconn errors to *domain.GatewayError.
// Codes with a domain sentinel wrap both the sentinel and the original error.
// Context and connection failures map to "unavailable" and keep the cause.
func mapError(err error, op string, table domain.Table) error {
	if err == nil {
		return nil
	}

	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		return err
	}

	msg := fmt.Sprintf("%s %s", op, table)

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.NewGatewayError(domain.GatewayCodeUnavailable, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err) {
		return domain.NewGatewayError(domain.GatewayCodeNotFound, msg, fmt.Errorf("%w: %w", domain.ErrNotFound, err))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505": // unique_violation
			return domain.NewGatewayError(domain.GatewayCodeConflict, msg, fmt.Errorf("%w: %w", domain.ErrAlreadyExists, err))
		case pgErr.Code == "23503": // foreign_key_violation
			return domain.NewGatewayError(domain.GatewayCodeNotFound, msg, fmt.Errorf("%w: %w", domain.ErrNotFound, err))
		case pgErr.Code == "23514", // check_violation
			pgErr.Code == "23502", // not_null_violation
			pgErr.Code == "22P02", // invalid_text_representation
			pgErr.Code == "42703": // undefined_column
			return domain.NewGatewayError(domain.GatewayCodeInvalid, msg, fmt.Errorf("%w: %w", domain.ErrValidation, err))
		case strings.HasPrefix(pgErr.Code, "08"), // connection_exception class
			pgErr.Code == "57P01": // admin_shutdown
			return domain.NewGatewayError(domain.GatewayCodeUnavailable, msg, err)
		}
		return domain.NewGatewayError(domain.GatewayCodeInternal, msg, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return domain.NewGatewayError(domain.GatewayCodeUnavailable, msg, err)
	}

	return domain.NewGatewayError(domain.GatewayCodeInternal, msg, err)
}
