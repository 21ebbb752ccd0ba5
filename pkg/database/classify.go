package database

import (
	"context"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Combine-Capital/logtable/pkg/errors"
)

// Retryable SQLSTATE classes: connection exception, transaction rollback
// (serialization failures, deadlocks) and insufficient resources.
var temporaryClasses = []string{"08", "40", "53"}

// Classify categorizes a driver error. Timeouts, network failures and
// retryable SQLSTATE classes become Temporary; every other server error
// becomes Permanent. Already categorized errors and nil pass through.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.IsTemporary(err) || errors.IsPermanent(err) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return errors.NewPermanent("database operation canceled", err)
	}
	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return errors.NewTemporary("database operation timed out", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		for _, class := range temporaryClasses {
			if strings.HasPrefix(pgErr.Code, class) {
				return errors.NewTemporary("database temporarily unavailable", err)
			}
		}
		return errors.NewPermanent("database rejected the operation", err)
	}

	if pgconn.SafeToRetry(err) {
		return errors.NewTemporary("database connection failed before sending", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return errors.NewTemporary("database network failure", err)
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return errors.NewTemporary("database connection failed", err)
	}

	return errors.NewPermanent("database operation failed", err)
}
