package datastore

import (
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"

	"github.com/tphakala/exoplanet-go/internal/errors"
)

// MySQL server error numbers that indicate contention rather than a broken query
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// dbError creates a properly categorized database error with context.
// Lock contention is raised to high priority so it stands out in telemetry.
func dbError(err error, operation string, context ...any) error {
	builder := errors.NewStoreError(err, operation).
		Component("datastore")

	if isContention(err) {
		builder = builder.Priority(errors.PriorityHigh).Context("contention", true)
	}

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// missingField creates the validation error for an absent required field
func missingField(field string) error {
	return errors.Newf("Missing required field: %s", field).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}

// validationError creates a validation error for a present but unusable value
func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}

func isContention(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDeadlock || mysqlErr.Number == mysqlLockWaitTimeout
	}
	return false
}
