package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxRows is the row quota of an execution unless WithMaxRows
// overrides it.
const DefaultMaxRows = 1_000_000

// RowQuota counts the database rows one execution reads and stops it past
// a limit. The count covers every block and is taken before pagination,
// so it bounds the work done, not the rows returned.
type RowQuota struct {
	maxRows int
	current int
}

// NewRowQuota creates a quota allowing maxRows rows. A non-positive
// maxRows disables the quota.
func NewRowQuota(maxRows int) *RowQuota {
	return &RowQuota{maxRows: maxRows}
}

// Check counts one row and returns RowsExceededError once the count
// passes the limit.
func (q *RowQuota) Check(requestID string) error {
	q.current++
	if q.maxRows > 0 && q.current > q.maxRows {
		return &RowsExceededError{RequestID: requestID, Rows: q.current, Limit: q.maxRows}
	}
	return nil
}

// Current returns the rows counted so far.
func (q *RowQuota) Current() int {
	return q.current
}

// MaxRows returns the limit.
func (q *RowQuota) MaxRows() int {
	return q.maxRows
}

// RowsExceededError ends an execution that read more rows than allowed.
type RowsExceededError struct {
	RequestID string
	Rows      int
	Limit     int
}

func (e *RowsExceededError) Error() string {
	return fmt.Sprintf("request %s exceeded row quota: %d rows > %d limit",
		e.RequestID, e.Rows, e.Limit)
}

// IsRowsExceededError returns true if the error is a RowsExceededError.
// Uses errors.As to handle wrapped errors.
func IsRowsExceededError(err error) bool {
	var re *RowsExceededError
	return errors.As(err, &re)
}
