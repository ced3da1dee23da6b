// Package transport moves serialized batches to a collection endpoint.
// Implementations classify failures so the delivery worker can decide
// between retrying and dropping a batch.
package transport

import (
	"context"
	"errors"

	"logship/internal/models"
)

// Transport delivers one batch per call. Send is synchronous from the
// delivery worker's point of view and must respect ctx for its deadline.
// A nil return means the batch was accepted by the collector. A returned
// error wrapped in PermanentError must not be retried; any other error
// is considered retryable.
type Transport interface {
	Send(ctx context.Context, batch *models.Batch) error
	Close() error
}

// PermanentError marks a delivery failure that retrying cannot fix,
// such as a rejected token or an invalid payload.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so IsPermanent reports true for it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is marked as non-retryable.
func IsPermanent(err error) bool {
	var permanentErr *PermanentError
	return errors.As(err, &permanentErr)
}
