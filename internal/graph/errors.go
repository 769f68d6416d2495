package graph

import (
	"context"
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrUnavailable marks the graph engine as unreachable. Callers treat it as
// terminal: batch work stops cleanly instead of retrying, keeping whatever
// results were already persisted. Any other query error is per-call and the
// affected unit of work is skipped.
var ErrUnavailable = errors.New("graph engine unavailable")

// IsUnavailable reports whether err indicates the engine itself is down,
// as opposed to a single traversal failing.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	return neo4j.IsConnectivityError(err)
}

// classifyError tags driver connectivity faults with ErrUnavailable so that
// callers can rely on errors.Is without importing the driver. Context
// cancellation passes through untouched.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if neo4j.IsConnectivityError(err) {
		return errors.Join(ErrUnavailable, err)
	}
	return err
}
