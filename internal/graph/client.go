package graph

import (
	"context"
	"errors"
	"time"
)

// Client defines the minimal contract required to execute read traversals
// against the underlying graph engine. The recommendation system never
// mutates the graph, so no write surface is exposed.
type Client interface {
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result is a simplified representation of a query response.
type Result struct {
	Records []Record
}

// Record groups key-value pairs returned from the graph engine.
type Record map[string]any

// Options configures a graph client implementation.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
	// QueryTimeout bounds each traversal call when positive. A timed-out
	// call surfaces context.DeadlineExceeded, which is a per-call failure,
	// not an engine-unavailable condition.
	QueryTimeout time.Duration
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
