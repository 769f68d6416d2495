package graph

import (
	"context"
	"sync"
)

// MemoryClient is a simple in-memory implementation of the Client interface
// used for unit testing traversal logic without a running graph engine.
// Results and errors are scripted per call, in order, so a test can make a
// specific page, category lookup, or aggregation fail while its neighbors
// succeed.
type MemoryClient struct {
	mu           sync.Mutex
	readCalls    []ExecutedQuery
	queue        []scriptedStep
	err          error
	connectivity error
}

type scriptedStep struct {
	res Result
	err error
}

// ExecutedQuery captures a traversal statement and parameters executed
// against the graph.
type ExecutedQuery struct {
	Query  string
	Params map[string]any
}

// NewMemoryClient instantiates the in-memory client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// WithError configures the client to return the provided error for every
// subsequent call, ahead of any scripted steps.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityError forces VerifyConnectivity to return the supplied error.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// PushResult appends a result returned by the next unscripted ExecuteRead call.
func (m *MemoryClient) PushResult(res Result) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, scriptedStep{res: res})
	return m
}

// PushError appends an error returned by the next unscripted ExecuteRead call.
func (m *MemoryClient) PushError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, scriptedStep{err: err})
	return m
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return Result{}, m.err
	}

	m.readCalls = append(m.readCalls, ExecutedQuery{
		Query:  cypher,
		Params: cloneMap(params),
	})

	if len(m.queue) == 0 {
		return Result{}, nil
	}

	step := m.queue[0]
	m.queue = m.queue[1:]
	return step.res, step.err
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	return nil
}

// ReadCalls returns a snapshot of executed read queries.
func (m *MemoryClient) ReadCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.readCalls...)
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
