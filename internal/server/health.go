package server

import (
	"context"
	"fmt"

	"github.com/devansh/coview/backend/internal/cache"
	"github.com/devansh/coview/backend/internal/graph"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// ReadinessProbe verifies graph connectivity and that the recommendation
// store answers reads.
type ReadinessProbe struct {
	Client graph.Client
	Store  cache.Store
}

// Probe implements the HealthService interface.
func (p ReadinessProbe) Probe(ctx context.Context) error {
	if p.Client != nil {
		if err := p.Client.VerifyConnectivity(ctx); err != nil {
			return fmt.Errorf("graph: %w", err)
		}
	}
	if p.Store != nil {
		// The key never exists; the probe only asserts the store answers.
		if _, _, err := p.Store.Get(ctx, "healthz"); err != nil {
			return fmt.Errorf("store: %w", err)
		}
	}
	return nil
}
