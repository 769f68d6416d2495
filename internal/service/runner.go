package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// ErrBuildInProgress is returned when a rebuild is requested while one is
// already running.
var ErrBuildInProgress = errors.New("a recommendation build is already running")

// BuildRunner serializes builder runs triggered while the server is up. The
// recommendation store is embedded and single-process, so co-located
// deployments rebuild through this runner instead of a second process.
type BuildRunner struct {
	baseCtx context.Context
	builder *Builder
	logger  *slog.Logger
	running atomic.Bool
}

// NewBuildRunner wraps a Builder for asynchronous, one-at-a-time execution.
// baseCtx bounds every triggered run; cancelling it (process shutdown) stops
// an in-flight build at the next product boundary.
func NewBuildRunner(baseCtx context.Context, builder *Builder, logger *slog.Logger) *BuildRunner {
	return &BuildRunner{
		baseCtx: baseCtx,
		builder: builder,
		logger:  logger.With("component", "build-runner"),
	}
}

// Start launches a builder run in the background, detached from the
// triggering request. At most one run is active at a time; a second request
// fails with ErrBuildInProgress.
func (r *BuildRunner) Start() error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrBuildInProgress
	}
	go func() {
		defer r.running.Store(false)
		if _, err := r.builder.Run(r.baseCtx); err != nil {
			r.logger.Error("triggered recommendation build failed", "error", err)
		}
	}()
	return nil
}

// Running reports whether a build is currently in flight.
func (r *BuildRunner) Running() bool {
	return r.running.Load()
}
