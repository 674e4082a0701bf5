package ai

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// Runtime owns the process-wide embedding service lifecycle. It replaces
// ambient module state with an injectable handle: construct once, pass to
// whoever needs to embed.
type Runtime struct {
	cfg *Config

	mu      sync.RWMutex
	service EmbeddingService
	ready   atomic.Bool

	// Concurrent Initialize calls collapse into one in-flight load and all
	// callers observe the same outcome.
	loadGroup singleflight.Group
}

// NewRuntime creates a Runtime around the given config. The embedding service
// is not constructed until Initialize is called.
func NewRuntime(cfg *Config) *Runtime {
	return &Runtime{cfg: cfg}
}

// Initialize constructs the embedding service and verifies the provider is
// reachable with a probe request. Safe to call from multiple goroutines.
func (r *Runtime) Initialize(ctx context.Context) error {
	_, err, _ := r.loadGroup.Do("initialize", func() (any, error) {
		if r.ready.Load() {
			return nil, nil
		}

		if err := r.cfg.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid embedding config")
		}

		service, err := NewEmbeddingService(&r.cfg.Embedding)
		if err != nil {
			return nil, errors.Wrap(err, "create embedding service")
		}

		start := time.Now()
		probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if _, err := service.Embed(probeCtx, "ping"); err != nil {
			return nil, errors.Wrap(err, "embedding probe failed")
		}

		r.mu.Lock()
		r.service = service
		r.mu.Unlock()
		r.ready.Store(true)

		slog.Info("embedding service ready",
			"provider", r.cfg.Embedding.Provider,
			"model", service.Model(),
			"dimensions", service.Dimensions(),
			"elapsed", time.Since(start))
		return nil, nil
	})
	return err
}

// IsReady reports whether the embedding service has been initialized.
func (r *Runtime) IsReady() bool {
	return r.ready.Load()
}

// Service returns the embedding service, or ErrEmbeddingUnavailable before a
// successful Initialize.
func (r *Runtime) Service() (EmbeddingService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.ready.Load() || r.service == nil {
		return nil, ErrEmbeddingUnavailable
	}
	return r.service, nil
}

// Shutdown releases the embedding service. Subsequent Service calls fail
// until Initialize succeeds again.
func (r *Runtime) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready.Store(false)
	r.service = nil
	slog.Info("embedding service shut down")
}
