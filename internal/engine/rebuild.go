package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/scrypster/rollcall/pkg/types"
)

// ErrRebuildFailed is matched by every *RebuildError.
var ErrRebuildFailed = errors.New("index rebuild failed")

// RebuildError reports a failed rebuild. The previously published snapshot
// stays in place; PreviousBuiltAt says how old it is.
type RebuildError struct {
	Err             error
	PreviousBuiltAt time.Time
}

func (e *RebuildError) Error() string {
	return fmt.Sprintf("%s (serving snapshot from %s): %v",
		ErrRebuildFailed, e.PreviousBuiltAt.Format(time.RFC3339), e.Err)
}

func (e *RebuildError) Unwrap() error { return e.Err }

func (e *RebuildError) Is(target error) bool { return target == ErrRebuildFailed }

// Rebuild reloads every entity from the source and publishes a new snapshot.
// On failure it returns a *RebuildError and keeps serving the old snapshot.
func (e *Engine) Rebuild(ctx context.Context) error {
	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()

	started := time.Now()
	entities, err := e.source.ListEntities(ctx)
	if err != nil {
		prev := e.snap.Load()
		e.logger.Warn("rebuild failed; keeping previous snapshot", "err", err, "entities", len(prev.entities))
		return &RebuildError{Err: err, PreviousBuiltAt: prev.builtAt}
	}

	e.publish(entities)
	e.logger.Info("index rebuilt", "entities", len(entities), "took", time.Since(started))
	return nil
}

// RebuildFrom publishes a snapshot built from entities supplied by the caller.
func (e *Engine) RebuildFrom(entities []types.Entity) {
	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()
	e.publish(entities)
}

// publish requires rebuildMu. Invalid entities are skipped with a warning.
func (e *Engine) publish(entities []types.Entity) {
	valid := make([]types.Entity, 0, len(entities))
	for _, ent := range entities {
		if err := ent.Validate(); err != nil {
			e.logger.Warn("skipping entity", "err", err)
			continue
		}
		valid = append(valid, ent)
	}
	e.snap.Store(buildSnapshot(valid, e.clock.Now()))
}

// Rebuilder coalesces rebuild requests and throttles them. Any number of
// Trigger calls while a rebuild is pending or running collapse into one
// follow-up rebuild.
type Rebuilder struct {
	engine  *Engine
	limiter *rate.Limiter
	trigger chan struct{}
	logger  *log.Logger
}

// NewRebuilder allows one rebuild per minInterval with the given burst.
// A zero minInterval disables throttling.
func NewRebuilder(e *Engine, minInterval time.Duration, burst int) *Rebuilder {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	if burst < 1 {
		burst = 1
	}
	return &Rebuilder{
		engine:  e,
		limiter: rate.NewLimiter(limit, burst),
		trigger: make(chan struct{}, 1),
		logger:  e.logger,
	}
}

// Trigger requests a rebuild without blocking.
func (r *Rebuilder) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run performs triggered rebuilds until ctx is done, then returns ctx.Err().
// Failed rebuilds are logged; the next trigger retries.
func (r *Rebuilder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.trigger:
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}
		if err := r.engine.Rebuild(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("triggered rebuild failed", "err", err)
		}
	}
}
