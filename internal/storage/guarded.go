package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sony/gobreaker"

	"github.com/scrypster/rollcall/pkg/types"
)

// ErrCircuitOpen is returned when the source breaker is open and rejects
// reads to avoid hammering an unavailable directory.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig holds the configuration for Guarded.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures required to trip the circuit.
	// Default: 3
	MaxFailures uint32

	// Timeout is the duration the circuit stays open before transitioning to half-open.
	// Default: 30 seconds
	Timeout time.Duration

	// HalfOpenMaxSuccesses is the number of trial requests allowed while half-open.
	// Default: 1
	HalfOpenMaxSuccesses uint32
}

// BreakerMetrics counts calls through the breaker.
type BreakerMetrics struct {
	TotalRequests        uint64
	TotalSuccesses       uint64
	TotalFailures        uint64
	ConsecutiveFailures  uint32
	ConsecutiveSuccesses uint32
}

// Guarded wraps an EntitySource with a circuit breaker.
//
// When closed, ListEntities passes through. After MaxFailures consecutive
// failures the circuit opens and ListEntities fails fast with ErrCircuitOpen
// until Timeout has elapsed, then one trial call decides whether to close.
type Guarded struct {
	source  EntitySource
	breaker *gobreaker.CircuitBreaker
	logger  *log.Logger

	mu      sync.Mutex
	metrics BreakerMetrics
}

// NewGuarded wraps source. Zero config fields take their defaults; a nil
// logger disables state-change logging.
func NewGuarded(source EntitySource, config BreakerConfig, logger *log.Logger) *Guarded {
	if config.MaxFailures == 0 {
		config.MaxFailures = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.HalfOpenMaxSuccesses == 0 {
		config.HalfOpenMaxSuccesses = 1
	}

	g := &Guarded{source: source, logger: logger}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "directory",
		MaxRequests: config.HalfOpenMaxSuccesses,
		Interval:    0, // never clear counts while closed
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if g.logger != nil {
				g.logger.Warn("circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	})
	return g
}

// ListEntities reads through the breaker.
func (g *Guarded) ListEntities(ctx context.Context) ([]types.Entity, error) {
	if err := ctx.Err(); err != nil {
		g.record(err)
		return nil, err
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.source.ListEntities(ctx)
	})
	g.record(err)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return result.([]types.Entity), nil
}

// State returns "closed", "open" or "half-open".
func (g *Guarded) State() string {
	return g.breaker.State().String()
}

// Metrics returns a copy of the call counters.
func (g *Guarded) Metrics() BreakerMetrics {
	g.mu.Lock()
	defer g.mu.Unlock()

	counts := g.breaker.Counts()
	m := g.metrics
	m.ConsecutiveFailures = counts.ConsecutiveFailures
	m.ConsecutiveSuccesses = counts.ConsecutiveSuccesses
	return m
}

func (g *Guarded) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.metrics.TotalRequests++
	if err != nil {
		g.metrics.TotalFailures++
	} else {
		g.metrics.TotalSuccesses++
	}
}
