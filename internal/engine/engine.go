package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/scrypster/rollcall/internal/clock"
	"github.com/scrypster/rollcall/internal/queue"
	"github.com/scrypster/rollcall/internal/reminders"
	"github.com/scrypster/rollcall/internal/storage"
)

// Engine is the in-memory indexing and scheduling engine.
type Engine struct {
	config Config

	// Storage layer. source defaults to store and is what Rebuild reads;
	// callers usually pass a storage.Guarded here.
	store  storage.Directory
	source storage.EntitySource

	snap      atomic.Pointer[snapshot]
	rebuildMu sync.Mutex
	bookMu    sync.Mutex

	queue     *queue.Queue
	reminders *reminders.Notifier

	clock  clock.Clock
	logger *log.Logger

	mu       sync.RWMutex
	onChange func(eventType string, entityID int64)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSource sets the entity source used by Rebuild.
func WithSource(src storage.EntitySource) Option {
	return func(e *Engine) { e.source = src }
}

// WithLogger sets the logger (default: the charmbracelet default logger).
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the clock used for timestamps and the reminder notifier.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// New creates an engine over store. The index starts empty; call Rebuild.
func New(store storage.Directory, cfg Config, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("directory store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{
		config: cfg,
		store:  store,
		source: store,
		queue:  queue.New(),
		clock:  clock.Real(),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.reminders = reminders.New(e.clock)
	e.snap.Store(emptySnapshot())
	return e, nil
}

// SetOnChange sets a callback fired after a booking is added or removed.
// The serve command wires it to notify.EventWriter so other processes learn
// about the change.
func (e *Engine) SetOnChange(callback func(eventType string, entityID int64)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = callback
}

func (e *Engine) changed(eventType string, entityID int64) {
	e.mu.RLock()
	cb := e.onChange
	e.mu.RUnlock()
	if cb != nil {
		cb(eventType, entityID)
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Queue returns the request queue.
func (e *Engine) Queue() *queue.Queue {
	return e.queue
}

// Reminders returns the deferred notifier.
func (e *Engine) Reminders() *reminders.Notifier {
	return e.reminders
}

// Stats describes the currently published snapshot.
func (e *Engine) Stats() Stats {
	s := e.snap.Load()
	return Stats{
		Entities: len(s.entities),
		Tokens:   s.index.Len(),
		Edges:    len(s.graph.Edges()),
		BuiltAt:  s.builtAt,
	}
}
