package reminders

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Dispatcher drains due notifications on every tick and hands them to a
// delivery function.
type Dispatcher struct {
	notifier *Notifier
	deliver  func(Notification)
	logger   *log.Logger
}

// NewDispatcher wires a notifier to a delivery callback.
func NewDispatcher(n *Notifier, deliver func(Notification), logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{notifier: n, deliver: deliver, logger: logger}
}

// Run blocks until ctx is done, draining due notifications whenever ticks
// fires. It returns ctx.Err() on shutdown.
func (d *Dispatcher) Run(ctx context.Context, ticks <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			d.Drain()
		}
	}
}

// Drain delivers everything currently due and returns how many were sent.
func (d *Dispatcher) Drain() int {
	due := d.notifier.Due()
	for _, item := range due {
		d.deliver(item)
	}
	if len(due) > 0 {
		d.logger.Debug("reminders delivered", "count", len(due), "pending", d.notifier.Len())
	}
	return len(due)
}
