package driver

import (
	"context"
	"time"
)

const (
	DefaultTickLength = time.Millisecond * 250
)

// Manager is stepped once per simulation tick.
type Manager interface {
	Tick(context.Context) error
}

// SimDriver runs the simulation loop, ticking its managers on a fixed
// interval until the context is canceled.
type SimDriver struct {
	tickLength time.Duration
	managers   []Manager
}

func NewSimDriver(managers []Manager, opts ...SimDriverOpt) *SimDriver {
	d := &SimDriver{
		tickLength: DefaultTickLength,
		managers:   managers,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *SimDriver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := d.Tick(ctx)
			if err != nil {
				return err
			}
		}
	}
}

func (d *SimDriver) Tick(ctx context.Context) error {
	for _, m := range d.managers {
		if err := m.Tick(ctx); err != nil {
			return err
		}
	}
	return nil
}
