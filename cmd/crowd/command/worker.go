package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-crowd/internal/console"
	"github.com/pixil98/go-crowd/internal/driver"
	"github.com/pixil98/go-crowd/internal/listener"
	"github.com/pixil98/go-crowd/internal/messaging"
	"github.com/pixil98/go-crowd/internal/sim"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	// Load asset stores
	dict, err := cfg.Storage.BuildDictionary()
	if err != nil {
		return nil, fmt.Errorf("building dictionary: %w", err)
	}

	// Embedded NATS server for event publishing
	natsServer, err := cfg.Nats.BuildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	// Set up the simulation
	co := sim.NewCoordinator(messaging.NewEventPublisher(natsServer))
	spawner := sim.NewSpawner(co, dict.Visitors, nil)

	scenarioId, scenario, err := cfg.Simulation.LookupScenario(dict)
	if err != nil {
		return nil, err
	}
	if err := spawner.Populate(scenarioId, scenario); err != nil {
		return nil, fmt.Errorf("populating scenario: %w", err)
	}

	if minWait, maxWait, ok, err := cfg.Simulation.WaitOverride(); err != nil {
		return nil, err
	} else if ok {
		co.ApplyWaitOverride(minWait, maxWait)
	}

	// Create listeners serving the monitor console
	monitor := console.NewMonitor(co, spawner, scenario, dict.Visitors, natsServer)
	cm := listener.NewConnectionManager(monitor)

	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		lst, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = lst
	}

	// Set up the simulation driver
	var opts []driver.SimDriverOpt
	if cfg.TickInterval != "" {
		d, err := time.ParseDuration(cfg.TickInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing tick_interval: %w", err)
		}
		opts = append(opts, driver.WithTickLength(d))
	}
	drv := driver.NewSimDriver([]driver.Manager{co}, opts...)

	// Create a worker list
	return service.WorkerList{
		"driver":    drv,
		"listeners": &listeners,
		"nats":      natsServer,
	}, nil
}
