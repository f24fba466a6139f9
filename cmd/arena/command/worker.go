package command

import (
	"fmt"

	"github.com/pixil98/go-arena/internal/presence"
	"github.com/pixil98/go-arena/internal/registry"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	workers := service.WorkerList{}

	// The presence tap is optional; without nats the registry runs alone.
	var regOpts []registry.RegistryOpt
	if cfg.Nats != nil {
		natsServer, err := cfg.Nats.buildNatsServer()
		if err != nil {
			return nil, fmt.Errorf("creating nats server: %w", err)
		}
		workers["nats"] = natsServer
		regOpts = append(regOpts, registry.WithPresenceSink(presence.NewPublisher(natsServer)))
	}

	reg := registry.NewRegistry(regOpts...)
	workers["listener"] = cfg.Listener.BuildListener(reg)

	return workers, nil
}
