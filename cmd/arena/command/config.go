package command

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

type Config struct {
	Listener ListenerConfig `json:"listener"`
	Nats     *NatsConfig    `json:"nats,omitempty"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	err := c.Listener.validate()
	if err != nil {
		el.Add(fmt.Errorf("listener: %w", err))
	}

	if c.Nats != nil {
		err := c.Nats.validate()
		if err != nil {
			el.Add(fmt.Errorf("nats: %w", err))
		}
	}

	return el.Err()
}
