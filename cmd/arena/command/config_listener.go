package command

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-arena/internal/listener"
	"github.com/pixil98/go-arena/internal/registry"
	"github.com/pixil98/go-errors"
)

type ListenerConfig struct {
	Addr string `json:"addr"`
	Path string `json:"path,omitempty"`
}

func (cl *ListenerConfig) validate() error {
	el := errors.NewErrorList()

	if cl.Addr == "" {
		el.Add(fmt.Errorf("addr is required, e.g. \":8080\""))
	}
	if cl.Path != "" && !strings.HasPrefix(cl.Path, "/") {
		el.Add(fmt.Errorf("path must start with /"))
	}

	return el.Err()
}

func (cl *ListenerConfig) BuildListener(reg *registry.Registry) *listener.WebSocketListener {
	return listener.NewWebSocketListener(cl.Addr, cl.Path, reg)
}
