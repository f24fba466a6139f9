package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/pixil98/go-arena/internal/client"
	"github.com/pixil98/go-arena/internal/connstate"
	"github.com/pixil98/go-log"
)

// probe connects to a running registry, joins, and logs every lifecycle
// transition and roster message it sees. Handy for watching a server from
// the outside without a game client.
func main() {
	var url, username string
	var maxAttempts int
	flag.StringVar(&url, "url", "ws://localhost:8080/ws", "registry websocket url")
	flag.StringVar(&username, "username", "probe", "username to join as")
	flag.IntVar(&maxAttempts, "max-attempts", 0, "reconnect attempts before giving up (0 = forever)")
	flag.Parse()

	logger := log.NewLogger()

	c := client.NewClient(url, username, client.WithMaxAttempts(maxAttempts))

	c.State().Subscribe(func(ev connstate.ChangeEvent) {
		entry := logger.WithField("from", ev.Previous.String()).WithField("to", ev.Current.String())
		if ev.Error != "" {
			entry = entry.WithField("error", string(ev.Error)).WithField("message", ev.ErrorMessage)
		}
		entry.Info("connection state changed")
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		for msg := range c.Messages() {
			switch {
			case msg.Player != nil:
				logger.WithField("type", msg.Type).WithField("username", msg.Player.Username).Info("message")
			case len(msg.Players) > 0:
				logger.WithField("type", msg.Type).WithField("players", len(msg.Players)).Info("message")
			default:
				logger.WithField("type", msg.Type).WithField("id", msg.ID).Info("message")
			}
		}
	}()

	if err := c.Start(ctx); err != nil {
		logger.WithError(err).Fatal("running probe")
	}

	logger.Info("exiting")
}
