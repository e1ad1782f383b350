package servers

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"calendar-photo-converter/pkg/resources"
)

// baseServer keeps the application alive until stopped, and releases the
// shared resources (database pool, telemetry exporters) on its way out.
type baseServer struct {
	name         string
	closeChannel chan struct{}
	closeOnce    sync.Once
	closables    []resources.Closable
}

func BuildBaseServer(closables ...resources.Closable) (string, Server) {
	return "base-server", NewBaseServer(closables...)
}

func NewBaseServer(closables ...resources.Closable) Server {
	return &baseServer{
		name:         "base-server",
		closeChannel: make(chan struct{}),
		closables:    closables,
	}
}

func (server *baseServer) Run(ctx context.Context) error {
	log.Ctx(ctx).Info().Str("stage", "startup").Str("component", server.name).Msg("starting up")

	select {
	case <-server.closeChannel:
	case <-ctx.Done():
	}

	return nil
}

func (server *baseServer) Stop(ctx context.Context) error {
	server.closeOnce.Do(func() {
		log.Ctx(ctx).Info().Str("stage", "shut down").Str("component", server.name).Msg("stopping")
		defer log.Ctx(ctx).Info().Str("stage", "shut down").Str("component", server.name).Msg("stopped")

		for _, closable := range server.closables {
			if closable != nil {
				closable.Close()
			}
		}

		close(server.closeChannel)
	})

	return nil
}
