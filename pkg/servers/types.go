package servers

import (
	"net/http"

	"github.com/qmdx00/lifecycle"
)

var (
	_ Server = (*httpServer)(nil)
	_ Server = (*baseServer)(nil)
)

type Server interface {
	lifecycle.Server
}

var (
	_ Application = (*lifecycle.App)(nil)
)

type Application interface {
	ID() string
	Name() string
	Version() string
	Metadata() map[string]string
	Attach(name string, server lifecycle.Server)
	Run() error
}

var (
	_ BuildHttpServerFn = BuildHttpServer
)

type BuildHttpServerFn func(name string, server *http.Server) (string, Server)

// NewServer builds the *http.Server for a handler listening on host:port.
func NewServer(host string, port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              host + ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
}
