package metrics

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const shutdownTimeout = 5 * time.Second

// Server exposes a prometheus gatherer on /metrics and a liveness probe on
// /live
type Server struct {
	server *fasthttp.Server
}

// NewServer creates a metrics server for gatherer
func NewServer(gatherer prometheus.Gatherer) *Server {
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	)

	return &Server{
		server: &fasthttp.Server{
			Name: "gojobs",
			Handler: func(ctx *fasthttp.RequestCtx) {
				switch string(ctx.Path()) {
				case "/metrics":
					metricsHandler(ctx)
				case "/live":
					ctx.SetContentType("application/json")
					ctx.SetBodyString(`{"status":"up"}`)
				default:
					ctx.Error("not found", fasthttp.StatusNotFound)
				}
			},
		},
	}
}

// Serve accepts connections on ln until ctx ends
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- s.server.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.server.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return <-errc
	}
}

// ListenAndServe listens on addr and serves until ctx ends
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
