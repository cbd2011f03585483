package health

import (
	"context"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/thkleonnobingu-create/rankboard-bot/internal/obslog"
)

// Server answers liveness probes so hosting platforms keep the bot awake.
type Server struct {
	addr string
	srv  *fasthttp.Server
}

func NewServer(addr string) *Server {
	s := &Server{addr: addr}
	s.srv = &fasthttp.Server{
		Handler: s.handle,
		Name:    "rankboard-health",
	}
	return s
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("I am alive!")
	case "/healthz":
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"status":"ok"}`)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	obslog.L().Info("health server listening", zap.String("addr", s.addr))
	return s.srv.ListenAndServe(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}
