package health

import (
	"testing"

	"github.com/valyala/fasthttp"
)

func doRequest(t *testing.T, s *Server, path string) *fasthttp.RequestCtx {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI(path)
	s.handle(&ctx)
	return &ctx
}

func TestRootAnswersAlive(t *testing.T) {
	s := NewServer(":0")
	ctx := doRequest(t, s, "/")
	if got := string(ctx.Response.Body()); got != "I am alive!" {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestHealthzAnswersJSON(t *testing.T) {
	s := NewServer(":0")
	ctx := doRequest(t, s, "/healthz")
	if got := string(ctx.Response.Body()); got != `{"status":"ok"}` {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestUnknownPathIs404(t *testing.T) {
	s := NewServer(":0")
	ctx := doRequest(t, s, "/nope")
	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("unexpected status: %d", ctx.Response.StatusCode())
	}
}
