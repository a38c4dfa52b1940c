package httpcontext

import (
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/taskledger/pkg/logger"
)

func TestAttachCarriesRequestMetadata(t *testing.T) {
	var rc fasthttp.RequestCtx
	rc.Request.Header.Set("X-Request-ID", "req-7")
	SetActor(&rc, "42")

	ctx, cancel := NewAdapter(time.Second).Attach(&rc)
	defer cancel()

	if string(rc.Response.Header.Peek("X-Request-ID")) != "req-7" {
		t.Fatal("expected request id echoed in response")
	}
	if appLogger.ActorID(ctx) != "42" {
		t.Fatalf("expected actor 42, got %q", appLogger.ActorID(ctx))
	}
	if _, ok := ctx.Deadline(); !ok {
		t.Fatal("expected deadline on attached context")
	}
}

func TestAttachGeneratesRequestID(t *testing.T) {
	var rc fasthttp.RequestCtx
	_, cancel := NewAdapter(0).Attach(&rc)
	defer cancel()

	if len(rc.Response.Header.Peek("X-Request-ID")) == 0 {
		t.Fatal("expected generated request id")
	}
}
