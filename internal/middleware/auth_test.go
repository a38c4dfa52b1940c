package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskledger/pkg/httpcontext"
)

const secret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func run(handler fasthttp.RequestHandler, authorization string) *fasthttp.RequestCtx {
	var rc fasthttp.RequestCtx
	if authorization != "" {
		rc.Request.Header.Set("Authorization", authorization)
	}
	handler(&rc)
	return &rc
}

func ok(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(fasthttp.StatusOK) }

func TestJWTAuth(t *testing.T) {
	auth := JWTAuth(secret, "gateway", nil)
	exp := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name   string
		header string
		status int
		actor  string
	}{
		{"missing", "", fasthttp.StatusUnauthorized, ""},
		{"garbage", "Bearer nope", fasthttp.StatusUnauthorized, ""},
		{"valid string id", "Bearer " + sign(t, jwt.MapClaims{"user_id": "42", "iss": "gateway", "exp": exp}), fasthttp.StatusOK, "42"},
		{"numeric sub", sign(t, jwt.MapClaims{"sub": float64(6106779069), "iss": "gateway", "exp": exp}), fasthttp.StatusOK, "6106779069"},
		{"wrong issuer", "Bearer " + sign(t, jwt.MapClaims{"user_id": "42", "iss": "other", "exp": exp}), fasthttp.StatusUnauthorized, ""},
		{"expired", "Bearer " + sign(t, jwt.MapClaims{"user_id": "42", "iss": "gateway", "exp": time.Now().Add(-time.Hour).Unix()}), fasthttp.StatusUnauthorized, ""},
		{"no subject", "Bearer " + sign(t, jwt.MapClaims{"iss": "gateway", "exp": exp}), fasthttp.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var actor string
			handler := auth(func(ctx *fasthttp.RequestCtx) {
				actor = httpcontext.Actor(ctx)
				ok(ctx)
			})
			rc := run(handler, tc.header)
			if rc.Response.StatusCode() != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rc.Response.StatusCode())
			}
			if actor != tc.actor {
				t.Fatalf("expected actor %q, got %q", tc.actor, actor)
			}
		})
	}
}

type staticAdmins map[string]bool

func (s staticAdmins) IsAdmin(_ context.Context, id string) (bool, error) {
	return s[id], nil
}

func TestRequireAdmin(t *testing.T) {
	guard := RequireAdmin(staticAdmins{"1": true}, nil)(ok)

	var anon fasthttp.RequestCtx
	guard(&anon)
	if anon.Response.StatusCode() != fasthttp.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", anon.Response.StatusCode())
	}

	var user fasthttp.RequestCtx
	httpcontext.SetActor(&user, "2")
	guard(&user)
	if user.Response.StatusCode() != fasthttp.StatusForbidden {
		t.Fatalf("expected 403, got %d", user.Response.StatusCode())
	}

	var admin fasthttp.RequestCtx
	httpcontext.SetActor(&admin, "1")
	guard(&admin)
	if admin.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("expected 200, got %d", admin.Response.StatusCode())
	}
}
