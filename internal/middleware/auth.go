package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskledger/pkg/httpcontext"
)

// AdminChecker answers whether a chat user holds admin rights.
type AdminChecker interface {
	IsAdmin(ctx context.Context, id string) (bool, error)
}

// JWTAuth accepts HMAC-signed tokens issued by the chat gateway and stores
// the token's user id on the request.
func JWTAuth(secret, issuer string, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("invalid jwt token", zap.Error(err))
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}
			if issuer != "" && !claims.VerifyIssuer(issuer, true) {
				logger.Warn("jwt issuer mismatch", zap.Any("iss", claims["iss"]))
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			userID := claimString(claims, "user_id")
			if userID == "" {
				userID = claimString(claims, "sub")
			}
			if userID == "" {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}
			httpcontext.SetActor(ctx, userID)

			next(ctx)
		}
	}
}

// RequireAdmin rejects requests from callers without admin rights.
func RequireAdmin(admins AdminChecker, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			actor := httpcontext.Actor(ctx)
			if actor == "" {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}
			ok, err := admins.IsAdmin(ctx, actor)
			if err != nil {
				logger.Error("admin check failed", zap.String("actor_id", actor), zap.Error(err))
				ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
				return
			}
			if !ok {
				ctx.SetStatusCode(fasthttp.StatusForbidden)
				return
			}
			next(ctx)
		}
	}
}

// claimString reads a string or numeric claim; chat ids are often numbers.
func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}
