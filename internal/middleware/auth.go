package middleware

import (
	"encoding/json"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/pkg/httpcontext"
)

// TokenVerifier resolves a bearer token to the acting user id.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

func JWTAuth(verifier TokenVerifier, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				deny(ctx, fasthttp.StatusUnauthorized, domain.ErrCodeUnauthorized, "missing token")
				return
			}

			actorID, err := verifier.Verify(tokenString)
			if err != nil {
				logger.Warn("invalid jwt token", zap.Error(err))
				if domain.IsDomainError(err, domain.ErrCodeForbidden) {
					deny(ctx, fasthttp.StatusForbidden, domain.ErrCodeForbidden, "admin only")
					return
				}
				deny(ctx, fasthttp.StatusUnauthorized, domain.ErrCodeUnauthorized, "invalid token")
				return
			}

			ctx.SetUserValue(httpcontext.ActorValue, actorID)
			next(ctx)
		}
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

func deny(ctx *fasthttp.RequestCtx, status int, code domain.ErrorCode, message string) {
	body, _ := json.Marshal(map[string]string{
		"status": "error",
		"code":   string(code),
		"error":  message,
	})
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
