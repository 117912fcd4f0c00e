package xhttp

import (
	"time"

	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/valyala/fasthttp"
)

const slowThreshold = 500 * time.Millisecond

type MiddlewareFunc func(next RequestHandler) RequestHandler
type RequestCtx = fasthttp.RequestCtx
type RequestHandler = fasthttp.RequestHandler

const (
	StatusOK                  = fasthttp.StatusOK
	StatusNotFound            = fasthttp.StatusNotFound
	StatusInternalServerError = fasthttp.StatusInternalServerError
	StatusServiceUnavailable  = fasthttp.StatusServiceUnavailable
)

func StatusText(code int) string {
	return fasthttp.StatusMessage(code)
}

func RecoverMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		defer func() {
			if err := recover(); err != nil {
				ctx.Error(StatusText(StatusInternalServerError), StatusInternalServerError)
				logger.Error("[xhttp] panic recovered", "error", err, "path", string(ctx.Path()))
			}
		}()
		next(ctx)
	}
}

// SlowRequestMiddleware only logs failures and slow scrapes; the ops
// listener is hit every few seconds by prometheus.
func SlowRequestMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		start := time.Now()
		next(ctx)

		latency := time.Since(start)
		status := ctx.Response.StatusCode()
		if status < 500 && latency <= slowThreshold {
			return
		}
		logger.Warn("http_request",
			"status", status,
			"method", string(ctx.Method()),
			"path", string(ctx.Path()),
			"latency", latency.String(),
			"ip", ctx.RemoteIP().String(),
		)
	}
}
