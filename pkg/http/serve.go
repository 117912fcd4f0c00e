package xhttp

import (
	"slices"
	"time"

	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/valyala/fasthttp"
)

type Server = fasthttp.Server

type ServerOption struct {
	Name               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	MaxRequestBodySize int
	Concurrency        int
}

var DefaultServerOption = ServerOption{
	Name:               "pos-ledger-ops",
	ReadTimeout:        5 * time.Second,
	WriteTimeout:       10 * time.Second,
	IdleTimeout:        30 * time.Second,
	MaxRequestBodySize: 64 * 1024,
	Concurrency:        256,
}

type Engine struct {
	*Router
	*Server
	middle []MiddlewareFunc
}

func NewServer(options ServerOption) *Engine {
	return &Engine{
		Server: &fasthttp.Server{
			Name:                  options.Name,
			ReadTimeout:           options.ReadTimeout,
			WriteTimeout:          options.WriteTimeout,
			IdleTimeout:           options.IdleTimeout,
			MaxRequestBodySize:    options.MaxRequestBodySize,
			Concurrency:           options.Concurrency,
			NoDefaultServerHeader: true,
			CloseOnShutdown:       true,
			Logger:                logger.GetLogger(),
		},
		Router: CreateDefaultRouter(),
	}
}

func CreateServer() *Engine {
	s := NewServer(DefaultServerOption)
	s.Use(RecoverMiddleware)
	s.Use(SlowRequestMiddleware)
	return s
}

// Use appends middleware; the first registered runs outermost.
func (e *Engine) Use(middleware MiddlewareFunc) {
	e.middle = append(e.middle, middleware)
}

// Handler builds the final handler chain around the router.
func (e *Engine) Handler() RequestHandler {
	h := e.Router.Handler
	chain := slices.Clone(e.middle)
	slices.Reverse(chain)
	for _, m := range chain {
		h = m(h)
	}
	return h
}

func (e *Engine) ListenAndServe(addr string) error {
	e.Server.Handler = e.Handler()
	logger.Info("[xhttp] server is listening", "addr", addr)
	return e.Server.ListenAndServe(addr)
}

func (e *Engine) Shutdown() {
	logger.Info("[xhttp] server is shutting down")
	if err := e.Server.Shutdown(); err != nil {
		logger.Error("[xhttp] error while shutting down", "error", err)
	}
}
