package handler

import (
	"log/slog"
	"net/http"

	"github.com/thostetler/nectar-sub000/pkg/logger"
)

// HandlerFunc handles a request whose input has been decoded into req.
type HandlerFunc[R any] func(r *http.Request, req R) Response

// Bind decodes a request into v.
type Bind func(r *http.Request, v any) error

// ErrorHandler renders binding and rendering failures.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type WrapOption[R any] func(*wrapConfig[R])

type wrapConfig[R any] struct {
	binder       Bind
	errorHandler ErrorHandler
	log          *slog.Logger
}

// WithBinder decodes the request body before the handler runs. Binding
// errors are reported as 400 invalid-request-body.
func WithBinder[R any](b Bind) WrapOption[R] {
	return func(c *wrapConfig[R]) { c.binder = b }
}

func WithErrorHandler[R any](h ErrorHandler) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

func WithLogger[R any](l *slog.Logger) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		if l != nil {
			c.log = l
		}
	}
}

// DefaultErrorHandler renders err with Error.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	_ = Error(err).Render(w, r)
}

var errInvalidBody = NewHTTPError(http.StatusBadRequest, "invalid-request-body")

// Wrap converts h to an http.HandlerFunc.
func Wrap[R any](h HandlerFunc[R], opts ...WrapOption[R]) http.HandlerFunc {
	cfg := &wrapConfig[R]{
		errorHandler: DefaultErrorHandler,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req R
		if cfg.binder != nil {
			if err := cfg.binder(r, &req); err != nil {
				cfg.log.DebugContext(r.Context(), "request binding failed", logger.Error(err))
				cfg.errorHandler(w, r, errInvalidBody)
				return
			}
		}

		resp := h(r, req)
		if resp == nil {
			cfg.errorHandler(w, r, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			cfg.log.ErrorContext(r.Context(), "failed to render response", logger.Error(err))
		}
	}
}
