package server

import (
	"net/http"

	"go.uber.org/fx"
)

// HttpHandler binds a handler to a ServeMux pattern. The pattern may
// carry a method prefix, e.g. "GET /healthz".
type HttpHandler struct {
	Pattern string
	Handler http.Handler
}

// HttpHandlerResult is used by route constructors to contribute their
// handler to the server's handler group.
type HttpHandlerResult struct {
	fx.Out

	Handler *HttpHandler `group:"handlers"`
}

func AsHttpHandler(pattern string, handler http.Handler) HttpHandlerResult {
	return HttpHandlerResult{
		Handler: &HttpHandler{
			Pattern: pattern,
			Handler: handler,
		},
	}
}
