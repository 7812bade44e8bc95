package app

import (
	"net/http"

	"github.com/lambda-feedback/wrangler/internal/server"
)

func NewHealthRoute() server.HttpHandlerResult {
	return server.AsHttpHandler("GET /healthz", http.HandlerFunc(HealthHandler))
}

func NewStatusRoute(handler *StatusHandler) server.HttpHandlerResult {
	return server.AsHttpHandler("GET /statusz", handler)
}
