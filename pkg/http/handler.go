package http

import "github.com/labstack/echo/v4"

// Handler mounts its routes on the server's Echo instance. /metrics is
// registered by the server itself and must not be claimed by a Handler.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
