package http

import "github.com/labstack/echo/v4"

// Handler registers a route surface on the embedded server. The chart API
// and the renderer websocket endpoint both attach through this.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
