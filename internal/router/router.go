package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reservita/internal/handler"
	"github.com/iliyamo/reservita/internal/middleware"
	"github.com/iliyamo/reservita/internal/model"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Auth      *handler.AuthHandler
	Events    *handler.EventHandler
	Tickets   *handler.TicketHandler
	Reviews   *handler.ReviewHandler
	Favorites *handler.FavoriteHandler
}

// Middlewares are the cross-cutting pieces applied to selected groups.
// RateLimit and Cache may be nil when Redis is disabled.
type Middlewares struct {
	Tokens    middleware.AccessParser
	RateLimit *middleware.RateLimiter
	Cache     *middleware.ResponseCache
}

// RegisterRoutes maps every /v1 endpoint onto e.
func RegisterRoutes(e *echo.Echo, h Handlers, m Middlewares) {
	auth := middleware.JWTAuth(m.Tokens)
	optional := middleware.OptionalJWTAuth(m.Tokens)
	limit := m.RateLimit.Middleware()

	// sessions
	a := e.Group("/v1/auth")
	a.POST("/register", h.Auth.Register, limit)
	a.POST("/login", h.Auth.Login, limit)
	a.POST("/refresh", h.Auth.Refresh)
	a.POST("/logout", h.Auth.Logout, optional)
	me := e.Group("/v1/me", auth)
	me.GET("", h.Auth.Me)
	me.PATCH("", h.Auth.UpdateProfile)
	me.PATCH("/password", h.Auth.ChangePassword, limit)

	// public browsing; listings are cached per caller because is_favorited
	// depends on who is asking
	ev := e.Group("/v1/events", optional)
	ev.GET("", h.Events.List, m.Cache.Middleware())
	ev.GET("/:id", h.Events.Get)
	ev.GET("/:id/seats", h.Events.Seats)
	ev.GET("/:id/reviews", h.Reviews.ListByEvent)
	e.GET("/v1/reviews/:id", h.Reviews.Get)

	// agencies manage their own events
	my := e.Group("/v1/my-events", auth, middleware.RequireRole(model.RoleAgency))
	my.GET("", h.Events.ListMine)
	my.POST("", h.Events.Create)
	my.PUT("/:id", h.Events.Update)

	// door scanners are not users
	e.POST("/v1/tickets/qr/verify", h.Tickets.Verify, limit)

	t := e.Group("/v1/tickets", auth)
	t.POST("", h.Tickets.Book, limit)
	t.GET("", h.Tickets.List)
	t.GET("/:id", h.Tickets.Get)
	t.DELETE("/:id", h.Tickets.Cancel)
	t.GET("/:id/qr", h.Tickets.QR)
	t.POST("/:id/review", h.Reviews.Create)

	r := e.Group("/v1/reviews", auth)
	r.PUT("/:id", h.Reviews.Update)
	r.DELETE("/:id", h.Reviews.Delete)

	f := e.Group("/v1/favorites", auth)
	f.GET("", h.Favorites.List)
	f.POST("", h.Favorites.Add)
	f.DELETE("/:event_id", h.Favorites.Remove)
}
