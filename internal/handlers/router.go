package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/middleware"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
)

type Router struct {
	Auth      *AuthHandler
	Google    *GoogleOAuthHandler
	Profile   *ProfileHandler
	Catalog   *CatalogHandler
	Booking   *BookingHandler
	Payment   *PaymentHandler
	Dashboard *DashboardHandler
	Realtime  *RealtimeHandler

	Actors    middleware.ActorLoader
	JWTSecret string
	Limiter   *middleware.RateLimiter

	CORSOrigins string
	AccessLog   bool
}

// NewApp builds the fiber app with the ambient middleware and every route.
func (r *Router) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New())
	if r.AccessLog {
		app.Use(logger.New())
	}
	if r.CORSOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     r.CORSOrigins,
			AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
			ExposeHeaders:    "Content-Length",
			AllowCredentials: true,
		}))
	}

	r.Mount(app)
	return app
}

func (r *Router) Mount(app *fiber.App) {
	limit := func(c *fiber.Ctx) error { return c.Next() }
	if r.Limiter != nil {
		limit = r.Limiter.Handler()
	}
	authed := []fiber.Handler{
		middleware.JWTFromCookie(r.JWTSecret),
		middleware.AttachJWTLocals(),
		middleware.LoadActor(r.Actors),
	}
	with := func(extra ...fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, authed...), extra...)
	}

	api := app.Group("/api")

	// public
	api.Post("/auth/register", limit, r.Auth.Register)
	api.Post("/auth/login", limit, r.Auth.Login)
	api.Post("/auth/logout", r.Auth.Logout)
	if r.Google != nil {
		api.Get("/auth/google/start", r.Google.GoogleStart)
		api.Get("/auth/google/callback", limit, r.Google.GoogleCallback)
	}

	api.Get("/categories", r.Catalog.GetCategories)
	api.Get("/services", r.Catalog.List)
	api.Get("/services/providers", r.Catalog.Providers)
	api.Get("/services/category/:slug", r.Catalog.ByCategory)
	api.Get("/services/:id", r.Catalog.Detail)

	api.Get("/payments/esewa/:id/success", limit, r.Payment.EsewaSuccess)
	api.Get("/payments/esewa/:id/failure", r.Payment.EsewaFailure)

	// provider catalog
	api.Post("/services", with(middleware.RequireRoles(models.RoleProvider), r.Catalog.Create)...)
	api.Patch("/services/:id/availability", with(middleware.RequireRoles(models.RoleProvider), r.Catalog.ToggleAvailability)...)
	api.Post("/services/:id/bookings", with(r.Booking.Create)...)

	me := api.Group("/me", authed...)
	me.Get("/", r.Profile.Me)
	me.Put("/", r.Profile.Update)
	me.Post("/password", r.Profile.ChangePassword)

	bookings := api.Group("/bookings", authed...)
	bookings.Get("/mine", r.Booking.Mine)
	bookings.Post("/:id/payment", r.Booking.Pay)

	provider := api.Group("/provider", with(middleware.RequireRoles(models.RoleProvider))...)
	provider.Get("/bookings", r.Booking.ProviderBookings)
	provider.Patch("/bookings/:id/status", r.Booking.AdvanceStatus)
	provider.Post("/bookings/:id/payment-received", r.Booking.MarkPaymentReceived)

	admin := api.Group("/admin", with(middleware.RequireRoles(models.RoleAdmin))...)
	admin.Get("/", r.Dashboard.Home)
	admin.Get("/users", r.Dashboard.Users)
	admin.Get("/customers", r.Dashboard.Customers)
	admin.Get("/providers", r.Dashboard.Providers)
	admin.Get("/services", r.Dashboard.Services)
	admin.Get("/bookings", r.Dashboard.Bookings)
	admin.Get("/bookings/pending", r.Dashboard.PendingBookings)
	admin.Patch("/bookings/:id/status", r.Dashboard.UpdateBookingStatus)
	admin.Delete("/users/:id", r.Dashboard.DeleteUser)
	admin.Delete("/services/:id", r.Dashboard.DeleteService)
	admin.Delete("/bookings/:id", r.Dashboard.DeleteBooking)

	if r.Realtime != nil {
		app.Get("/ws/bookings", r.Realtime.Upgrade, websocket.New(r.Realtime.Serve))
	}
}
