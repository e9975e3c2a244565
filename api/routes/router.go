package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soukhq/souk-backend/api/controllers"
	"github.com/soukhq/souk-backend/api/middleware"
	cartsvc "github.com/soukhq/souk-backend/internal/cart"
	catalogsvc "github.com/soukhq/souk-backend/internal/catalog"
	checkoutsvc "github.com/soukhq/souk-backend/internal/checkout"
	orderssvc "github.com/soukhq/souk-backend/internal/orders"
	"github.com/soukhq/souk-backend/pkg/config"
	"github.com/soukhq/souk-backend/pkg/db"
	"github.com/soukhq/souk-backend/pkg/enums"
	"github.com/soukhq/souk-backend/pkg/logger"
	"github.com/soukhq/souk-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	cartService cartsvc.Service,
	catalogService catalogsvc.Service,
	checkoutService checkoutsvc.Service,
	ordersService orderssvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = redisClient
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleBuyer), logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(cartService, logg))
				r.Post("/items", controllers.CartAddItem(cartService, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateItem(cartService, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(cartService, logg))
			})

			r.Post("/checkout", controllers.Checkout(checkoutService, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.BuyerOrdersList(ordersService, logg))
				r.Get("/{orderId}", controllers.BuyerOrderGet(ordersService, logg))
				r.Post("/{orderId}/cancel", controllers.BuyerOrderCancel(ordersService, logg))
			})

			r.Get("/variants/{variantId}", controllers.VariantGet(catalogService, logg))

			r.Get("/products/{productId}/review-eligibility", controllers.ReviewEligibility(ordersService, catalogService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleSeller), logg))

			r.Route("/seller/orders", func(r chi.Router) {
				r.Get("/", controllers.SellerOrdersList(ordersService, logg))
				r.Get("/{orderId}", controllers.SellerOrderGet(ordersService, logg))
				r.Post("/{orderId}/ship", controllers.SellerOrderFulfill(ordersService, orderssvc.ActionShip, logg))
				r.Post("/{orderId}/complete", controllers.SellerOrderFulfill(ordersService, orderssvc.ActionComplete, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))
		r.Use(middleware.RequireRole(string(enums.ActorRoleAdmin), logg))

		r.Post("/orders/{orderId}/status", controllers.AdminOrderSetStatus(ordersService, logg))
	})

	return r
}
