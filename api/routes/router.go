package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers. Optional
// integrations are left as nil interfaces when they are not configured.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	// Pingers are checked by /health/ready, keyed by dependency name.
	Pingers map[string]controllers.Pinger

	Products product.Service
	Carts    cart.Manager
	Checkout checkoutsvc.Service
	Orders   orders.Ledger

	StripeWebhook webhookcontrollers.StripeWebhookService
	StripeClient  webhookcontrollers.StripeSigner
	WebhookGuard  webhookcontrollers.StripeWebhookGuard

	Idempotency pkgredis.IdempotencyStore
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	cookie := cartcontrollers.CookieConfig{
		Name:   cfg.Checkout.CartCookieName,
		TTL:    cfg.Checkout.CartCookieTTL,
		Secure: cfg.Checkout.CartCookieSecure,
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Pingers))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(d.StripeWebhook, d.StripeClient, d.WebhookGuard, logg))

		r.Get("/products", controllers.ListProducts(d.Products, logg))
		r.Get("/products/{productId}", controllers.GetProduct(d.Products, logg))

		r.Get("/cart", cartcontrollers.CartFetch(d.Carts, cookie, logg))
		r.Post("/cart/items", cartcontrollers.CartAddItem(d.Carts, cookie, logg))
		r.Post("/cart/items/remove", cartcontrollers.CartRemoveItems(d.Carts, cookie, logg))
		r.Patch("/cart/items/{productId}", cartcontrollers.CartUpdateItem(d.Carts, cookie, logg))
		r.Delete("/cart/items/{productId}", cartcontrollers.CartRemoveItem(d.Carts, cookie, logg))

		r.With(middleware.Idempotency(d.Idempotency, cookie.Name, logg)).
			Post("/checkout", controllers.BeginCheckout(d.Checkout, cookie.Name, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRoles(logg, enums.RoleAdministrator, enums.RoleOwner))
		r.Use(middleware.Idempotency(d.Idempotency, cookie.Name, logg))

		r.Get("/orders", controllers.AdminListOrders(d.Orders, logg))
		r.Get("/orders/{orderId}", controllers.AdminGetOrder(d.Orders, logg))
		r.Post("/products", controllers.AdminCreateProduct(d.Products, logg))
		r.Get("/products/name-taken", controllers.AdminProductNameTaken(d.Products, logg))
		r.Patch("/products/{productId}", controllers.AdminUpdateProduct(d.Products, logg))
	})

	return r
}
