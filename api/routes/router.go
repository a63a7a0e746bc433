package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novatra-store/novatra-backend/api/controllers"
	"github.com/novatra-store/novatra-backend/api/middleware"
	accountsvc "github.com/novatra-store/novatra-backend/internal/accounts"
	adminsvc "github.com/novatra-store/novatra-backend/internal/admin"
	cartsvc "github.com/novatra-store/novatra-backend/internal/cart"
	ordersvc "github.com/novatra-store/novatra-backend/internal/orders"
	productsvc "github.com/novatra-store/novatra-backend/internal/products"
	"github.com/novatra-store/novatra-backend/pkg/config"
	"github.com/novatra-store/novatra-backend/pkg/db"
	"github.com/novatra-store/novatra-backend/pkg/enums"
	"github.com/novatra-store/novatra-backend/pkg/gateway"
	"github.com/novatra-store/novatra-backend/pkg/logger"
	"github.com/novatra-store/novatra-backend/pkg/metrics"
	"github.com/novatra-store/novatra-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          *db.Client
	Redis       *redis.Client
	Gateway     *gateway.Client
	HTTPMetrics *metrics.HTTPMetrics

	AccountsRepo *accountsvc.Repository
	Accounts     accountsvc.Service
	Products     productsvc.Service
	Cart         cartsvc.Service
	Orders       ordersvc.Service
	Admin        adminsvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	rateLimit := passthrough
	if deps.Redis != nil {
		rateLimit = middleware.RateLimit(cfg.RateLimit, deps.Redis, logg)
	}

	var webhookVerifier controllers.WebhookVerifier
	if deps.Gateway != nil {
		webhookVerifier = deps.Gateway
	}
	var webhookGuard redis.IdempotencyStore
	if deps.Redis != nil {
		webhookGuard = deps.Redis
	}

	readiness := []redis.Pinger{}
	if deps.DB != nil {
		readiness = append(readiness, deps.DB)
	}
	if deps.Redis != nil {
		readiness = append(readiness, deps.Redis)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(rateLimit)
		r.Post("/register", controllers.Register(deps.Accounts, logg))
		r.Post("/verify-otp", controllers.VerifyOTP(deps.Accounts, logg))
		r.Post("/login", controllers.Login(deps.Accounts, logg))
		r.Post("/login-otp/request", controllers.RequestLoginOTP(deps.Accounts, logg))
		r.Post("/login-otp", controllers.LoginWithOTP(deps.Accounts, logg))
		r.Post("/forgot-password", controllers.ForgotPassword(deps.Accounts, logg))
		r.Post("/reset-password", controllers.ResetPassword(deps.Accounts, logg))
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Use(rateLimit)
		r.Get("/", controllers.ListProducts(deps.Products, logg))
		r.Get("/{id}", controllers.GetProduct(deps.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.With(middleware.RequireRole(logg, enums.RoleCustomer)).
				Post("/{id}/reviews", controllers.AddReview(deps.Products, deps.Accounts, logg))
		})
	})

	r.Post("/api/webhooks/novapay", controllers.NovapayWebhook(deps.Orders, webhookVerifier, webhookGuard, logg))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(rateLimit)

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", controllers.GetProfile(deps.Accounts, logg))
			r.Patch("/", controllers.UpdateProfile(deps.Accounts, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleCustomer))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(deps.Cart, logg))
				r.Post("/items", controllers.AddCartItem(deps.Cart, logg))
				r.Patch("/items/{productID}", controllers.UpdateCartItem(deps.Cart, logg))
				r.Delete("/items/{productID}", controllers.RemoveCartItem(deps.Cart, logg))
				r.Delete("/", controllers.ClearCart(deps.Cart, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.GetWishlist(deps.Cart, logg))
				r.Post("/", controllers.AddWishlistItem(deps.Cart, logg))
				r.Delete("/{productID}", controllers.RemoveWishlistItem(deps.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.PlaceOrder(deps.Orders, logg))
				r.Get("/", controllers.ListMyOrders(deps.Orders, logg))
				r.Post("/{id}/payment-intent", controllers.CreatePaymentIntent(deps.Orders, logg))
				r.Post("/{id}/confirm-payment", controllers.ConfirmPayment(deps.Orders, logg))
			})
		})

		// Order detail is shared: customers see their own orders, merchants the
		// orders routed to them, admins everything.
		r.Get("/orders/{id}", controllers.GetOrder(deps.Orders, logg))

		r.Route("/merchant", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleMerchant, enums.RoleAdmin))
			r.Use(middleware.RequireApprovedMerchant(deps.AccountsRepo, logg))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ListMerchantProducts(deps.Products, logg))
				r.Post("/", controllers.CreateProduct(deps.Products, logg))
				r.Patch("/{id}", controllers.UpdateProduct(deps.Products, logg))
				r.Delete("/{id}", controllers.DeleteProduct(deps.Products, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListMerchantOrders(deps.Orders, logg))
				r.Patch("/{id}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))

			r.Get("/analytics", controllers.AdminAnalytics(deps.Admin, logg))
			r.Get("/customers", controllers.AdminListCustomers(deps.Admin, logg))
			r.Delete("/customers/{id}", controllers.AdminDeleteCustomer(deps.Admin, logg))
			r.Get("/merchants", controllers.AdminListMerchants(deps.Admin, logg))
			r.Patch("/merchants/{id}/approval", controllers.AdminSetMerchantApproval(deps.Admin, logg))
			r.Delete("/merchants/{id}", controllers.AdminDeleteMerchant(deps.Admin, logg))
			r.Get("/orders", controllers.AdminListOrders(deps.Orders, logg))
			r.Patch("/orders/{id}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
			r.Get("/products", controllers.AdminListProducts(deps.Products, logg))
		})
	})

	return r
}

func passthrough(next http.Handler) http.Handler { return next }
