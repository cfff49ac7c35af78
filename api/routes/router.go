package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bozorchi/shop-backend/api/controllers"
	"github.com/bozorchi/shop-backend/api/middleware"
	"github.com/bozorchi/shop-backend/internal/actors"
	authsvc "github.com/bozorchi/shop-backend/internal/auth"
	cartsvc "github.com/bozorchi/shop-backend/internal/cart"
	commentsvc "github.com/bozorchi/shop-backend/internal/comments"
	notificationsvc "github.com/bozorchi/shop-backend/internal/notifications"
	ordersvc "github.com/bozorchi/shop-backend/internal/orders"
	productsvc "github.com/bozorchi/shop-backend/internal/products"
	taxonomysvc "github.com/bozorchi/shop-backend/internal/taxonomy"
	usersvc "github.com/bozorchi/shop-backend/internal/users"
	"github.com/bozorchi/shop-backend/pkg/config"
	"github.com/bozorchi/shop-backend/pkg/db"
	"github.com/bozorchi/shop-backend/pkg/logger"
	"github.com/bozorchi/shop-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Cfg      *config.Config
	Logg     *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Registry *prometheus.Registry
	Resolver *actors.Resolver

	Auth          authsvc.Service
	Users         usersvc.Service
	Products      productsvc.Service
	Cart          cartsvc.Service
	Orders        ordersvc.Service
	Notifications notificationsvc.Service
	Comments      commentsvc.Service
	Taxonomy      taxonomysvc.Service
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(d.Logg),
		middleware.RequestID(d.Logg),
		middleware.Logging(d.Logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		d.Cfg.AuthRateLimit.LoginWindow,
		d.Cfg.AuthRateLimit.LoginIPLimit,
		d.Cfg.AuthRateLimit.LoginPhoneLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		d.Cfg.AuthRateLimit.RegisterWindow,
		d.Cfg.AuthRateLimit.RegisterIPLimit,
		d.Cfg.AuthRateLimit.RegisterPhoneLimit,
	)

	authenticated := middleware.Authenticate(d.Cfg.JWT, d.Resolver, d.Logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(d.Cfg))
		r.Get("/ready", controllers.HealthReady(d.Cfg, d.Logg, d.DB, d.Redis))
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(registerPolicy, d.Redis, d.Logg),
			middleware.Idempotency(d.Redis, d.Logg),
		).Post("/register", controllers.AuthRegister(d.Auth, d.Logg))
		r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, d.Logg)).Post("/verify", controllers.AuthVerify(d.Auth, d.Logg))
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, d.Logg)).Post("/login", controllers.AuthLogin(d.Auth, d.Logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, d.Logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/change-password", controllers.AuthChangePassword(d.Auth, d.Logg))
		})
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		// catalog reads are public
		r.Get("/", controllers.ProductList(d.Products, d.Logg))
		r.Get("/{id}", controllers.ProductGet(d.Products, d.Logg))
		r.Get("/{id}/comments", controllers.CommentList(d.Comments, d.Logg))

		r.With(authenticated, middleware.RequireUser(d.Logg)).
			Post("/{id}/comments", controllers.CommentCreate(d.Comments, d.Logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticated, middleware.RequireAdmin(d.Logg))
			r.Post("/", controllers.ProductCreate(d.Products, d.Logg))
			r.Put("/{id}", controllers.ProductUpdate(d.Products, d.Logg))
			r.Delete("/{id}", controllers.ProductDelete(d.Products, d.Logg))
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(authenticated)
		r.Get("/me", controllers.UserMe(d.Users, d.Logg))
		r.Put("/me", controllers.UserUpdateProfile(d.Users, d.Logg))
		r.Get("/{id}", controllers.UserGet(d.Users, d.Logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(d.Logg))
			r.Get("/", controllers.UserList(d.Users, d.Logg))
			r.Put("/{id}/worker", controllers.UserSetWorker(d.Users, d.Logg))
		})
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(authenticated, middleware.RequireUser(d.Logg))
		r.Post("/", controllers.CartCreate(d.Cart, d.Logg))
		r.Get("/", controllers.CartGet(d.Cart, d.Logg))
		r.Post("/items", controllers.CartAddItems(d.Cart, d.Logg))
		r.Delete("/items/{itemID}", controllers.CartRemoveItem(d.Cart, d.Logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(authenticated)

		r.With(middleware.Idempotency(d.Redis, d.Logg)).Post("/", controllers.OrderCreate(d.Orders, d.Logg))
		r.Get("/", controllers.OrderListMine(d.Orders, d.Logg))
		r.Get("/{id}", controllers.OrderGet(d.Orders, d.Logg))
		r.With(middleware.Idempotency(d.Redis, d.Logg)).Post("/{id}/cancel", controllers.OrderCancel(d.Orders, d.Logg))

		r.With(middleware.RequireWorker(d.Logg)).Put("/{id}/status", controllers.OrderUpdateStatus(d.Orders, d.Logg))
		r.With(middleware.RequireAdmin(d.Logg)).Delete("/{id}", controllers.OrderDelete(d.Orders, d.Logg))
	})

	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Use(authenticated)
		r.Get("/", controllers.NotificationList(d.Notifications, d.Logg))
		r.Post("/{id}/view", controllers.NotificationMarkViewed(d.Notifications, d.Logg))

		r.With(middleware.RequireWorker(d.Logg)).Post("/", controllers.NotificationCreate(d.Notifications, d.Logg))
		r.With(middleware.RequireAdmin(d.Logg)).Delete("/{id}", controllers.NotificationDelete(d.Notifications, d.Logg))
	})

	r.Route("/api/v1/comments", func(r chi.Router) {
		r.Use(authenticated)
		r.Delete("/{id}", controllers.CommentDelete(d.Comments, d.Logg))
	})

	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Get("/", controllers.CategoryList(d.Taxonomy, d.Logg))
		r.Get("/top", controllers.CategoryTop(d.Taxonomy, d.Logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticated, middleware.RequireAdmin(d.Logg))
			r.Post("/", controllers.CategoryCreate(d.Taxonomy, d.Logg))
			r.Put("/{id}", controllers.CategoryUpdate(d.Taxonomy, d.Logg))
			r.Delete("/{id}", controllers.CategoryDelete(d.Taxonomy, d.Logg))
		})
	})

	r.Route("/api/v1/tags", func(r chi.Router) {
		r.Get("/", controllers.TagList(d.Taxonomy, d.Logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticated, middleware.RequireAdmin(d.Logg))
			r.Post("/", controllers.TagCreate(d.Taxonomy, d.Logg))
			r.Put("/{id}", controllers.TagUpdate(d.Taxonomy, d.Logg))
			r.Delete("/{id}", controllers.TagDelete(d.Taxonomy, d.Logg))
		})
	})

	return r
}
