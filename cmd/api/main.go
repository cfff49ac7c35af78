package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bozorchi/shop-backend/api/routes"
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
	"github.com/bozorchi/shop-backend/pkg/metrics"
	"github.com/bozorchi/shop-backend/pkg/migrate"
	"github.com/bozorchi/shop-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orderMetrics := metrics.NewOrderMetrics(registry)

	gormDB := dbClient.DB()
	userRepo := usersvc.NewRepository(gormDB)
	adminRepo := usersvc.NewAdminRepository(gormDB)
	productRepo := productsvc.NewRepository(gormDB)
	cartRepo := cartsvc.NewRepository(gormDB)
	commentRepo := commentsvc.NewRepository(gormDB)
	taxonomyRepo := taxonomysvc.NewRepository(gormDB)
	orderRepo := ordersvc.NewRepository(gormDB)
	notificationRepo := notificationsvc.NewRepository(gormDB)

	resolver, err := actors.NewResolver(userRepo, adminRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create actor resolver", err)
		os.Exit(1)
	}

	authService, err := authsvc.NewService(cfg, userRepo, adminRepo, redisClient, resolver, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}
	userService, err := usersvc.NewService(userRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}
	productService, err := productsvc.NewService(productRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}
	cartService, err := cartsvc.NewService(dbClient, cartRepo, productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	orderService, err := ordersvc.NewService(dbClient, orderRepo, productRepo, orderMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	notificationService, err := notificationsvc.NewService(dbClient, notificationRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}
	commentService, err := commentsvc.NewService(commentRepo, productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create comments service", err)
		os.Exit(1)
	}
	taxonomyService, err := taxonomysvc.NewService(taxonomyRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create taxonomy service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Cfg:           cfg,
			Logg:          logg,
			DB:            dbClient,
			Redis:         redisClient,
			Registry:      registry,
			Resolver:      resolver,
			Auth:          authService,
			Users:         userService,
			Products:      productService,
			Cart:          cartService,
			Orders:        orderService,
			Notifications: notificationService,
			Comments:      commentService,
			Taxonomy:      taxonomyService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
