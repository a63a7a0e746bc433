package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/novatra-store/novatra-backend/api/routes"
	"github.com/novatra-store/novatra-backend/internal/accounts"
	"github.com/novatra-store/novatra-backend/internal/admin"
	"github.com/novatra-store/novatra-backend/internal/cart"
	"github.com/novatra-store/novatra-backend/internal/notifications"
	"github.com/novatra-store/novatra-backend/internal/orders"
	"github.com/novatra-store/novatra-backend/internal/products"
	"github.com/novatra-store/novatra-backend/pkg/config"
	"github.com/novatra-store/novatra-backend/pkg/db"
	"github.com/novatra-store/novatra-backend/pkg/gateway"
	"github.com/novatra-store/novatra-backend/pkg/logger"
	"github.com/novatra-store/novatra-backend/pkg/metrics"
	"github.com/novatra-store/novatra-backend/pkg/migrate"
	"github.com/novatra-store/novatra-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	var gatewayClient *gateway.Client
	if strings.TrimSpace(cfg.Gateway.KeyID) != "" {
		gatewayClient, err = gateway.NewClient(context.Background(), cfg.Gateway, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap payment gateway", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "payment gateway credentials missing, online payments disabled")
	}

	var mailer notifications.Mailer
	if strings.TrimSpace(cfg.SMTP.Host) != "" {
		mailer, err = notifications.NewSMTPMailer(cfg.SMTP, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap mailer", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "smtp host missing, emails will be logged only")
		mailer = notifications.NoopMailer{}
	}

	accountsRepo := accounts.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	accountsService, err := accounts.NewService(accountsRepo, mailer, redisClient, cfg.JWT, cfg.Password, cfg.OTP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	productsService, err := products.NewService(productsRepo, accountsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, productsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	var ordersService orders.Service
	if gatewayClient != nil {
		ordersService, err = orders.NewService(ordersRepo, productsRepo, cartRepo, dbClient, gatewayClient, cfg.Payments.CapturePolicy(), logg)
	} else {
		ordersService, err = orders.NewService(ordersRepo, productsRepo, cartRepo, dbClient, nil, cfg.Payments.CapturePolicy(), logg)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	adminService, err := admin.NewService(accountsRepo, productsRepo, ordersRepo, dbClient, mailer, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	handler := routes.NewRouter(routes.Deps{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Redis:        redisClient,
		Gateway:      gatewayClient,
		HTTPMetrics:  httpMetrics,
		AccountsRepo: accountsRepo,
		Accounts:     accountsService,
		Products:     productsService,
		Cart:         cartService,
		Orders:       ordersService,
		Admin:        adminService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}

	var closeErr error
	closeErr = multierr.Append(closeErr, redisClient.Close())
	closeErr = multierr.Append(closeErr, dbClient.Close())
	if closeErr != nil {
		logg.Error(ctx, "error closing dependencies", closeErr)
		os.Exit(1)
	}
}
