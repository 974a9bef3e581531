package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"threadora-backend/config"
	"threadora-backend/internal/delivery/http/middleware"
	v1 "threadora-backend/internal/delivery/http/v1"
	"threadora-backend/internal/domain"
	"threadora-backend/internal/infrastructure/cache"
	"threadora-backend/internal/infrastructure/notification"
	pgrepo "threadora-backend/internal/repository/postgres"
	"threadora-backend/internal/usecase"
	"threadora-backend/pkg/logger"
	"threadora-backend/pkg/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetSecret(cfg.JWTSecret)

	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()

	pgxPool, err := pgrepo.NewPgxPool(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Msg("Successfully connected to PostgreSQL")

	// Repositories
	catalogRepo := pgrepo.NewCatalogRepository(pgxPool)
	cartRepo := pgrepo.NewCartRepository(pgxPool)
	orderRepo := pgrepo.NewOrderRepository(pgxPool)
	returnRepo := pgrepo.NewReturnRepository(pgxPool)
	txManager := pgrepo.NewTransactionManager(pgxPool)

	// In-memory cache for enum/config reads.
	memCache := cache.NewMemoryCache(30*time.Minute, 60*time.Minute)

	// Notification publisher. An empty AMQP URL disables publishing
	// without touching the order paths.
	var notifier domain.Notifier = notification.NopNotifier{}
	if cfg.AmqpURL != "" {
		pub, err := notification.NewAmqpPublisher(cfg.AmqpURL, cfg.NotificationExchange)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		defer pub.Close()
		notifier = pub
		log.Info().Str("exchange", cfg.NotificationExchange).Msg("Notification publisher connected")
	} else {
		log.Warn().Msg("AMQP_URL not set, notifications disabled")
	}

	mux := http.NewServeMux()

	// --- Modules Initialization ---

	cartUC := usecase.NewCartUsecase(cartRepo, catalogRepo)
	cartHandler := v1.NewCartHandler(cartUC, cfg.MaxCartQuantity)

	orderUC := usecase.NewOrderUsecase(orderRepo, cartRepo, catalogRepo, txManager, notifier, cfg.DeliveryEstimateDays)
	returnUC := usecase.NewReturnUsecase(returnRepo, orderRepo, orderUC, txManager, notifier, cfg.ReturnWindowDays, cfg.DefaultRefundPercent)

	orderHandler := v1.NewOrderHandler(orderUC, returnUC)
	adminOrderHandler := v1.NewAdminOrderHandler(orderUC)
	returnHandler := v1.NewReturnHandler(returnUC)
	adminReturnHandler := v1.NewAdminReturnHandler(returnUC)
	configHandler := v1.NewConfigHandler(memCache, cfg.CacheEnumsTTL)

	// Config (Public)
	mux.HandleFunc("GET /api/v1/config/enums", configHandler.GetEnums)

	// Cart (Protected)
	mux.Handle("GET /api/v1/cart", middleware.AuthMiddleware(http.HandlerFunc(cartHandler.GetCart)))
	mux.Handle("POST /api/v1/cart", middleware.AuthMiddleware(http.HandlerFunc(cartHandler.AddToCart)))
	mux.Handle("PUT /api/v1/cart", middleware.AuthMiddleware(http.HandlerFunc(cartHandler.UpdateLine)))
	mux.Handle("DELETE /api/v1/cart/{lineId}", middleware.AuthMiddleware(http.HandlerFunc(cartHandler.RemoveLine)))
	mux.Handle("POST /api/v1/cart/validate", middleware.AuthMiddleware(http.HandlerFunc(cartHandler.ValidateCart)))

	// Orders (Protected)
	mux.Handle("POST /api/v1/checkout", middleware.AuthMiddleware(http.HandlerFunc(orderHandler.Checkout)))
	mux.Handle("GET /api/v1/orders", middleware.AuthMiddleware(http.HandlerFunc(orderHandler.GetMyOrders)))
	mux.Handle("GET /api/v1/orders/{id}", middleware.AuthMiddleware(http.HandlerFunc(orderHandler.GetOrder)))
	mux.Handle("POST /api/v1/orders/{id}/cancel", middleware.AuthMiddleware(http.HandlerFunc(orderHandler.CancelOrder)))
	mux.Handle("GET /api/v1/orders/{id}/returnable", middleware.AuthMiddleware(http.HandlerFunc(orderHandler.GetReturnable)))

	// Returns (Protected)
	mux.Handle("POST /api/v1/returns", middleware.AuthMiddleware(http.HandlerFunc(returnHandler.SubmitReturn)))
	mux.Handle("GET /api/v1/returns", middleware.AuthMiddleware(http.HandlerFunc(returnHandler.GetMyReturns)))
	mux.Handle("POST /api/v1/returns/{id}/resubmit", middleware.AuthMiddleware(http.HandlerFunc(returnHandler.ResubmitReturn)))
	mux.Handle("POST /api/v1/returns/{id}/cancel", middleware.AuthMiddleware(http.HandlerFunc(returnHandler.CancelReturn)))

	// Admin (Protected)
	adminMiddleware := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(middleware.AdminMiddleware(h))
	}

	mux.Handle("GET /api/v1/admin/orders", adminMiddleware(adminOrderHandler.ListOrders))
	mux.Handle("GET /api/v1/admin/orders/{id}", adminMiddleware(adminOrderHandler.GetOrder))
	mux.Handle("PATCH /api/v1/admin/orders/{id}/status", adminMiddleware(adminOrderHandler.UpdateStatus))
	mux.Handle("PATCH /api/v1/admin/orders/status", adminMiddleware(adminOrderHandler.BulkUpdateStatus))
	mux.Handle("GET /api/v1/admin/orders/{id}/events", adminMiddleware(adminOrderHandler.GetOrderEvents))

	mux.Handle("GET /api/v1/admin/returns", adminMiddleware(adminReturnHandler.ListReturns))
	mux.Handle("GET /api/v1/admin/returns/{id}", adminMiddleware(adminReturnHandler.GetReturn))
	mux.Handle("GET /api/v1/admin/returns/{id}/events", adminMiddleware(adminReturnHandler.GetReturnEvents))
	mux.Handle("POST /api/v1/admin/returns/{id}/decide", adminMiddleware(adminReturnHandler.DecideReturn))
	mux.Handle("POST /api/v1/admin/returns/{id}/logistics", adminMiddleware(adminReturnHandler.AdvanceLogistics))
	mux.Handle("POST /api/v1/admin/returns/{id}/refund", adminMiddleware(adminReturnHandler.ProcessRefund))
	mux.Handle("POST /api/v1/admin/returns/{id}/refund/complete", adminMiddleware(adminReturnHandler.CompleteRefund))
	mux.Handle("PATCH /api/v1/admin/returns/{id}/refund", adminMiddleware(adminReturnHandler.UpdateRefundStatus))

	// Metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	// Health Check
	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok", "db": "connected"}`))
	}
	mux.HandleFunc("GET /api/v1/health", healthHandler)
	mux.HandleFunc("GET /health", healthHandler)

	addr := fmt.Sprintf(":%s", cfg.Port)

	rateLimiter := middleware.NewRateLimiter(
		context.Background(),
		rate.Limit(cfg.RateLimitPerSecond),
		cfg.RateLimitBurst,
		time.Minute,   // cleanup period
		3*time.Minute, // client TTL
	)

	// CORS, request logger, rate limit, metrics, gzip.
	handler := middleware.NewCORSMiddleware(cfg)(mux)
	handler = middleware.RequestLogger(handler)
	handler = rateLimiter.Middleware()(handler)
	handler = middleware.Monitoring(handler)
	handler = gziphandler.GzipHandler(handler)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	log.Info().Msgf("Server starting on %s", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	rateLimiter.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	pgxPool.Close()

	log.Info().Msg("Server exited properly")
}
