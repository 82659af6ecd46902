package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appNotification "github.com/skyvolt/storefront/internal/application/notification"
	appOrder "github.com/skyvolt/storefront/internal/application/order"
	appOtp "github.com/skyvolt/storefront/internal/application/otp"
	appPayment "github.com/skyvolt/storefront/internal/application/payment"
	"github.com/skyvolt/storefront/internal/config"
	"github.com/skyvolt/storefront/internal/infrastructure/id"
	kafkanotification "github.com/skyvolt/storefront/internal/infrastructure/notification"
	"github.com/skyvolt/storefront/internal/infrastructure/observability/oteltrace"
	"github.com/skyvolt/storefront/internal/infrastructure/observability/prometrics"
	"github.com/skyvolt/storefront/internal/infrastructure/observability/telemetry"
	"github.com/skyvolt/storefront/internal/infrastructure/observability/zaplogger"
	"github.com/skyvolt/storefront/internal/infrastructure/outbox"
	"github.com/skyvolt/storefront/internal/infrastructure/postgres"
	"github.com/skyvolt/storefront/internal/infrastructure/razorpay"
	"github.com/skyvolt/storefront/internal/infrastructure/redisstore"
	"github.com/skyvolt/storefront/internal/observability"
	httppresentation "github.com/skyvolt/storefront/internal/presentation/http"
)

func main() {
	cfg := config.Load()

	baseLogger := zaplogger.New(
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	defer func() {
		if s, ok := baseLogger.(interface{ Sync() error }); ok {
			_ = s.Sync()
		}
	}()

	metrics := prometrics.New(cfg.ServiceName, prometheus.DefaultRegisterer)
	tel := telemetry.New(oteltrace.New(cfg.ServiceName), baseLogger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.PostgresURL)
	if err != nil {
		baseLogger.Error("postgres_connect_failed", observability.F("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = redisClient.Close() }()

	orderStore := postgres.NewOrderStore(db)
	inventoryStore := postgres.NewInventoryStore(db)
	cartStore := postgres.NewCartStore(db)
	addressStore := postgres.NewAddressStore(db)
	checkoutStore := postgres.NewCheckoutStore(db)
	paymentStore := postgres.NewPaymentStore(db)
	otpStore := postgres.NewOtpStore(db)
	emailLogStore := postgres.NewEmailLogStore(db)

	idGenerator := id.NewUUIDGenerator()
	limiter := redisstore.NewSlidingWindowLimiter(redisClient, cfg.ServiceName)
	gateway := razorpay.New(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret)

	bus := outbox.NewBus(baseLogger)
	bus.Start(ctx)
	defer bus.Stop(context.Background())

	notifier := kafkanotification.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaNotificationTopic)
	defer func() { _ = notifier.Close() }()
	notificationWorker := appNotification.NewWorker(bus, notifier, emailLogStore, tel)
	notificationWorker.Start()

	orderService := appOrder.NewService(orderStore, inventoryStore, cartStore, addressStore, checkoutStore, idGenerator, bus, tel)
	adminService := appOrder.NewAdminService(orderStore, tel)
	paymentService := appPayment.NewService(paymentStore, orderStore, gateway, idGenerator, tel)
	otpService := appOtp.NewService(otpStore, limiter, idGenerator, bus, tel)

	handler := httppresentation.NewHandler(orderService, adminService, paymentService, otpService, baseLogger, tel)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		baseLogger.Info("http_server_start", observability.F("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error", observability.F("error", err.Error()))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
	} else {
		baseLogger.Info("http_server_stopped")
	}
}
