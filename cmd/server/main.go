package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"urbanlens/internal/config"
	"urbanlens/internal/db"
	"urbanlens/internal/events"
	"urbanlens/internal/gateway"
	"urbanlens/internal/handlers"
	"urbanlens/internal/models"
	"urbanlens/internal/services"
	"urbanlens/internal/store"
	"urbanlens/internal/validator"
	"urbanlens/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := validator.ValidateCurrency(cfg.Currency); err != nil {
		logger.WithError(err).WithField("currency", cfg.Currency).Fatal("invalid platform currency")
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect database")
	}
	defer database.Close()

	wallets := store.NewWalletStore(database)
	walletTxs := store.NewWalletTransactionStore(database)
	externals := store.NewExternalTransactionStore(database)
	jobs := store.NewJobStore(database)
	bookings := store.NewBookingStore(database)
	locations := store.NewLocationStore(database)
	eventStore := store.NewEventStore(database)
	txRunner := db.NewTxRunner(database)

	if err := txRunner.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		return wallets.EnsureSystemWallets(context.Background(), tx, cfg.Currency)
	}); err != nil {
		logger.WithError(err).Fatal("failed to ensure system wallets")
	}

	hub := websocket.NewHub()
	bus := events.NewBus()
	paymentGateway := gateway.NewVNPayGateway(cfg.GatewayBaseURL, cfg.GatewayMerchantCode, cfg.GatewayHashSecret)

	ledger := services.NewLedgerService(txRunner, wallets, walletTxs)
	escrow := services.NewEscrowService(txRunner, wallets, ledger, hub)
	external := services.NewExternalTransactionService(txRunner, externals, wallets, ledger, paymentGateway, logger, cfg.DepositTTL)
	scheduler := services.NewSchedulerService(txRunner, jobs, logger, services.SchedulerConfig{
		ClaimTimeout:   cfg.ClaimTimeout,
		HandlerTimeout: cfg.HandlerTimeout,
		BatchSize:      cfg.JobBatchSize,
	})

	refundTiers := make([]services.RefundTier, 0, len(cfg.RefundTiers))
	for _, tier := range cfg.RefundTiers {
		refundTiers = append(refundTiers, services.RefundTier{MinNotice: tier.MinNotice, Percentage: tier.Percentage})
	}
	payouts := services.NewPayoutService(txRunner, bookings, eventStore, locations, escrow, ledger, wallets, scheduler, bus, logger, services.PayoutConfig{
		SystemCutPercentage:       cfg.SystemCutPercentage,
		ForceCancelFinePercentage: cfg.ForceCancelFinePercentage,
		PayoutCooldown:            cfg.PayoutCooldown,
		Currency:                  cfg.Currency,
		RefundTiers:               refundTiers,
	})
	bookingService := services.NewBookingService(txRunner, bookings, eventStore, escrow)

	scheduler.RegisterHandler(models.JobTypeLocationBookingPayout, payouts.HandleBookingPayout)
	scheduler.RegisterHandler(models.JobTypeEventPayout, payouts.HandleEventPayout)

	poller := cron.New()
	if _, err := poller.AddFunc(cfg.PollSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := scheduler.PollDueJobs(ctx); err != nil {
			logger.WithError(err).Error("job poll failed")
		}
		if _, err := external.ExpireDueDeposits(ctx, time.Now().UTC()); err != nil {
			logger.WithError(err).Error("deposit expiry sweep failed")
		}
	}); err != nil {
		logger.WithError(err).Fatal("invalid poll spec")
	}
	poller.Start()

	handler := handlers.New(cfg, wallets, walletTxs, externals, external, bookingService, payouts, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("monetary core listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	pollerCtx := poller.Stop()
	<-pollerCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("shutdown error")
	}
}
