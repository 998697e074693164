package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appInventory "github.com/Zhima-Mochi/travelshop/internal/application/inventory"
	"github.com/Zhima-Mochi/travelshop/internal/application/notification"
	appOrder "github.com/Zhima-Mochi/travelshop/internal/application/order"
	appPayment "github.com/Zhima-Mochi/travelshop/internal/application/payment"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/id"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/kafka"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/mail"
	orderworker "github.com/Zhima-Mochi/travelshop/internal/infrastructure/order/worker"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/payment/kakaopay"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/payment/tosspayments"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
	httppresentation "github.com/Zhima-Mochi/travelshop/internal/presentation/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the event bus and the notification worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides HTTP_ADDR")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	cfg, tel := a.cfg, a.tel
	systemLogger := a.logger.With(observability.F("component", "system"))
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	// In-process event bus; the Kafka forwarder mirrors it when configured.
	bus := outbox.NewBus(a.logger, tel)
	bus.Start(context.Background())

	var forwarder *kafka.Forwarder
	if cfg.UseKafka() {
		forwarder = kafka.NewForwarder(kafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic), cfg.ServiceName, tel)
		forwarder.Attach(bus)
		systemLogger.Info("kafka_forwarder_enabled", observability.F("topic", cfg.KafkaTopic))
	}

	mailer := mail.New(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.MailFrom,
		Timeout:  cfg.SMTP.Timeout,
	}, a.logger)
	orderworker.New(bus, notification.NewDispatcher(mailer, cfg.ShopName, tel), tel).Start()

	hc := &http.Client{Timeout: cfg.ProviderTimeout + 5*time.Second}
	providers := appPayment.NewProviders(
		kakaopay.New(kakaopay.Config{SecretKey: cfg.KakaoPay.SecretKey, CID: cfg.KakaoPay.CID, BaseURL: cfg.KakaoPay.BaseURL}, hc, tel),
		tosspayments.New(tosspayments.Config{SecretKey: cfg.Toss.SecretKey, BaseURL: cfg.Toss.BaseURL}, hc, tel),
	)

	adjuster := appInventory.NewAdjuster(a.stock, bus, tel)
	status := appOrder.NewUpdateStatusUseCase(a.orders, adjuster, bus, tel)
	handler := httppresentation.NewHandler(httppresentation.UseCases{
		CreateOrder: appOrder.NewCreateOrderUseCase(a.orders, adjuster, id.NewUUIDGenerator(),
			id.NewOrderNumbers(orderNumberLocation()), bus, cfg.Currency, tel),
		GetOrder:         appOrder.NewGetOrderUseCase(a.orders, tel),
		ListOrders:       appOrder.NewListOrdersUseCase(a.orders, tel),
		ListAdminOrders:  appOrder.NewListAdminOrdersUseCase(a.orders, tel),
		UpdateStatus:     status,
		BulkUpdateStatus: appOrder.NewBulkUpdateStatusUseCase(status, tel),
		DeleteOrder:      appOrder.NewDeleteOrderUseCase(a.orders, status, bus, tel),
		Inventory:        adjuster,
		InitiatePayment: appPayment.NewInitiatePaymentUseCase(providers, a.orders, a.ledger,
			id.NewPaymentIDs(), bus, cfg.ProviderTimeout, tel),
		ConfirmPayment: appPayment.NewConfirmPaymentUseCase(providers, a.orders, a.ledger,
			appPayment.NewVerifier(a.ledger, tel), bus, cfg.ProviderTimeout, tel),
	}, httppresentation.Options{
		Dev:              cfg.IsDev(),
		SessionSecret:    []byte(cfg.SessionSecret),
		PaymentRateRPS:   cfg.PaymentRateRPS,
		PaymentRateBurst: cfg.PaymentRateBurst,
		Metrics:          promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
		Ready:            a.ready,
	}, a.logger, tel)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		systemLogger.Info("http_server_start",
			observability.F("addr", server.Addr),
			observability.F("providers", providers.Names()),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error", observability.F("error", err.Error()))
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if serr := server.Shutdown(shutdownCtx); serr != nil {
		systemLogger.Error("http_server_shutdown_error", observability.F("error", serr.Error()))
	} else {
		systemLogger.Info("http_server_stopped")
	}
	// Drain queued events before the forwarder and the store go away.
	bus.Stop(shutdownCtx)
	if forwarder != nil {
		if ferr := forwarder.Close(); ferr != nil {
			systemLogger.Error("kafka_forwarder_close_error", observability.F("error", ferr.Error()))
		}
	}
	a.shutdown(shutdownCtx)
	return err
}
