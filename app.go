package main

import (
	"context"
	"fmt"
	"time"

	dominv "github.com/Zhima-Mochi/travelshop/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	dompay "github.com/Zhima-Mochi/travelshop/internal/domain/payment"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/config"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/mongo"
	infraobs "github.com/Zhima-Mochi/travelshop/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/travelshop/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var envFiles []string

// app holds what every command needs: config, telemetry and the stores.
type app struct {
	cfg      *config.Config
	logger   observability.Logger
	tel      observability.Observability
	registry *prometheus.Registry

	orders domorder.Repository
	stock  dominv.Repository
	ledger dompay.Ledger

	ready func(ctx context.Context) error
	close func(ctx context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}

	logger, err := zaplogger.New(zaplogger.Options{
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
		Development: cfg.IsDev(),
	}, observability.F("service", cfg.ServiceName), observability.F("env", cfg.Env))
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	counters, histograms := infraobs.RegisterStandard(prometrics.NewWithRegisterer(reg, "", ""))
	oteltrace.InstallPropagator()
	tel := infraobs.New(oteltrace.New(cfg.ServiceName), logger, counters, histograms)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		tel:      tel,
		registry: reg,
		ready:    func(context.Context) error { return nil },
		close:    func(context.Context) error { return nil },
	}

	if !cfg.UseMongo() {
		logger.Info("storage_selected", observability.F("backend", "memory"))
		a.orders = memory.NewOrderRepository()
		a.stock = memory.NewInventoryRepository()
		a.ledger = memory.NewLedgerRepository()
		return a, nil
	}

	store, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	logger.Info("storage_selected", observability.F("backend", "mongo"), observability.F("database", cfg.MongoDatabase))
	a.orders = store.Orders()
	a.stock = store.Inventory()
	a.ledger = store.Ledger()
	a.ready = store.Ping
	a.close = store.Close
	return a, nil
}

func (a *app) shutdown(ctx context.Context) {
	if err := a.close(ctx); err != nil {
		a.logger.Error("storage_close_error", observability.F("error", err.Error()))
	}
	zaplogger.Sync(a.logger)
}

// orderNumberLocation is the zone order numbers are stamped in.
func orderNumberLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

func requireMongo(a *app) error {
	if !a.cfg.UseMongo() {
		return fmt.Errorf("MONGO_URI is not set; the in-memory store does not outlive this command")
	}
	return nil
}
