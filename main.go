package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appbranch "github.com/ecommerce-mvp/shop/internal/application/branch"
	appcart "github.com/ecommerce-mvp/shop/internal/application/cart"
	"github.com/ecommerce-mvp/shop/internal/config"
	"github.com/ecommerce-mvp/shop/internal/domain/cart"
	"github.com/ecommerce-mvp/shop/internal/domain/catalog"
	domoutbox "github.com/ecommerce-mvp/shop/internal/domain/outbox"
	"github.com/ecommerce-mvp/shop/internal/infrastructure/auth/jwt"
	"github.com/ecommerce-mvp/shop/internal/infrastructure/id"
	"github.com/ecommerce-mvp/shop/internal/infrastructure/kafka"
	"github.com/ecommerce-mvp/shop/internal/infrastructure/memory"
	"github.com/ecommerce-mvp/shop/internal/infrastructure/novaposhta"
	infraobs "github.com/ecommerce-mvp/shop/internal/infrastructure/observability"
	"github.com/ecommerce-mvp/shop/internal/infrastructure/observability/oteltrace"
	"github.com/ecommerce-mvp/shop/internal/infrastructure/observability/prometrics"
	"github.com/ecommerce-mvp/shop/internal/infrastructure/observability/zaplogger"
	orderworker "github.com/ecommerce-mvp/shop/internal/infrastructure/order/worker"
	"github.com/ecommerce-mvp/shop/internal/infrastructure/outbox"
	"github.com/ecommerce-mvp/shop/internal/infrastructure/postgres"
	"github.com/ecommerce-mvp/shop/internal/pkg/logging"
	httppresentation "github.com/ecommerce-mvp/shop/internal/presentation/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type stores struct {
	carts    cart.Repository
	products catalog.Lookup
	close    func()
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	baseLogger, err := logging.NewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	counters, histograms := infraobs.Instruments(prometrics.New(prometheus.DefaultRegisterer, "", ""))
	tel := infraobs.New(
		oteltrace.New(cfg.ServiceName),
		zaplogger.New(baseLogger),
		counters,
		histograms,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, baseLogger)
	if err != nil {
		return err
	}
	defer st.close()

	// In-memory event bus feeds local subscribers; Kafka, when configured, fans orders out.
	bus := outbox.NewBus(tel.Logger())
	publishers := outbox.Multi{bus}
	var kafkaPublisher *kafka.Publisher
	if brokers := kafka.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		kafkaPublisher = kafka.NewPublisher(brokers, cfg.KafkaTopic)
		publishers = append(publishers, kafkaPublisher)
		baseLogger.Info("kafka_publisher_enabled",
			zap.Strings("brokers", brokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}
	var publisher domoutbox.Publisher = publishers

	orderworker.New(st.carts, bus, tel).Start()
	bus.Start(ctx)

	verifier, err := jwt.NewVerifier(cfg.JWTSecret)
	if err != nil {
		return err
	}

	pricer := appcart.NewPricer(st.products, cfg.PricingConcurrency)
	directory := novaposhta.New(cfg.NovaPoshtaURL, cfg.NovaPoshtaAPIKey, cfg.NovaPoshtaTimeout)

	handler := httppresentation.NewHandler(httppresentation.UseCases{
		AddLine:      appcart.NewAddLineUseCase(st.carts, st.products, pricer, id.NewUUIDGenerator(), cfg.Currency, tel),
		RemoveLine:   appcart.NewRemoveLineUseCase(st.carts, pricer, tel),
		PlaceOrder:   appcart.NewPlaceOrderUseCase(st.carts, publisher, tel),
		GetCart:      appcart.NewGetCartUseCase(st.carts, cfg.Currency, tel),
		ListBranches: appbranch.NewListBranchesUseCase(directory, tel),
	}, verifier, cfg.CORSOrigins, tel)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		baseLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("store", cfg.Store),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error",
				zap.Error(err),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		baseLogger.Info("http_server_stopped")
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		baseLogger.Error("event_bus_stop_error", zap.Error(err))
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			baseLogger.Error("kafka_publisher_close_error", zap.Error(err))
		}
	}
	return nil
}

func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (stores, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores{}, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return stores{}, err
		}

		products := postgres.NewProductRepository(pool)
		if cfg.CatalogSeedFile != "" {
			seed, err := memory.ReadSeed(cfg.CatalogSeedFile, cfg.Currency)
			if err != nil {
				pool.Close()
				return stores{}, err
			}
			for _, p := range seed {
				if err := products.Upsert(ctx, p); err != nil {
					pool.Close()
					return stores{}, fmt.Errorf("seed product %s: %w", p.ID, err)
				}
			}
			log.Info("catalog_seeded", zap.Int("products", len(seed)), zap.String("store", cfg.Store))
		}
		return stores{carts: postgres.NewCartRepository(pool), products: products, close: pool.Close}, nil

	default:
		products := memory.NewProductRepository()
		if cfg.CatalogSeedFile != "" {
			n, err := products.LoadSeed(cfg.CatalogSeedFile, cfg.Currency)
			if err != nil {
				return stores{}, err
			}
			log.Info("catalog_seeded", zap.Int("products", n), zap.String("store", cfg.Store))
		}
		return stores{carts: memory.NewCartRepository(), products: products, close: func() {}}, nil
	}
}
