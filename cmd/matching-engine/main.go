package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/muhammadchandra19/matcher/pkg/config"
	"github.com/muhammadchandra19/matcher/pkg/httplib/healthcheck"
	"github.com/muhammadchandra19/matcher/pkg/logger"
	"github.com/muhammadchandra19/matcher/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	app "github.com/muhammadchandra19/matcher/internal/app/engine"
	eventv1 "github.com/muhammadchandra19/matcher/internal/domain/event/v1"
	orderreaderv1 "github.com/muhammadchandra19/matcher/internal/domain/order-reader/v1"
	snapshotv1 "github.com/muhammadchandra19/matcher/internal/domain/snapshot/v1"
	"github.com/muhammadchandra19/matcher/internal/infrastructure/metrics"
	eventpublisher "github.com/muhammadchandra19/matcher/internal/usecase/event-publisher"
	orderreader "github.com/muhammadchandra19/matcher/internal/usecase/order-reader"
	"github.com/muhammadchandra19/matcher/internal/usecase/snapshot"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	cfg = &config.Config{}
	if err := config.Load(cfg); err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	l, err := logger.NewLogger(logger.WithLoggingLevel(logger.Level(cfg.LogLevel)))
	if err != nil {
		panic(err)
	}
	log = l.WithFields(logger.NewField("app", cfg.Name))

	// prices go on the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rclient redis.Client
	if cfg.UsesRedis() {
		rclient = redis.NewClient(log, &cfg.RedisConfig.Config)
		if err := rclient.Connect(ctx); err != nil {
			log.Error(err, logger.NewField("action", "connect_redis"))
			return
		}
		defer func() {
			if err := rclient.Disconnect(context.Background()); err != nil {
				log.Error(err, logger.NewField("action", "close_redis_client"))
			}
		}()
	}

	reader, err := newOrderReader(ctx, rclient)
	if err != nil {
		log.Error(err, logger.NewField("action", "create_order_reader"))
		return
	}
	defer reader.Close()

	publisher := newEventPublisher(rclient)
	defer publisher.Close()

	var snapshotStore snapshotv1.Store
	if cfg.SnapshotEnabled {
		snapshotStore = snapshot.NewSnapshotStore(rclient, log)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	options := app.OptionsFromConfig(cfg.EngineConfig)
	router := app.NewRouter(cfg.DefaultInstrument, cfg.Instruments, func(instrument string) *app.Engine {
		return app.NewEngine(instrument, publisher, snapshotStore, m, log, options)
	}, publisher, log)

	if err := router.Start(ctx); err != nil {
		log.Error(err, logger.NewField("action", "start_engines"))
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	checkers := []healthcheck.Checker{router}
	if rclient != nil {
		checkers = append(checkers, healthcheck.CheckerFunc(func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return rclient.Ping(pingCtx)
		}))
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           healthcheck.HealthCheck{Checkers: checkers}.Handler(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return router.Run(gctx, reader)
	})
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	log.Info("Matching engine started successfully",
		logger.NewField("source", cfg.Source),
		logger.NewField("sink", cfg.Sink),
		logger.NewField("instruments", cfg.Instruments),
		logger.NewField("httpAddr", cfg.HTTPAddr),
	)

	if err := g.Wait(); err != nil {
		log.Error(err, logger.NewField("action", "run"))
	}

	log.Info("Received shutdown signal, draining engines")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := router.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.NewField("action", "stop_engines"))
	}

	log.Info("Matching engine shutdown complete")
}

func newOrderReader(ctx context.Context, rclient redis.Client) (orderreaderv1.OrderReader, error) {
	if cfg.Source == config.TransportKafka {
		return orderreader.NewKafkaReader(cfg.KafkaConfig, log), nil
	}
	reader, err := orderreader.NewRedisReader(ctx, rclient, cfg.RedisConfig.OrderChannel, log)
	if err != nil {
		return nil, err
	}
	return reader, nil
}

func newEventPublisher(rclient redis.Client) eventv1.Publisher {
	if cfg.Sink == config.TransportKafka {
		return eventpublisher.NewKafkaPublisher(cfg.KafkaConfig, log)
	}
	return eventpublisher.NewRedisPublisher(rclient, cfg.RedisConfig.EventChannel, log)
}
