package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/kawadia/dad-son-fitness-challenge/internal/api"
	"github.com/kawadia/dad-son-fitness-challenge/internal/config"
	"github.com/kawadia/dad-son-fitness-challenge/internal/consumer"
	"github.com/kawadia/dad-son-fitness-challenge/internal/devicestate"
	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
	"github.com/kawadia/dad-son-fitness-challenge/internal/ledger"
	"github.com/kawadia/dad-son-fitness-challenge/internal/logger"
	"github.com/kawadia/dad-son-fitness-challenge/internal/motivation"
	"github.com/kawadia/dad-son-fitness-challenge/internal/outbox"
	persistence "github.com/kawadia/dad-son-fitness-challenge/internal/persistence/postgres"
	"github.com/kawadia/dad-son-fitness-challenge/internal/syncbridge"
	httptransport "github.com/kawadia/dad-son-fitness-challenge/internal/transport/http"
)

func main() {
	cfg := config.Load()
	log := logger.Init(cfg.Log)

	loc, err := cfg.Location()
	if err != nil {
		log.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	var bridge domain.SyncBridge
	if cfg.Durable() {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		hub := syncbridge.NewHub()
		bridge = syncbridge.NewDocumentBridge(persistence.NewRepository(pool), hub)

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		schemas := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher := outbox.NewDispatcher(pool, producer, schemas, cfg.OutboxPollInterval, cfg.OutboxBatchSize, outbox.WithLogger(log))
		go dispatcher.Start(ctx)
		defer dispatcher.Wait()

		// Every instance must see every snapshot, so each reads in its own group.
		groupID := cfg.ConsumerGroupID + "-" + uuid.NewString()
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         groupID,
			Topic:           cfg.FamilyTopic,
			StartOffset:     kafka.LastOffset,
			MinBytes:        1,
			MaxBytes:        10e6,
			MaxWait:         500 * time.Millisecond,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})
		proc := consumer.NewProcessor(reader, consumer.NewSnapshotHandler(hub), consumer.WithLogger(log))

		g.Go(func() error {
			defer reader.Close()
			log.Info("family subscription started", "topic", cfg.FamilyTopic, "group", groupID)
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		log.Warn("POSTGRES_URL not set, families sync only within this process")
		bridge = syncbridge.NewMemoryBridge()
	}

	registry := ledger.NewRegistry(bridge, cfg.DateCheckInterval,
		ledger.WithLocation(loc),
		ledger.WithLogger(log),
	)
	defer registry.Close()

	device := devicestate.NewFile(cfg.DeviceStatePath)
	reconnect(ctx, log, registry, device)

	quotes := motivation.NewClient(cfg.MotivationURL, cfg.HTTPTimeout, motivation.WithLogger(log))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(httptransport.CORS(cfg.CORSOrigin))
	api.NewHandler(registry, device, quotes, log).RegisterRoutes(r)

	servers := []*http.Server{}
	if cfg.MetricsAddress == "" {
		r.Handle("/metrics", promhttp.Handler())
	} else {
		servers = append(servers, httptransport.NewServer(httptransport.ServerConfig{
			Address:           cfg.MetricsAddress,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
		}, promhttp.Handler()))
	}
	servers = append(servers, httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), r))

	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			log.Info("http listening", "address", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		// Event streams only end when their families go away.
		registry.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("graceful shutdown failed", "address", srv.Addr, "error", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

// reconnect restores the family this device was last connected to.
func reconnect(ctx context.Context, log *slog.Logger, registry *ledger.Registry, device *devicestate.File) {
	st, err := device.Load()
	if err != nil {
		log.Warn("load device state", "path", device.Path(), "error", err)
		return
	}
	if st.FamilyID == "" {
		return
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := registry.Connect(connectCtx, st.FamilyID); err != nil {
		log.Warn("reconnect saved family", "family", st.FamilyID, "error", err)
		return
	}
	log.Info("reconnected saved family", "family", st.FamilyID)
}
