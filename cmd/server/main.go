package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	agenthandler "agentmemory/internal/agent/handler"
	agentmetrics "agentmemory/internal/agent/metrics"
	agentservice "agentmemory/internal/agent/service"
	agentstore "agentmemory/internal/agent/store"
	"agentmemory/internal/events"
	jwttoken "agentmemory/internal/jwt_token"
	"agentmemory/internal/ledger"
	ledgerhandler "agentmemory/internal/ledger/handler"
	markethandler "agentmemory/internal/marketplace/handler"
	marketmetrics "agentmemory/internal/marketplace/metrics"
	marketservice "agentmemory/internal/marketplace/service"
	marketstore "agentmemory/internal/marketplace/store"
	memloghandler "agentmemory/internal/memlog/handler"
	memlogmetrics "agentmemory/internal/memlog/metrics"
	memlogservice "agentmemory/internal/memlog/service"
	memlogstore "agentmemory/internal/memlog/store"
	"agentmemory/internal/platform/config"
	"agentmemory/internal/platform/httpserver"
	"agentmemory/internal/platform/logger"
	transport "agentmemory/internal/transport/http"
)

func main() {
	log := logger.New()
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Event pipeline: services emit into a buffered inbox; the worker drains
	// into the in-memory recorder. Redis/kafka/postgres sinks attach when
	// configured.
	eventStore := events.NewInMemoryStore()
	channelPub := events.NewChannelPublisher(1024)
	worker := events.NewWorker(eventStore, channelPub.Inbox())

	sinks := []events.Publisher{channelPub}

	redisPub, err := events.NewRedisPublisher(cfg.RedisURL, events.DefaultRedisChannel)
	if err != nil {
		log.Error("redis sink unavailable", "error", err)
		os.Exit(1)
	}
	if redisPub != nil {
		defer redisPub.Close()
		sinks = append(sinks, redisPub)
	}

	kafkaPub, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Error("kafka sink unavailable", "error", err)
		os.Exit(1)
	}
	if kafkaPub != nil {
		defer kafkaPub.Close()
		sinks = append(sinks, kafkaPub)
	}

	outbox, err := events.OpenPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres outbox unavailable", "error", err)
		os.Exit(1)
	}
	if outbox != nil {
		defer outbox.Close()
		sinks = append(sinks, events.NewStorePublisher(outbox))
	}

	publisher := events.NewMulti(sinks...)

	// Stores and the value ledger.
	agents := agentstore.NewInMemory()
	logs := memlogstore.NewInMemoryLogs()
	attestations := memlogstore.NewInMemoryAttestations()
	platformCfg := marketstore.NewInMemoryConfig()
	modules := marketstore.NewInMemoryModules()
	purchases := marketstore.NewInMemoryPurchases()
	valueLedger := ledger.NewInMemory()

	// Services.
	agentSvc := agentservice.New(agents, publisher, agentmetrics.New())
	memlogSvc := memlogservice.New(logs, attestations, agents, publisher, memlogmetrics.New())
	marketSvc := marketservice.New(platformCfg, modules, purchases, agents, valueLedger, publisher, marketmetrics.New())

	jwtSvc := jwttoken.NewService(cfg.JWTSigningKey, "agentmemory")

	router := transport.NewRouter(log,
		agenthandler.New(agentSvc, log, jwtSvc),
		memloghandler.New(memlogSvc, log, jwtSvc),
		markethandler.New(marketSvc, log, jwtSvc),
		ledgerhandler.New(valueLedger, log, jwtSvc, cfg.DevFaucet),
	)
	server := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr, "dev_faucet", cfg.DevFaucet)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := worker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		channelPub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
