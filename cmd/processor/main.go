package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nimasrn/pos-ledger/internal/config"
	"github.com/nimasrn/pos-ledger/internal/events"
	"github.com/nimasrn/pos-ledger/internal/processor"
	"github.com/nimasrn/pos-ledger/internal/reporting"
	"github.com/nimasrn/pos-ledger/internal/repository"
	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/nimasrn/pos-ledger/pkg/pg"
	"github.com/nimasrn/pos-ledger/pkg/prom"
	"github.com/nimasrn/pos-ledger/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer logger.Sync()

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting ledger processor", "version", version, "commit", commit, "date", date)

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), cfg.AppEnv == "dev")
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	opts := cfg.RedisOptions()
	opts.ClientName = "processor"
	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, opts)
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	reports := reporting.NewService(
		repository.NewTicketRepository(db),
		repository.NewDeductionRepository(db),
		repository.NewReferenceRepository(db),
		repository.NewLocationRepository(db),
		reporting.NewCache(redisAdap, cfg.ReportCacheTTL),
	)
	idempotency := processor.NewIdempotencyService(redisAdap, processor.DefaultIdempotencyConfig())

	consumerName := cfg.EventsConsumerName
	if consumerName == "" {
		consumerName = hostname
	}
	service, err := processor.NewProcessorService(redisAdap, processor.ServiceConfig{
		Stream: events.StreamConfig{
			Name:              cfg.EventsStream,
			ConsumerGroup:     cfg.EventsConsumerGroup,
			ConsumerName:      consumerName,
			MaxRetries:        cfg.EventsMaxRetries,
			VisibilityTimeout: cfg.EventsVisibilityTimeout,
			PollInterval:      cfg.EventsPollInterval,
			BatchSize:         cfg.EventsBatchSize,
			MaxLen:            cfg.EventsMaxLen,
			EnableDLQ:         cfg.EventsEnableDLQ,
		},
		Consumers:  2,
		Workers:    cfg.ProcessorWorkers,
		BufferSize: cfg.ProcessorBufferSize,
	})
	if err != nil {
		logger.Error("failed to create the processor", "error", err)
		return
	}
	service.RegisterProcessor(processor.NewReportWarmer(reports, idempotency))

	if cfg.MetricsListenAddr != "" {
		go func() {
			if err := prom.ListenAndServer(cfg.MetricsListenAddr, cfg.MetricsURI, service.Health); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	if err := service.Start(); err != nil {
		logger.Error("failed to start processor", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	service.Stop()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, "--env=") {
			path := strings.TrimPrefix(v, "--env=")
			if _, err := os.Stat(path); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return path
		}
	}
	return ""
}
