package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nimasrn/pos-ledger/internal/events"
	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/nimasrn/pos-ledger/pkg/redis"
	"github.com/nimasrn/pos-ledger/pkg/worker"
)

const ProcessingTimeout = time.Second * 30
const HealthInterval = time.Second * 30
const ShutdownTimeout = time.Minute

// Processor handles one event type.
type Processor interface {
	Process(ctx context.Context, d *events.Delivery) error
	GetType() events.Type
}

type ServiceConfig struct {
	Stream      events.StreamConfig
	Consumers   int
	Workers     int
	BufferSize  int
	StatsPeriod time.Duration
}

// ProcessorService reads the ledger event stream with a few consumers and
// hands every delivery to a fixed worker pool. A delivery is acked only once
// its processor returns nil.
type ProcessorService struct {
	adapter    redis.RedisAdapter
	config     ServiceConfig
	streams    []*events.Stream
	processors map[events.Type]Processor
	metrics    *ServiceMetrics
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	worker     *worker.WorkerManager
}

func NewProcessorService(adapter redis.RedisAdapter, config ServiceConfig) (*ProcessorService, error) {
	if adapter == nil {
		return nil, fmt.Errorf("redis adapter is required")
	}
	if config.Consumers <= 0 {
		config.Consumers = 1
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 100
	}
	if config.StatsPeriod <= 0 {
		config.StatsPeriod = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ProcessorService{
		adapter:    adapter,
		config:     config,
		processors: make(map[events.Type]Processor),
		metrics:    NewServiceMetrics(),
		ctx:        ctx,
		cancel:     cancel,
		worker:     worker.NewWorkerManager(config.BufferSize, config.Workers),
	}, nil
}

func (s *ProcessorService) RegisterProcessor(processor Processor) {
	s.processors[processor.GetType()] = processor
	logger.Info("registered processor", "type", processor.GetType())
}

func (s *ProcessorService) Metrics() *ServiceMetrics {
	return s.metrics
}

func (s *ProcessorService) Start() error {
	logger.Info("starting processor service...")

	s.worker.SetWorker(s.workerHandler)
	if err := s.worker.Start(); err != nil {
		return err
	}

	for i := 0; i < s.config.Consumers; i++ {
		cfg := s.config.Stream
		if cfg.ConsumerName != "" {
			cfg.ConsumerName = fmt.Sprintf("%s-%d", cfg.ConsumerName, i)
		}

		stream, err := events.NewStream(s.adapter, cfg)
		if err != nil {
			return fmt.Errorf("failed to create stream consumer %d: %w", i, err)
		}
		if err := stream.Consume(s.deliveryHandler); err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}
		s.streams = append(s.streams, stream)
	}

	s.wg.Add(2)
	go s.metricsReporter()
	go s.healthChecker()

	logger.Info("processor service started", "consumers", len(s.streams), "workers", s.config.Workers)
	return nil
}

func (s *ProcessorService) metricsReporter() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.StatsPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reportMetrics()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ProcessorService) reportMetrics() {
	stats := s.metrics.GetStats()
	logger.Info("processor metrics",
		"total_processed", stats["total_processed"],
		"total_failed", stats["total_failed"],
		"rate_per_second", stats["rate_per_second"],
		"avg_duration_ms", stats["avg_duration_ms"],
		"by_type", stats["by_type"],
	)

	if len(s.streams) == 0 {
		return
	}
	if st, err := s.streams[0].Stats(s.ctx); err == nil {
		logger.Info("stream stats", "stream", s.streams[0].Name(), "total", st.TotalEvents, "pending", st.PendingEvents)
	}
}

func (s *ProcessorService) healthChecker() {
	defer s.wg.Done()

	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Health(); err != nil {
				logger.Error("health check failed", "error", err)
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// Health pings Redis and reports consumer lag. It backs the /health route.
func (s *ProcessorService) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.adapter.Client().Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if len(s.streams) > 0 {
		st, err := s.streams[0].Stats(ctx)
		if err != nil {
			logger.Warn("stream stats unavailable", "error", err)
		} else if st.PendingEvents > 1000 {
			logger.Warn("event stream has high lag", "pending", st.PendingEvents)
		}
	}
	return nil
}

func (s *ProcessorService) Stop() {
	logger.Info("shutting down processor service...")
	s.cancel()

	var wg sync.WaitGroup
	for i, st := range s.streams {
		wg.Add(1)
		go func(index int, stream *events.Stream) {
			defer wg.Done()
			if err := stream.Stop(ShutdownTimeout); err != nil {
				logger.Error("error stopping stream consumer", "consumer", index, "error", err)
			}
		}(i, st)
	}
	wg.Wait()

	s.worker.Exit()
	s.wg.Wait()
	s.reportMetrics()
	logger.Info("processor service stopped")
}

type job struct {
	delivery   *events.Delivery
	resultChan chan error
	ctx        context.Context
}

// deliveryHandler blocks the consumer until a worker has finished the
// delivery so the stream acks only processed events.
func (s *ProcessorService) deliveryHandler(ctx context.Context, d *events.Delivery) error {
	jobCtx, cancel := context.WithTimeout(ctx, ProcessingTimeout)
	defer cancel()

	j := &job{
		delivery:   d,
		resultChan: make(chan error, 1),
		ctx:        jobCtx,
	}
	if err := s.worker.Enqueue(jobCtx, j); err != nil {
		return fmt.Errorf("enqueue %s: %w", d.Event.ID, err)
	}

	select {
	case err := <-j.resultChan:
		return err
	case <-jobCtx.Done():
		return fmt.Errorf("timeout waiting for worker to process event: %w", jobCtx.Err())
	}
}

func (s *ProcessorService) workerHandler(_ context.Context, workerIndex int, payload interface{}) {
	j, ok := payload.(*job)
	if !ok {
		logger.Error("invalid job type in worker", "worker", workerIndex)
		return
	}
	if j.ctx.Err() != nil {
		return
	}

	typ := string(j.delivery.Event.Type)
	start := time.Now()

	var result error
	processor, ok := s.processors[j.delivery.Event.Type]
	if !ok {
		// No processor will ever accept it; ack instead of retrying.
		logger.Warn("no processor registered", "worker", workerIndex, "type", typ, "event_id", j.delivery.Event.ID)
		s.metrics.RecordFailure(typ)
	} else if err := processor.Process(j.ctx, j.delivery); err != nil {
		s.metrics.RecordFailure(typ)
		logger.Error("failed to process event", "worker", workerIndex, "type", typ, "event_id", j.delivery.Event.ID, "error", err)
		result = err
	} else {
		s.metrics.RecordSuccess(typ, time.Since(start))
	}

	j.resultChan <- result
}
