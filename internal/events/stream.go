package events

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/nimasrn/pos-ledger/pkg/redis"
)

// Delivery is one event handed to a consumer.
type Delivery struct {
	StreamID string
	Event    Event
	Attempts int
}

// Handler returns nil to ack. An error leaves the entry pending so it is
// reclaimed after the visibility timeout.
type Handler func(ctx context.Context, d *Delivery) error

type StreamConfig struct {
	Name              string
	ConsumerGroup     string
	ConsumerName      string
	MaxRetries        int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	BatchSize         int64
	MaxLen            int64
	EnableDLQ         bool
}

// Stream is a consumer-group backed Redis stream of domain events.
type Stream struct {
	adapter  redis.RedisAdapter
	config   StreamConfig
	handler  Handler
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	inflight map[string]struct{}
}

type StreamStats struct {
	TotalEvents   int64
	PendingEvents int64
	ConsumerCount int64
}

func NewStream(adapter redis.RedisAdapter, config StreamConfig) (*Stream, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("stream name is required")
	}
	if config.ConsumerGroup == "" {
		config.ConsumerGroup = "ledger"
	}
	if config.ConsumerName == "" {
		config.ConsumerName = "consumer-" + uuid.NewString()[:8]
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.VisibilityTimeout == 0 {
		config.VisibilityTimeout = 30 * time.Second
	}
	if config.PollInterval == 0 {
		config.PollInterval = time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Stream{
		adapter:  adapter,
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]struct{}),
	}

	// BUSYGROUP just means the group is already there.
	if err := adapter.XGroupCreateMkStream(ctx, config.Name, config.ConsumerGroup, "0"); err != nil {
		logger.Debug("consumer group create", "stream", config.Name, "group", config.ConsumerGroup, "error", err)
	}
	return s, nil
}

func (s *Stream) Name() string {
	return s.config.Name
}

// Publish appends the event and trims the stream when MaxLen is set.
func (s *Stream) Publish(ctx context.Context, evt Event) (string, error) {
	values := map[string]interface{}{
		"id":          evt.ID,
		"type":        string(evt.Type),
		"occurred_at": evt.OccurredAt.Format(time.RFC3339Nano),
		"payload":     string(evt.Payload),
	}

	id, err := s.adapter.XAdd(ctx, s.config.Name, values)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", evt.Type, err)
	}

	if s.config.MaxLen > 0 {
		if err := s.adapter.XTrimApprox(ctx, s.config.Name, s.config.MaxLen); err != nil {
			logger.Warn("stream trim failed", "stream", s.config.Name, "error", err)
		}
	}
	return id, nil
}

// Consume starts the poll loop in the background.
func (s *Stream) Consume(handler Handler) error {
	if handler == nil {
		return fmt.Errorf("event handler is required")
	}
	s.handler = handler
	s.wg.Add(1)
	go s.loop()
	return nil
}

func (s *Stream) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.poll()
			s.reclaim()
		}
	}
}

func (s *Stream) poll() {
	msgs, err := s.adapter.XReadGroup(s.ctx, s.config.ConsumerGroup, s.config.ConsumerName, s.config.Name, s.config.BatchSize)
	if err != nil {
		if err != redis.NilError && s.ctx.Err() == nil {
			logger.Error("stream read failed", "stream", s.config.Name, "error", err)
		}
		return
	}
	for _, m := range msgs {
		s.deliver(decode(m), 1)
	}
}

// reclaim takes over entries idle longer than the visibility timeout,
// typically left behind by a failed handler or a dead consumer.
func (s *Stream) reclaim() {
	pending, err := s.adapter.XPending(s.ctx, s.config.Name, s.config.ConsumerGroup)
	if err != nil || pending == nil || pending.Count == 0 {
		return
	}

	ext, err := s.adapter.XPendingExt(s.ctx, s.config.Name, s.config.ConsumerGroup, 100)
	if err != nil || len(ext) == 0 {
		return
	}

	retries := make(map[string]int64, len(ext))
	var ids []string
	for _, p := range ext {
		if p.Idle >= s.config.VisibilityTimeout {
			ids = append(ids, p.ID)
			retries[p.ID] = p.RetryCount
		}
	}
	if len(ids) == 0 {
		return
	}

	msgs, err := s.adapter.XClaim(s.ctx, s.config.Name, s.config.ConsumerGroup, s.config.ConsumerName, s.config.VisibilityTimeout, ids...)
	if err != nil {
		logger.Warn("stream claim failed", "stream", s.config.Name, "error", err)
		return
	}
	for _, m := range msgs {
		s.deliver(decode(m), int(retries[m.ID])+1)
	}
}

func (s *Stream) deliver(d *Delivery, attempts int) {
	s.mu.Lock()
	if _, busy := s.inflight[d.StreamID]; busy {
		s.mu.Unlock()
		return
	}
	s.inflight[d.StreamID] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, d.StreamID)
		s.mu.Unlock()
	}()

	d.Attempts = attempts
	if attempts > s.config.MaxRetries {
		s.deadLetter(d)
		s.ack(d.StreamID)
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.config.VisibilityTimeout)
	defer cancel()

	if err := s.handler(ctx, d); err != nil {
		logger.Warn("event handler failed", "stream", s.config.Name, "event_id", d.Event.ID, "type", d.Event.Type, "attempt", attempts, "error", err)
		return
	}
	s.ack(d.StreamID)
}

func (s *Stream) ack(streamID string) {
	if err := s.adapter.XAck(s.ctx, s.config.Name, s.config.ConsumerGroup, streamID); err != nil {
		logger.Error("stream ack failed", "stream", s.config.Name, "id", streamID, "error", err)
	}
}

func (s *Stream) deadLetter(d *Delivery) {
	if !s.config.EnableDLQ {
		logger.Error("dropping event after max retries", "stream", s.config.Name, "event_id", d.Event.ID, "attempts", d.Attempts)
		return
	}
	values := map[string]interface{}{
		"id":          d.Event.ID,
		"type":        string(d.Event.Type),
		"occurred_at": d.Event.OccurredAt.Format(time.RFC3339Nano),
		"payload":     string(d.Event.Payload),
		"original_id": d.StreamID,
		"attempts":    d.Attempts,
		"failed_at":   time.Now().Unix(),
	}
	if _, err := s.adapter.XAdd(s.ctx, s.config.Name+":dlq", values); err != nil {
		logger.Error("dead letter publish failed", "stream", s.config.Name, "error", err)
	}
}

func decode(m redis.StreamMessage) *Delivery {
	d := &Delivery{StreamID: m.ID}
	for k, v := range m.Values {
		str, _ := v.(string)
		switch k {
		case "id":
			d.Event.ID = str
		case "type":
			d.Event.Type = Type(str)
		case "occurred_at":
			if ts, err := time.Parse(time.RFC3339Nano, str); err == nil {
				d.Event.OccurredAt = ts
			}
		case "payload":
			d.Event.Payload = []byte(str)
		case "attempts":
			if n, err := strconv.Atoi(str); err == nil {
				d.Attempts = n
			}
		}
	}
	return d
}

// Stop cancels the loop and waits up to timeout for it to return.
func (s *Stream) Stop(timeout time.Duration) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for stream %s to stop", s.config.Name)
	}
}

func (s *Stream) Stats(ctx context.Context) (*StreamStats, error) {
	total, err := s.adapter.XLen(ctx, s.config.Name)
	if err != nil {
		return nil, err
	}
	stats := &StreamStats{TotalEvents: total}

	pending, err := s.adapter.XPending(ctx, s.config.Name, s.config.ConsumerGroup)
	if err == nil && pending != nil {
		stats.PendingEvents = pending.Count
		stats.ConsumerCount = int64(len(pending.Consumers))
	}
	return stats, nil
}
