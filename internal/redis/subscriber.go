package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/gunturachievement/socket-io-roconal/internal/correlation"
	"github.com/gunturachievement/socket-io-roconal/internal/domain"
	"github.com/gunturachievement/socket-io-roconal/internal/logging"
	"github.com/gunturachievement/socket-io-roconal/internal/metrics"
)

// Broadcaster is the single operation both ingestion adapters funnel into.
type Broadcaster interface {
	Broadcast(event, room string, data json.RawMessage) bool
}

// Subscriber bridges Redis pub/sub into the broadcast hub. It holds two
// subscriptions: the exact-match channel set resolved from configuration,
// and a safety-net pattern matching any channel ending in the base channel
// name. The pattern path may redeliver messages already seen on the exact
// path; the subscriber detects and counts those but does not dedupe them,
// so a doubly-matched publish causes two broadcasts.
type Subscriber struct {
	rdb         *goredis.Client
	broadcaster Broadcaster
	channels    []string
	pattern     string
	exact       map[string]struct{}

	sub  *goredis.PubSub
	psub *goredis.PubSub
	wg   sync.WaitGroup
}

// NewSubscriber creates a subscriber for the given channel set and pattern.
func NewSubscriber(rdb *goredis.Client, broadcaster Broadcaster, channels []string, pattern string) *Subscriber {
	exact := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		exact[ch] = struct{}{}
	}
	return &Subscriber{
		rdb:         rdb,
		broadcaster: broadcaster,
		channels:    channels,
		pattern:     pattern,
		exact:       exact,
	}
}

// Start establishes both subscriptions and begins consuming messages.
// Subscription failures are logged and the subscriber keeps running in a
// degraded state; reconnection is left to the go-redis client.
func (s *Subscriber) Start(ctx context.Context) {
	s.sub = s.rdb.Subscribe(ctx, s.channels...)
	if _, err := s.sub.Receive(ctx); err != nil {
		slog.Error("Redis subscribe failed", "channels", s.channels, "error", err)
	} else {
		slog.Info("Subscribed to channels", "channels", s.channels)
	}

	s.psub = s.rdb.PSubscribe(ctx, s.pattern)
	if _, err := s.psub.Receive(ctx); err != nil {
		slog.Error("Redis pattern subscribe failed", "pattern", s.pattern, "error", err)
	} else {
		slog.Info("Pattern subscribed", "pattern", s.pattern)
	}

	s.wg.Add(2)
	go s.consume(s.sub, "exact")
	go s.consume(s.psub, "pattern")
}

// Close unsubscribes and stops the consumer goroutines.
func (s *Subscriber) Close() {
	if s.sub != nil {
		_ = s.sub.Close()
	}
	if s.psub != nil {
		_ = s.psub.Close()
	}
	s.wg.Wait()
}

func (s *Subscriber) consume(sub *goredis.PubSub, path string) {
	defer s.wg.Done()
	for msg := range sub.Channel() {
		s.handleMessage(path, msg.Channel, msg.Pattern, []byte(msg.Payload))
	}
}

// handleMessage parses one bus message and hands it to the hub. Malformed
// messages and envelopes without an event name are dropped, never fatal.
// Each message gets its own correlation id so its log lines group together.
func (s *Subscriber) handleMessage(path, channel, pattern string, payload []byte) {
	ctx := correlation.WithID(context.Background(), correlation.NewID())
	log := logging.WithChannel(channel)

	var envelope domain.Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		log.WarnContext(ctx, "Dropping malformed bus message", "pattern", pattern, "error", err)
		metrics.BusMessagesTotal.WithLabelValues(path, "malformed").Inc()
		return
	}

	if !envelope.Valid() {
		log.DebugContext(ctx, "Dropping bus message without event name", "pattern", pattern)
		metrics.BusMessagesTotal.WithLabelValues(path, "invalid").Inc()
		return
	}

	if pattern != "" {
		if _, dup := s.exact[channel]; dup {
			// Same publish already arrived via the exact subscription.
			log.DebugContext(ctx, "Duplicate delivery via pattern subscription", "pattern", pattern)
			metrics.BusDuplicateDeliveries.Inc()
		}
	}

	log.InfoContext(ctx, "Bus message received",
		"pattern", pattern,
		"event", envelope.Event,
		"room", envelope.Room,
	)

	s.broadcaster.Broadcast(envelope.Event, envelope.Room, envelope.Data)
	metrics.BusMessagesTotal.WithLabelValues(path, "ok").Inc()
}
