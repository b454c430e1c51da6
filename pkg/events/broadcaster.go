package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event describes a committed or reversed mutation for downstream subscribers.
type Event struct {
	EntityType string    `json:"entity_type"`
	Operation  string    `json:"operation"`
	EntityIDs  []string  `json:"entity_ids"`
	EmittedAt  time.Time `json:"emitted_at"`
}

// Publisher abstracts the underlying pub/sub transport.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) *redis.IntCmd
}

// BroadcasterConfig configures worker behaviour.
type BroadcasterConfig struct {
	Channel    string
	Workers    int
	BufferSize int
	Logger     *zap.Logger
}

// Broadcaster fans committed mutations out to a Redis channel without blocking
// the request path. Delivery is best-effort; the core never waits for acks.
type Broadcaster struct {
	client  Publisher
	channel string
	workers int
	logger  *zap.Logger

	events  chan Event
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewBroadcaster builds a broadcaster over the provided Redis client.
func NewBroadcaster(client Publisher, cfg BroadcasterConfig) *Broadcaster {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.Channel == "" {
		cfg.Channel = "timetable.events"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Broadcaster{
		client:  client,
		channel: cfg.Channel,
		workers: cfg.Workers,
		logger:  cfg.Logger,
		events:  make(chan Event, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (b *Broadcaster) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.ctx, b.cancel = context.WithCancel(ctx)
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	b.started = true
	b.logger.Sugar().Infow("event broadcaster started", "channel", b.channel, "workers", b.workers)
}

// Stop cancels workers and waits for them to exit.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.cancel()
	b.mu.Unlock()
	b.wg.Wait()
	b.logger.Sugar().Infow("event broadcaster stopped", "channel", b.channel)
}

// Emit queues an event for publication. It never blocks the caller: when the
// buffer is full the event is dropped and logged.
func (b *Broadcaster) Emit(event Event) error {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()

	if !started {
		return fmt.Errorf("broadcaster not started")
	}
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}

	select {
	case b.events <- event:
		return nil
	default:
		b.logger.Sugar().Warnw("event buffer full, dropping event", "entity", event.EntityType, "operation", event.Operation)
		return fmt.Errorf("event buffer full")
	}
}

func (b *Broadcaster) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event := <-b.events:
			b.publish(event)
		}
	}
}

func (b *Broadcaster) publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Sugar().Errorw("failed to encode event", "error", err)
		return
	}
	if err := b.client.Publish(b.ctx, b.channel, payload).Err(); err != nil {
		b.logger.Sugar().Warnw("failed to publish event", "channel", b.channel, "error", err)
	}
}
