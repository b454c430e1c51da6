package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	done     chan struct{}
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{done: make(chan struct{}, 16)}
}

func (f *fakePublisher) Publish(_ context.Context, _ string, payload interface{}) *redis.IntCmd {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload.([]byte))
	f.mu.Unlock()
	f.done <- struct{}{}
	return redis.NewIntResult(1, nil)
}

func (f *fakePublisher) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.done:
		case <-time.After(time.Second):
			t.Fatal("publish never happened")
		}
	}
}

func TestBroadcasterPublishesEvents(t *testing.T) {
	publisher := newFakePublisher()
	b := NewBroadcaster(publisher, BroadcasterConfig{Channel: "timetable.events", Workers: 2})
	b.Start(context.Background())
	defer b.Stop()

	require.NoError(t, b.Emit(Event{EntityType: "scheduled_entry", Operation: "COMMIT", EntityIDs: []string{"e1"}}))
	publisher.wait(t, 1)

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	require.Len(t, publisher.payloads, 1)

	var got Event
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &got))
	assert.Equal(t, "scheduled_entry", got.EntityType)
	assert.Equal(t, "COMMIT", got.Operation)
	assert.Equal(t, []string{"e1"}, got.EntityIDs)
	assert.False(t, got.EmittedAt.IsZero())
}

func TestBroadcasterEmitBeforeStartFails(t *testing.T) {
	b := NewBroadcaster(newFakePublisher(), BroadcasterConfig{})
	require.Error(t, b.Emit(Event{Operation: "COMMIT"}))
}

func TestBroadcasterDropsWhenBufferFull(t *testing.T) {
	// No workers draining: Start with a cancelled context so queued events sit
	// in the buffer.
	b := NewBroadcaster(newFakePublisher(), BroadcasterConfig{Workers: 1, BufferSize: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.Start(ctx)
	defer b.Stop()

	// One event fits the buffer; a second may race the worker shutdown, so
	// keep emitting until the drop path reports the full buffer.
	deadline := time.After(time.Second)
	for {
		if err := b.Emit(Event{Operation: "COMMIT"}); err != nil {
			assert.Contains(t, err.Error(), "buffer full")
			return
		}
		select {
		case <-deadline:
			t.Fatal("buffer never filled")
		default:
		}
	}
}
