package redisclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-booking/internal/realtime"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLocker_WithLock(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewRedisLocker(client, 5*time.Second)
	ctx := context.Background()

	ran := false
	err := locker.WithLock(ctx, "booking:c1:100", func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("lock:booking:c1:100"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("lock:booking:c1:100"), "lock released after fn")
}

func TestLocker_HeldKeyIsRejected(t *testing.T) {
	_, client := newTestClient(t)
	locker := NewRedisLocker(client, 5*time.Second)
	ctx := context.Background()

	err := locker.WithLock(ctx, "k", func(ctx context.Context) error {
		inner := locker.WithLock(ctx, "k", func(context.Context) error {
			t.Fatal("nested critical section ran")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)
}

func TestLocker_PropagatesFnError(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewRedisLocker(client, 5*time.Second)
	boom := errors.New("boom")

	err := locker.WithLock(context.Background(), "k", func(context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("lock:k"))
}

func TestLocker_DoesNotReleaseForeignToken(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewRedisLocker(client, 5*time.Second)

	err := locker.WithLock(context.Background(), "k", func(context.Context) error {
		// simulate expiry and takeover by another holder
		require.NoError(t, mr.Set("lock:k", "someone-else"))
		return nil
	})
	require.NoError(t, err)

	got, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

type recordingSink struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recordingSink) Publish(_ context.Context, ev realtime.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestBus_RoundTripsEvents(t *testing.T) {
	_, client := newTestClient(t)
	bus := NewBus(client, "events", nil)

	var published []string
	bus.OnPublish = func(eventType string) { published = append(published, eventType) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingSink{}
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx, sink, ready) }()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("bus did not subscribe")
	}

	ev, err := realtime.NewEvent(realtime.QueueTopic("c1"), realtime.EventQueueUpdated, map[string]int{"currentNumber": 2})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, ev))

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	got := sink.events[0]
	sink.mu.Unlock()
	assert.Equal(t, "queue/c1", got.Topic)
	assert.Equal(t, realtime.EventQueueUpdated, got.Type)
	assert.JSONEq(t, `{"currentNumber":2}`, string(got.Data))
	assert.Equal(t, []string{realtime.EventQueueUpdated}, published)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bus did not stop")
	}
}
