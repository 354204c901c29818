package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(NewEventLog(setupTestDB(t)), nil)
	defer bus.Close()

	ch := bus.Subscribe(EventCatalogChanged, 10)
	other := bus.Subscribe(EventBatchStarted, 10)

	e := &CatalogChanged{BaseEvent: NewBaseEvent(EventCatalogChanged, EntityBatch, 0), BatchID: "b1", Changes: 2}
	require.NoError(t, bus.Publish(context.Background(), e))

	select {
	case received := <-ch:
		assert.Equal(t, EventCatalogChanged, received.EventType())
		assert.Equal(t, "b1", received.(*CatalogChanged).BatchID)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	assert.Empty(t, other)
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus(nil, nil)
	defer bus.Close()

	ch := bus.SubscribeAll(10)

	require.NoError(t, bus.Publish(context.Background(), &testEvent{BaseEvent: NewBaseEvent("test.first", "test", 1)}))
	require.NoError(t, bus.Publish(context.Background(), &testEvent{BaseEvent: NewBaseEvent("test.second", "test", 2)}))

	assert.Equal(t, "test.first", (<-ch).EventType())
	assert.Equal(t, "test.second", (<-ch).EventType())
}

func TestBus_FullSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus(nil, nil)
	defer bus.Close()

	ch := bus.Subscribe("test", 1)
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(context.Background(), &testEvent{BaseEvent: NewBaseEvent("test", "test", int64(i))}))
	}

	assert.Len(t, ch, 1)
	assert.Equal(t, int64(0), (<-ch).EntityID())
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil, nil)
	defer bus.Close()

	ch := bus.Subscribe("test", 1)
	all := bus.SubscribeAll(1)
	bus.Unsubscribe(ch)
	bus.Unsubscribe(all)

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
	_, ok = <-all
	assert.False(t, ok, "channel should be closed")

	require.NoError(t, bus.Publish(context.Background(), &testEvent{BaseEvent: NewBaseEvent("test", "test", 1)}))
}

func TestBus_Close(t *testing.T) {
	bus := NewBus(nil, nil)
	ch := bus.Subscribe("test", 1)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	_, ok := <-ch
	assert.False(t, ok)
	assert.NoError(t, bus.Publish(context.Background(), &testEvent{BaseEvent: NewBaseEvent("test", "test", 1)}))

	late := bus.Subscribe("test", 1)
	_, ok = <-late
	assert.False(t, ok, "subscriptions after close are closed")
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(NewEventLog(setupTestDB(t)), nil)
	defer bus.Close()

	ch := bus.SubscribeAll(100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = bus.Publish(context.Background(), &testEvent{BaseEvent: NewBaseEvent("test", "test", id)})
		}(int64(i))
	}
	wg.Wait()

	assert.Len(t, ch, 10)
}
