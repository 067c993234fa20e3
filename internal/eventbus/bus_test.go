package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(8)
	defer bus.Unsubscribe(id)

	bus.PublishNew(TaskCreated, "t1", "client1", "", nil)

	select {
	case ev := <-ch:
		assert.Equal(t, TaskCreated, ev.Type)
		assert.Equal(t, "t1", ev.TaskID)
		assert.Equal(t, "client1", ev.ClientID)
		assert.NotEmpty(t, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("event not received")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := New()
	id1, ch1 := bus.Subscribe(8)
	defer bus.Unsubscribe(id1)
	id2, ch2 := bus.Subscribe(8)
	defer bus.Unsubscribe(id2)

	bus.PublishNew(TaskClaimed, "t1", "client1", "worker", nil)

	for _, ch := range []<-chan *Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, TaskClaimed, ev.Type)
		case <-time.After(time.Second):
			t.Fatal("event not received")
		}
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	defer bus.Unsubscribe(id)

	done := make(chan struct{})
	go func() {
		defer close(done)
		bus.PublishNew(TaskCreated, "t1", "c", "", nil)
		bus.PublishNew(TaskCreated, "t2", "c", "", nil)
		bus.PublishNew(TaskCreated, "t3", "c", "", nil)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	ev := <-ch
	assert.Equal(t, "t1", ev.TaskID)
	assert.Empty(t, ch)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	bus.Unsubscribe(id)

	_, ok := <-ch
	require.False(t, ok)

	// Publishing after unsubscribe must not panic.
	bus.PublishNew(TaskCreated, "t1", "c", "", nil)
}
