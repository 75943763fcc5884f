package streaming

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publish(t *testing.T, hub *MemoryHub, ev TraceEvent) {
	t.Helper()
	require.NoError(t, hub.Publish(context.Background(), ev))
}

func TestMemoryHub_DeliversToSubscriber(t *testing.T) {
	hub := NewMemoryHub()

	ch, cancel, err := hub.Subscribe(context.Background(), Filter{})
	require.NoError(t, err)
	defer cancel()

	publish(t, hub, TraceEvent{RunID: "r1", NodeID: "n1", EventType: "emit"})

	got := <-ch
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, "emit", got.EventType)
}

func TestMemoryHub_FiltersByRunNodeAndType(t *testing.T) {
	hub := NewMemoryHub()

	ch, cancel, err := hub.Subscribe(context.Background(), Filter{
		RunID:      "r1",
		EventTypes: []string{"set"},
	})
	require.NoError(t, err)
	defer cancel()

	publish(t, hub, TraceEvent{RunID: "r2", EventType: "set"})
	publish(t, hub, TraceEvent{RunID: "r1", EventType: "emit"})
	publish(t, hub, TraceEvent{RunID: "r1", EventType: "set"})

	got := <-ch
	assert.Equal(t, "set", got.EventType)
	assert.Empty(t, ch)
}

func TestMemoryHub_CancelStopsDelivery(t *testing.T) {
	hub := NewMemoryHub()

	ch, cancel, err := hub.Subscribe(context.Background(), Filter{})
	require.NoError(t, err)
	cancel()

	publish(t, hub, TraceEvent{RunID: "r1", EventType: "emit"})
	assert.Empty(t, ch)
}

func TestMemoryHub_DropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewMemoryHub()

	ch, cancel, err := hub.Subscribe(context.Background(), Filter{})
	require.NoError(t, err)
	defer cancel()

	// fill the buffer and keep going; Publish must not block
	for i := 0; i < defaultChannelBuffer+10; i++ {
		publish(t, hub, TraceEvent{RunID: fmt.Sprintf("r%d", i), EventType: "emit"})
	}
	assert.Len(t, ch, defaultChannelBuffer)
	assert.Equal(t, uint64(10), hub.Dropped())
}

func TestMemoryHub_DropCountSurvivesCancel(t *testing.T) {
	hub := NewMemoryHub()

	_, cancel, err := hub.Subscribe(context.Background(), Filter{})
	require.NoError(t, err)

	for i := 0; i < defaultChannelBuffer+3; i++ {
		publish(t, hub, TraceEvent{EventType: "emit"})
	}
	cancel()

	assert.Equal(t, uint64(3), hub.Dropped())
	assert.Equal(t, 0, hub.Subscribers())
}

func TestFilter_Matches(t *testing.T) {
	ev := TraceEvent{RunID: "r1", NodeID: "n1", EventType: "set"}

	assert.True(t, Filter{}.Matches(ev))
	assert.True(t, Filter{RunID: "r1", NodeID: "n1", EventTypes: []string{"emit", "set"}}.Matches(ev))
	assert.False(t, Filter{RunID: "r2"}.Matches(ev))
	assert.False(t, Filter{NodeID: "n2"}.Matches(ev))
	assert.False(t, Filter{EventTypes: []string{"emit"}}.Matches(ev))
}

func TestMemoryHub_CancelledContext(t *testing.T) {
	hub := NewMemoryHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := hub.Subscribe(ctx, Filter{})
	assert.Error(t, err)
	assert.Error(t, hub.Publish(ctx, TraceEvent{}))
}
