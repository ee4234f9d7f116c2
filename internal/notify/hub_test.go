package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangvu0502/homework-pinecone/internal/model"
	"github.com/dangvu0502/homework-pinecone/internal/pkg/logger"
)

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHub_ConnectedFirst(t *testing.T) {
	hub := NewHub(logger.NewNop(), time.Minute)
	ch := hub.Subscribe("client-1")
	defer hub.Unsubscribe("client-1")

	event := recvEvent(t, ch)
	assert.Equal(t, EventConnected, event.Type)
	assert.Nil(t, event.Data)
	assert.False(t, event.Timestamp.IsZero())
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(logger.NewNop(), time.Minute)
	a := hub.Subscribe("a")
	b := hub.Subscribe("b")
	defer hub.Unsubscribe("a")
	defer hub.Unsubscribe("b")
	recvEvent(t, a)
	recvEvent(t, b)

	hub.Publish(StatusUpdate{
		DocumentID: "doc-1",
		Status:     model.StatusProcessed,
		Filename:   "report.pdf",
		ChunkCount: 4,
	})

	for _, ch := range []<-chan Event{a, b} {
		event := recvEvent(t, ch)
		assert.Equal(t, EventDocumentStatus, event.Type)
		require.NotNil(t, event.Data)
		assert.Equal(t, "doc-1", event.Data.DocumentID)
		assert.Equal(t, model.StatusProcessed, event.Data.Status)
		assert.Equal(t, 4, event.Data.ChunkCount)
	}
}

func TestHub_NoReplay(t *testing.T) {
	hub := NewHub(logger.NewNop(), time.Minute)
	hub.Publish(StatusUpdate{DocumentID: "doc-1", Status: model.StatusProcessing})

	ch := hub.Subscribe("late")
	defer hub.Unsubscribe("late")

	event := recvEvent(t, ch)
	assert.Equal(t, EventConnected, event.Type)
	select {
	case extra := <-ch:
		t.Fatalf("expected no replayed events, got %v", extra.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(logger.NewNop(), time.Minute)
	ch := hub.Subscribe("client-1")
	recvEvent(t, ch)

	hub.Unsubscribe("client-1")

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_SlowSubscriberDropped(t *testing.T) {
	hub := NewHub(logger.NewNop(), time.Minute)
	slow := hub.Subscribe("slow")
	fast := hub.Subscribe("fast")
	defer hub.Unsubscribe("fast")
	recvEvent(t, fast)

	// Fill the slow client's buffer without draining it; the fast client keeps
	// up. The connected event already occupies one of the slow client's slots.
	for i := 0; i < 20; i++ {
		hub.Publish(StatusUpdate{DocumentID: "doc-1", Status: model.StatusProcessing})
		event := recvEvent(t, fast)
		assert.Equal(t, EventDocumentStatus, event.Type)
	}

	assert.Equal(t, 1, hub.ClientCount())

	// The slow channel was closed on removal; draining it must terminate.
	for range slow {
	}
}

func TestHub_Heartbeat(t *testing.T) {
	hub := NewHub(logger.NewNop(), 20*time.Millisecond)
	ch := hub.Subscribe("client-1")
	defer hub.Unsubscribe("client-1")
	recvEvent(t, ch)

	event := recvEvent(t, ch)
	assert.Equal(t, EventHeartbeat, event.Type)
	assert.Nil(t, event.Data)
}
