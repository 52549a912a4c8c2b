package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlens/internal/config"
	"marketlens/pkg/contracts/events"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(hub *Hub) *Client {
	return NewClient(hub, newMockConnection(), config.WebSocketConfig{}, "trace-1", quietLogger())
}

func receive(t *testing.T, c *Client) events.Message {
	t.Helper()
	select {
	case payload, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg events.Message
		require.NoError(t, json.Unmarshal(payload, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return events.Message{}
	}
}

func TestHub_StartStopIdempotent(t *testing.T) {
	hub := NewHub(quietLogger(), nil)
	assert.False(t, hub.Running())

	hub.Start()
	hub.Start()
	assert.True(t, hub.Running())

	hub.Stop()
	hub.Stop()
	assert.False(t, hub.Running())
}

func TestHub_RegisterSendsConnectMessage(t *testing.T) {
	hub := NewHub(quietLogger(), nil)
	hub.SetDatasetSource(func() string { return "ds-1" })
	hub.Start()
	defer hub.Stop()

	client := newTestClient(hub)
	hub.Register(client)

	msg := receive(t, client)
	assert.Equal(t, events.MessageTypeConnect, msg.Type)
	assert.Equal(t, "trace-1", msg.TraceID)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, client.ID(), data["client_id"])
	assert.Equal(t, "ds-1", data["dataset_id"])
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_PublishReachesEveryClient(t *testing.T) {
	hub := NewHub(quietLogger(), nil)
	hub.Start()
	defer hub.Stop()

	first, second := newTestClient(hub), newTestClient(hub)
	hub.Register(first)
	hub.Register(second)
	receive(t, first)
	receive(t, second)

	hub.Publish(context.Background(), events.NewMessage(events.MessageTypeDatasetReplaced, "", events.DatasetReplaced{
		DatasetID:    "ds-2",
		Source:       "upload",
		ValueRecords: 17,
	}))

	for _, c := range []*Client{first, second} {
		msg := receive(t, c)
		assert.Equal(t, events.MessageTypeDatasetReplaced, msg.Type)
		data := msg.Data.(map[string]interface{})
		assert.Equal(t, "ds-2", data["dataset_id"])
		assert.EqualValues(t, 17, data["value_records"])
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub(quietLogger(), nil)
	hub.Start()
	defer hub.Stop()

	client := newTestClient(hub)
	hub.Register(client)
	receive(t, client)

	hub.Unregister(client)
	hub.Unregister(client)

	_, ok := <-client.send
	assert.False(t, ok)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub(quietLogger(), nil)
	hub.Start()
	defer hub.Stop()

	client := newTestClient(hub)
	hub.Register(client)

	// Nobody drains the buffer: the connect message plus sendBufferSize
	// broadcasts overflow it.
	for i := 0; i < sendBufferSize+1; i++ {
		hub.Publish(context.Background(), events.NewMessage(events.MessageTypeDatasetReplaced, "", nil))
	}

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), hub.Stats()["messages_dropped"])
}

func TestHub_PublishWithoutRunningHubIsDropped(t *testing.T) {
	hub := NewHub(quietLogger(), nil)
	assert.NotPanics(t, func() {
		hub.Publish(context.Background(), events.NewMessage(events.MessageTypeDatasetReplaced, "", nil))
	})
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub := NewHub(quietLogger(), nil)
	hub.Start()

	client := newTestClient(hub)
	hub.Register(client)
	receive(t, client)

	hub.Stop()
	_, ok := <-client.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())
}
