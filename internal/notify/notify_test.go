package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failing struct{ calls int }

func (f *failing) Broadcast(context.Context, Event) error {
	f.calls++
	return errors.New("kapalı")
}

type counting struct{ events []Event }

func (c *counting) Broadcast(_ context.Context, ev Event) error {
	c.events = append(c.events, ev)
	return nil
}

func TestMultiContinuesAfterFailure(t *testing.T) {
	f := &failing{}
	c := &counting{}
	err := Multi{f, nil, c}.Broadcast(context.Background(), Event{Type: EventWaiterCalled, TableName: "Masa 1"})

	require.Error(t, err)
	assert.Equal(t, 1, f.calls)
	require.Len(t, c.events, 1)
	assert.Equal(t, "Masa 1", c.events[0].TableName)
}

func TestHubDeliversToConnectedClients(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Broadcast(context.Background(), Event{Type: EventWaiterCalled, TableName: "Bahçe 2"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, EventWaiterCalled, ev.Type)
	assert.Equal(t, "Bahçe 2", ev.TableName)
	assert.False(t, ev.At.IsZero())
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := NewHub()
	assert.NoError(t, hub.Broadcast(context.Background(), Event{Type: EventOrderOpened}))
	assert.Equal(t, 0, hub.ClientCount())
}
