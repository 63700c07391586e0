package events

import (
	"sync"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	require.NoError(t, err, "starting embedded NATS")
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestNATSSubscriberReceivesMessagesInOrder(t *testing.T) {
	url := startTestNATS(t)

	sub, err := NewNATSSubscriber(url, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer sub.Close()
	assert.True(t, sub.Connected())

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{})
	cancel, err := sub.Subscribe("ttk.events", "", func(payload []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(payload))
		if len(got) == 3 {
			close(done)
		}
	})
	require.NoError(t, err)
	defer cancel()

	pub, err := NewNATSPublisher(url)
	require.NoError(t, err)
	defer pub.Close()

	for _, msg := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		require.NoError(t, pub.Publish("ttk.events", []byte(msg)))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for messages")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`, `{"n":3}`}, got)
}

func TestNATSQueueGroupDeliversOnce(t *testing.T) {
	url := startTestNATS(t)

	var (
		mu    sync.Mutex
		count int
	)
	handler := func([]byte) {
		mu.Lock()
		count++
		mu.Unlock()
	}

	for i := 0; i < 2; i++ {
		sub, err := NewNATSSubscriber(url, zaptest.NewLogger(t))
		require.NoError(t, err)
		t.Cleanup(func() { _ = sub.Close() })
		cancel, err := sub.Subscribe("ttk.events", "notifier", handler)
		require.NoError(t, err)
		t.Cleanup(cancel)
	}

	pub, err := NewNATSPublisher(url)
	require.NoError(t, err)
	defer pub.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, pub.Publish("ttk.events", []byte(`{}`)))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 10
	}, 2*time.Second, 10*time.Millisecond)

	// no duplicates arrive later
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 10, count)
}

func TestNATSSubscriberCancelStopsDelivery(t *testing.T) {
	url := startTestNATS(t)

	sub, err := NewNATSSubscriber(url, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer sub.Close()

	received := make(chan []byte, 4)
	cancel, err := sub.Subscribe("ttk.events", "", func(p []byte) { received <- p })
	require.NoError(t, err)
	cancel()
	cancel()

	pub, err := NewNATSPublisher(url)
	require.NoError(t, err)
	defer pub.Close()
	require.NoError(t, pub.Publish("ttk.events", []byte(`{}`)))

	select {
	case <-received:
		t.Fatal("message delivered after cancel")
	case <-time.After(100 * time.Millisecond):
	}
}
