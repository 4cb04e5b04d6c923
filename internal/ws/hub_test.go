package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishQueuesEncodedEvent(t *testing.T) {
	h := NewHub(zap.NewNop())
	h.Publish(Event{Type: "stock_update", Action: "product_created", User: "Ana"})

	require.Len(t, h.Broadcast, 1)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(<-h.Broadcast, &got))
	assert.Equal(t, "product_created", got["action"])
	assert.Equal(t, "Ana", got["user"])
	assert.NotContains(t, got, "transaction")
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	h := NewHub(zap.NewNop())
	for i := 0; i < broadcastBuffer+10; i++ {
		h.Publish(Event{Type: "stock_update", Action: "noise"})
	}
	assert.Len(t, h.Broadcast, broadcastBuffer)
}

// fakeClient records frames. A stalled client never drains its socket, so
// every write blocks until the deadline passes.
type fakeClient struct {
	mu       sync.Mutex
	stalled  bool
	deadline time.Time
	frames   [][]byte
	closed   bool
}

func (c *fakeClient) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	c.deadline = t
	c.mu.Unlock()
	return nil
}

func (c *fakeClient) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	stalled, deadline := c.stalled, c.deadline
	c.mu.Unlock()
	if stalled {
		if deadline.IsZero() {
			select {}
		}
		time.Sleep(time.Until(deadline))
		return errors.New("i/o timeout")
	}
	c.mu.Lock()
	c.frames = append(c.frames, data)
	c.mu.Unlock()
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeClient) received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestStalledClientIsDropped(t *testing.T) {
	h := NewHub(zap.NewNop())
	h.writeWait = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	stalled := &fakeClient{stalled: true}
	healthy := &fakeClient{}
	h.Register <- stalled
	h.Register <- healthy

	h.Publish(Event{Type: "stock_update", Action: "product_created"})
	h.Publish(Event{Type: "stock_update", Action: "product_updated"})

	assert.Eventually(t, func() bool { return healthy.received() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, stalled.isClosed())
	assert.False(t, healthy.isClosed())
}
