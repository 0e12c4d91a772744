package realtime

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBridge behaves like Redis pub/sub within one process: a publish is
// echoed back to every handler subscribed to the topic.
type fakeBridge struct {
	mu        sync.Mutex
	handlers  map[string][]func(event string, payload []byte)
	published int
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{handlers: make(map[string][]func(event string, payload []byte))}
}

func (f *fakeBridge) PublishTopicEvent(topic, event string, payload []byte) error {
	f.mu.Lock()
	f.published++
	hs := append([]func(string, []byte){}, f.handlers[topic]...)
	f.mu.Unlock()
	for _, h := range hs {
		h(event, payload)
	}
	return nil
}

func (f *fakeBridge) SubscribeTopic(topic string, handler func(event string, payload []byte)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = append(f.handlers[topic], handler)
	return func() {}, nil
}

var clientSeq atomic.Int64

func testClient(topics ...string) *Client {
	return &Client{
		ID:     fmt.Sprintf("c-%d", clientSeq.Add(1)),
		Topics: topics,
		send:   make(chan WSMessage, 16),
	}
}

func drain(c *Client) []WSMessage {
	var msgs []WSMessage
	for {
		select {
		case m := <-c.send:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func TestBroadcastDeliversOncePerSubscriber(t *testing.T) {
	bridge := newFakeBridge()
	hub := NewHub(zap.NewNop(), bridge, bridge)

	staff := testClient(TopicCafe("clifton"))
	hub.Register(staff)

	hub.Broadcast(TopicCafe("clifton"), "order_created", map[string]string{"order_id": "o1"})

	msgs := drain(staff)
	require.Len(t, msgs, 1)
	assert.Equal(t, "order_created", msgs[0].Event)
	assert.Equal(t, 1, bridge.published)
}

func TestBroadcastWithoutBridgeDeliversLocally(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)

	staff := testClient(TopicCafe("gulberg"))
	hub.Register(staff)

	hub.Broadcast(TopicCafe("gulberg"), "order_status_changed", map[string]string{"status": "ready"})

	msgs := drain(staff)
	require.Len(t, msgs, 1)
	assert.Equal(t, "order_status_changed", msgs[0].Event)
}

func TestBroadcastReachesEveryLocalClient(t *testing.T) {
	bridge := newFakeBridge()
	hub := NewHub(zap.NewNop(), bridge, bridge)

	a := testClient(TopicCafe("clifton"))
	b := testClient(TopicCafe("clifton"))
	other := testClient(TopicCafe("dha"))
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)

	hub.Broadcast(TopicCafe("clifton"), "order_created", map[string]string{"order_id": "o2"})

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
	assert.Empty(t, drain(other))
}

func TestUnregisterStopsDelivery(t *testing.T) {
	bridge := newFakeBridge()
	hub := NewHub(zap.NewNop(), bridge, bridge)

	staff := testClient(TopicCafe("clifton"))
	hub.Register(staff)
	hub.Unregister(staff)

	hub.Broadcast(TopicCafe("clifton"), "order_created", nil)

	assert.Empty(t, drain(staff))
	assert.Zero(t, hub.SubscriberCount(TopicCafe("clifton")))
}

func TestBroadcastDuringChurnDoesNotLoseRegisteredClients(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	topic := TopicCafe("clifton")

	stable := testClient(topic)
	hub.Register(stable)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c := testClient(topic)
			hub.Register(c)
			hub.Unregister(c)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			hub.Broadcast(topic, "order_created", map[string]int{"n": i})
		}
	}()
	wg.Wait()

	assert.Equal(t, 1, hub.SubscriberCount(topic))
	assert.NotEmpty(t, drain(stable))
}
