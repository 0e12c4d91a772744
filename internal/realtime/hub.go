// Package realtime delivers events to connected WebSocket clients, keyed by
// topic (one topic per café site staff display, one per user). Redis pub/sub
// bridges topics across instances.
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// TopicCafe returns the topic for a site's café staff displays.
func TopicCafe(site string) string { return "cafe:" + site }

// TopicUser returns the topic for a single user's notifications.
func TopicUser(userID string) string { return "user:" + userID }

// RedisPublisher publishes to Redis for cross-instance broadcast.
type RedisPublisher interface {
	PublishTopicEvent(topic, event string, payload []byte) error
}

// RedisSubscriber subscribes to topic channels and invokes handler for
// incoming events.
type RedisSubscriber interface {
	SubscribeTopic(topic string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains topic -> set of connections and broadcasts messages. With
// the Redis bridge attached, events are published once and each instance
// delivers to its local clients from its own subscription.
type Hub struct {
	topics   map[string]map[string]*Client
	subs     map[string]func() // cancel Redis subscription per topic
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// NewHub creates a WebSocket hub. redisPub and redisSub may be nil for
// single-instance deployments and tests.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		topics:   make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to its topics. Starts a Redis subscription per topic
// when the first local client arrives.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	for _, topic := range c.Topics {
		if h.topics[topic] == nil {
			h.topics[topic] = make(map[string]*Client)
			if h.redisSub != nil {
				topic := topic
				cancel, err := h.redisSub.SubscribeTopic(topic, func(event string, payload []byte) {
					h.broadcastLocal(topic, event, json.RawMessage(payload))
				})
				if err != nil {
					h.logger.Warn("topic subscription failed, falling back to local delivery",
						zap.String("topic", topic), zap.Error(err))
				} else {
					h.subs[topic] = cancel
				}
			}
		}
		h.topics[topic][c.ID] = c
	}
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.Strings("topics", c.Topics))
}

// Unregister removes a client from its topics. Cancels the Redis subscription
// when the last local client leaves a topic.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	for _, topic := range c.Topics {
		if m, ok := h.topics[topic]; ok {
			delete(m, c.ID)
			if len(m) == 0 {
				delete(h.topics, topic)
				if cancel, ok := h.subs[topic]; ok {
					cancel()
					delete(h.subs, topic)
				}
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID))
}

// broadcastLocal sends a message to all local clients on a topic.
func (h *Hub) broadcastLocal(topic, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	// Snapshot under the lock; the topic map is mutated by Register/Unregister.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.topics[topic]))
	for _, c := range h.topics[topic] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Broadcast delivers an event to every subscriber of the topic exactly once
// per instance. When this instance holds a Redis subscription for the topic,
// the event is published once and the subscription echo performs the local
// delivery, same as on every other instance; direct local delivery happens
// only when no subscription covers the topic.
func (h *Hub) Broadcast(topic, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil && h.subscribed(topic) {
		if h.redis.PublishTopicEvent(topic, event, data) == nil {
			return
		}
		h.logger.Warn("publish failed, delivering locally only", zap.String("topic", topic))
		h.broadcastLocal(topic, event, json.RawMessage(data))
		return
	}
	h.broadcastLocal(topic, event, json.RawMessage(data))
	if h.redis != nil {
		_ = h.redis.PublishTopicEvent(topic, event, data)
	}
}

func (h *Hub) subscribed(topic string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.subs[topic]
	return ok
}

// SubscriberCount returns the number of local clients on a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
