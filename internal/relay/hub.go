// Package relay fans realtime notifications out to connected clients over
// topics. Delivery is at most once with no replay.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/epicvibe/platform/internal/epicvibe"
)

const TopicGeneral = "general"

func UserTopic(userID string) string   { return "user:" + userID }
func WalletTopic(wallet string) string { return "wallet:" + wallet }

// Outbound event names.
const (
	EventWelcome        = "welcome"
	EventUserJoined     = "user:joined"
	EventUserLeft       = "user:left"
	EventChatMessage    = "chat:message"
	EventPrivateMessage = "chat:privateMessage"
	EventGameProgress   = "game:progress"
	EventGameNew        = "game:new"
	EventTokenReceived  = "token:received"
	EventError          = "error"
)

// Inbound event names that differ from the outbound ones.
const (
	EventGameCreating     = "game:creating"
	EventGamePublished    = "game:published"
	EventTokenTransaction = "token:transaction"
)

// Envelope is the wire form of every message in both directions.
type Envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
}

// Fanout forwards locally published messages to other relay instances.
type Fanout interface {
	Forward(ctx context.Context, topic string, data []byte) error
}

const sendBuffer = 32

// Client is one live connection.
type Client struct {
	Session epicvibe.Session
	send    chan []byte
	topics  []string
}

// Messages yields encoded envelopes queued for the connection.
func (c *Client) Messages() <-chan []byte { return c.send }

type Hub struct {
	broker *Broker
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	clients map[string]*Client
	fanout  Fanout
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		broker:  NewBroker(),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		clients: make(map[string]*Client),
	}
}

func (h *Hub) SetFanout(f Fanout) {
	h.mu.Lock()
	h.fanout = f
	h.mu.Unlock()
}

// NewGuest mints a throwaway identity for an unauthenticated connection.
func NewGuest() epicvibe.User {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return epicvibe.User{ID: "guest_" + id, Username: "Guest User", IsGuest: true}
}

type userRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsGuest  bool   `json:"isGuest"`
}

func refOf(u epicvibe.User) userRef {
	return userRef{ID: u.ID, Username: u.Username, IsGuest: u.IsGuest}
}

type welcomePayload struct {
	Message        string        `json:"message"`
	User           epicvibe.User `json:"user"`
	ConnectedUsers int           `json:"connectedUsers"`
}

type presencePayload struct {
	User           userRef `json:"user"`
	ConnectedUsers int     `json:"connectedUsers"`
	Message        string  `json:"message"`
}

// Join registers a connection, subscribes it to its topics, greets it, and
// announces it to everyone else.
func (h *Hub) Join(u epicvibe.User) *Client {
	c := &Client{
		Session: epicvibe.Session{ID: uuid.NewString(), User: u, JoinedAt: h.now()},
		send:    make(chan []byte, sendBuffer),
		topics:  topicsFor(u),
	}

	h.mu.Lock()
	h.clients[c.Session.ID] = c
	h.mu.Unlock()
	for _, t := range c.topics {
		h.broker.Subscribe(t, c.send)
	}

	count := h.ConnectedCount()
	h.sendTo(c, EventWelcome, welcomePayload{
		Message:        "Welcome to EpicVibe, " + u.Username + "!",
		User:           u,
		ConnectedUsers: count,
	})
	h.publish(TopicGeneral, EventUserJoined, presencePayload{
		User:           refOf(u),
		ConnectedUsers: count,
		Message:        u.Username + " joined the vibe!",
	}, c)

	h.logger.Info("relay client joined", "session", c.Session.ID, "user", u.ID, "guest", u.IsGuest)
	return c
}

// Listen subscribes a receive-only feed to the topics u would join. Listeners
// are not sessions: nobody is greeted or told about them, and they are not
// counted. The returned func unsubscribes.
func (h *Hub) Listen(u epicvibe.User) (<-chan []byte, func()) {
	ch := make(chan []byte, sendBuffer)
	topics := topicsFor(u)
	for _, t := range topics {
		h.broker.Subscribe(t, ch)
	}
	return ch, func() {
		for _, t := range topics {
			h.broker.Unsubscribe(t, ch)
		}
	}
}

func topicsFor(u epicvibe.User) []string {
	topics := []string{TopicGeneral}
	if u.IsGuest {
		return topics
	}
	topics = append(topics, UserTopic(u.ID))
	if u.WalletAddress != "" {
		topics = append(topics, WalletTopic(u.WalletAddress))
	}
	return topics
}

func (h *Hub) Leave(c *Client) {
	for _, t := range c.topics {
		h.broker.Unsubscribe(t, c.send)
	}
	h.mu.Lock()
	delete(h.clients, c.Session.ID)
	h.mu.Unlock()

	u := c.Session.User
	h.publish(TopicGeneral, EventUserLeft, presencePayload{
		User:           refOf(u),
		ConnectedUsers: h.ConnectedCount(),
		Message:        u.Username + " left the vibe.",
	}, nil)
	h.logger.Info("relay client left", "session", c.Session.ID, "user", u.ID)
}

// ConnectedCount counts distinct users; several tabs of one user count once.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{}, len(h.clients))
	for _, c := range h.clients {
		seen[c.Session.User.ID] = struct{}{}
	}
	return len(seen)
}

func (h *Hub) NotifyUser(userID, event string, data any) {
	h.publish(UserTopic(userID), event, data, nil)
}

func (h *Hub) NotifyWallet(wallet, event string, data any) {
	h.publish(WalletTopic(wallet), event, data, nil)
}

func (h *Hub) Broadcast(event string, data any) {
	h.publish(TopicGeneral, event, data, nil)
}

// Deliver hands an already encoded envelope to local subscribers only. Fanout
// receivers use it so forwarded messages are not forwarded again.
func (h *Hub) Deliver(topic string, data []byte) {
	h.broker.Publish(topic, data)
}

func (h *Hub) encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	ts := h.now()
	return json.Marshal(Envelope{Event: event, Data: raw, Timestamp: &ts})
}

func (h *Hub) publish(topic, event string, data any, except *Client) {
	msg, err := h.encode(event, data)
	if err != nil {
		h.logger.Error("encoding relay message", "event", event, "error", err)
		return
	}

	var skip chan []byte
	if except != nil {
		skip = except.send
	}
	n := h.broker.PublishExcept(topic, msg, skip)
	h.logger.Debug("relay publish", "topic", topic, "event", event, "delivered", n)

	h.mu.RLock()
	f := h.fanout
	h.mu.RUnlock()
	if f == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.Forward(ctx, topic, msg); err != nil {
		h.logger.Warn("relay fanout failed", "topic", topic, "error", err)
	}
}

func (h *Hub) sendTo(c *Client, event string, data any) {
	msg, err := h.encode(event, data)
	if err != nil {
		h.logger.Error("encoding relay message", "event", event, "error", err)
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
