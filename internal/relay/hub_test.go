package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/epicvibe/platform/internal/epicvibe"
)

var (
	alice = epicvibe.User{ID: "user_1", Username: "alice", WalletAddress: "WALLET1"}
	bob   = epicvibe.User{ID: "user_2", Username: "bob", WalletAddress: "WALLET2"}
)

func next(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case msg := <-c.Messages():
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatalf("no message for %s", c.Session.User.Username)
		return Envelope{}
	}
}

func expectNone(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Messages():
		t.Fatalf("unexpected message for %s: %s", c.Session.User.Username, msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func data[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode %s data: %v", env.Event, err)
	}
	return v
}

func send(t *testing.T, event string, payload any) Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return Envelope{Event: event, Data: raw}
}

// joinBoth connects alice then bob and discards the greetings.
func joinBoth(t *testing.T, h *Hub) (*Client, *Client) {
	t.Helper()
	a := h.Join(alice)
	next(t, a) // welcome
	b := h.Join(bob)
	next(t, b) // welcome
	next(t, a) // bob joined
	return a, b
}

func TestJoinGreetsAndAnnounces(t *testing.T) {
	h := NewHub(slog.Default())
	a := h.Join(alice)

	env := next(t, a)
	if env.Event != EventWelcome || env.Timestamp == nil {
		t.Fatalf("first event = %+v", env)
	}
	w := data[welcomePayload](t, env)
	if w.Message != "Welcome to EpicVibe, alice!" || w.ConnectedUsers != 1 {
		t.Errorf("welcome = %+v", w)
	}

	b := h.Join(bob)
	next(t, b)
	joined := next(t, a)
	if joined.Event != EventUserJoined {
		t.Fatalf("alice got %s, want user:joined", joined.Event)
	}
	p := data[presencePayload](t, joined)
	if p.Message != "bob joined the vibe!" || p.ConnectedUsers != 2 {
		t.Errorf("presence = %+v", p)
	}
	expectNone(t, b)
}

func TestGuestTopics(t *testing.T) {
	h := NewHub(slog.Default())
	g := NewGuest()
	if !strings.HasPrefix(g.ID, "guest_") || len(g.ID) != len("guest_")+8 || !g.IsGuest {
		t.Fatalf("guest = %+v", g)
	}

	c := h.Join(g)
	next(t, c)
	if n := h.broker.Subscribers(UserTopic(g.ID)); n != 0 {
		t.Errorf("guest subscribed to private topic (%d)", n)
	}

	a := h.Join(alice)
	next(t, a)
	next(t, c)
	if h.broker.Subscribers(UserTopic(alice.ID)) != 1 || h.broker.Subscribers(WalletTopic(alice.WalletAddress)) != 1 {
		t.Error("authenticated user missing private or wallet topic")
	}
}

func TestChatValidation(t *testing.T) {
	h := NewHub(slog.Default())
	a, b := joinBoth(t, h)

	tests := []struct {
		name string
		in   Envelope
		want string
	}{
		{"empty chat", send(t, EventChatMessage, map[string]string{"message": "   "}), "Message cannot be empty"},
		{"empty private", send(t, EventPrivateMessage, map[string]string{"recipientId": "user_2"}), "Message cannot be empty"},
		{"no recipient", send(t, EventPrivateMessage, map[string]string{"message": "hi"}), "Recipient is required"},
		{"malformed", Envelope{Event: EventChatMessage, Data: json.RawMessage(`"nope"`)}, "Malformed chat:message payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.Handle(a, tt.in)
			env := next(t, a)
			if env.Event != EventError {
				t.Fatalf("event = %s, want error", env.Event)
			}
			if got := data[errorOut](t, env).Message; got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
			expectNone(t, b)
		})
	}
}

func TestChatBroadcast(t *testing.T) {
	h := NewHub(slog.Default())
	a, b := joinBoth(t, h)

	h.Handle(a, send(t, EventChatMessage, map[string]string{"message": "  gg  "}))
	for _, c := range []*Client{a, b} {
		env := next(t, c)
		m := data[chatOut](t, env)
		if env.Event != EventChatMessage || m.Message != "gg" || m.User.ID != alice.ID {
			t.Errorf("%s got %s %+v", c.Session.User.Username, env.Event, m)
		}
	}
}

func TestPrivateMessage(t *testing.T) {
	h := NewHub(slog.Default())
	a, b := joinBoth(t, h)
	g := h.Join(NewGuest())
	next(t, g)
	next(t, a)
	next(t, b)

	h.Handle(a, send(t, EventPrivateMessage, map[string]string{"message": "psst", "recipientId": bob.ID}))

	for _, c := range []*Client{a, b} {
		env := next(t, c)
		if m := data[chatOut](t, env); env.Event != EventPrivateMessage || !m.IsPrivate || m.Message != "psst" {
			t.Errorf("%s got %s %+v", c.Session.User.Username, env.Event, m)
		}
		expectNone(t, c)
	}
	expectNone(t, g)
}

func TestGameCreatingSkipsSender(t *testing.T) {
	h := NewHub(slog.Default())
	a, b := joinBoth(t, h)

	h.Handle(a, send(t, EventGameCreating, map[string]any{"gameId": "game_3", "progress": 40}))
	env := next(t, b)
	p := data[progressOut](t, env)
	if env.Event != EventGameProgress || p.GameID != "game_3" || p.Progress != 40 || p.Creator.ID != alice.ID {
		t.Errorf("bob got %s %+v", env.Event, p)
	}
	expectNone(t, a)
}

func TestGamePublishedReachesEveryone(t *testing.T) {
	h := NewHub(slog.Default())
	a, b := joinBoth(t, h)

	h.Handle(b, send(t, EventGamePublished, map[string]string{"gameId": "game_9", "title": "Neon Drift"}))
	for _, c := range []*Client{a, b} {
		env := next(t, c)
		if g := data[GameAnnouncement](t, env); env.Event != EventGameNew || g.Title != "Neon Drift" || g.Creator.Username != "bob" {
			t.Errorf("%s got %s %+v", c.Session.User.Username, env.Event, g)
		}
	}
}

func TestTokenTransactionTargetsWallet(t *testing.T) {
	h := NewHub(slog.Default())
	a, b := joinBoth(t, h)

	h.Handle(a, send(t, EventTokenTransaction, map[string]any{"recipientWallet": "WALLET2", "amount": "2.5", "reason": "tip"}))
	env := next(t, b)
	tr := data[TokenReceived](t, env)
	if env.Event != EventTokenReceived || !tr.Amount.Equal(decimal.RequireFromString("2.5")) || tr.From != alice.ID {
		t.Errorf("bob got %s %+v", env.Event, tr)
	}
	expectNone(t, a)
}

func TestNotifyAPI(t *testing.T) {
	h := NewHub(slog.Default())
	a, b := joinBoth(t, h)

	h.NotifyUser(bob.ID, "custom", map[string]int{"n": 1})
	if env := next(t, b); env.Event != "custom" {
		t.Errorf("bob got %s", env.Event)
	}
	expectNone(t, a)

	h.NotifyWallet("WALLET1", EventTokenReceived, TokenReceived{Amount: decimal.NewFromInt(25), Reason: "game_creation"})
	if env := next(t, a); env.Event != EventTokenReceived {
		t.Errorf("alice got %s", env.Event)
	}
	expectNone(t, b)

	h.Broadcast("announce", map[string]string{"msg": "hi"})
	next(t, a)
	next(t, b)
}

func TestLeave(t *testing.T) {
	h := NewHub(slog.Default())
	a, b := joinBoth(t, h)

	// A second tab for alice does not add a user.
	a2 := h.Join(alice)
	next(t, a2)
	next(t, a)
	next(t, b)
	if n := h.ConnectedCount(); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}

	h.Leave(b)
	env := next(t, a)
	if p := data[presencePayload](t, env); env.Event != EventUserLeft || p.Message != "bob left the vibe." || p.ConnectedUsers != 1 {
		t.Errorf("alice got %s %+v", env.Event, p)
	}
	if h.broker.Subscribers(UserTopic(bob.ID)) != 0 {
		t.Error("bob still subscribed after leaving")
	}
	h.NotifyUser(bob.ID, "late", nil)
	expectNone(t, b)
}

func TestListen(t *testing.T) {
	h := NewHub(slog.Default())
	a := h.Join(alice)
	next(t, a)

	feed, stop := h.Listen(bob)
	expectNone(t, a)
	if n := h.ConnectedCount(); n != 1 {
		t.Errorf("count = %d, want 1; listeners are not sessions", n)
	}

	h.NotifyWallet(bob.WalletAddress, "token:received", nil)
	select {
	case msg := <-feed:
		if !strings.Contains(string(msg), `"token:received"`) {
			t.Errorf("feed got %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("listener missed wallet event")
	}

	stop()
	if n := h.broker.Subscribers(WalletTopic(bob.WalletAddress)); n != 0 {
		t.Errorf("wallet subscribers after stop = %d", n)
	}
}

type recordingFanout struct {
	mu     sync.Mutex
	topics []string
}

func (f *recordingFanout) Forward(_ context.Context, topic string, _ []byte) error {
	f.mu.Lock()
	f.topics = append(f.topics, topic)
	f.mu.Unlock()
	return nil
}

func TestFanout(t *testing.T) {
	h := NewHub(slog.Default())
	f := &recordingFanout{}
	h.SetFanout(f)

	a := h.Join(alice)
	next(t, a)
	h.NotifyWallet("WALLET1", EventTokenReceived, TokenReceived{})
	next(t, a)

	h.Deliver(TopicGeneral, []byte(`{"event":"remote"}`))
	if env := next(t, a); env.Event != "remote" {
		t.Errorf("delivered event = %s", env.Event)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	want := []string{TopicGeneral, WalletTopic("WALLET1")}
	if strings.Join(f.topics, ",") != strings.Join(want, ",") {
		t.Errorf("forwarded = %v, want %v", f.topics, want)
	}
}

func TestRedisFanoutSkipsOwnMessages(t *testing.T) {
	h := NewHub(slog.Default())
	a := h.Join(alice)
	next(t, a)

	f := NewRedisFanout(nil, h, slog.Default())
	own, _ := json.Marshal(redisMessage{Origin: f.origin, Topic: TopicGeneral, Payload: json.RawMessage(`{"event":"echo"}`)})
	remote, _ := json.Marshal(redisMessage{Origin: "other", Topic: TopicGeneral, Payload: json.RawMessage(`{"event":"remote"}`)})

	f.receive(string(own))
	expectNone(t, a)

	f.receive(string(remote))
	if env := next(t, a); env.Event != "remote" {
		t.Errorf("event = %s, want remote", env.Event)
	}

	f.receive("not json")
	expectNone(t, a)
}
