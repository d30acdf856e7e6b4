package relay

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type chatIn struct {
	Message     string `json:"message"`
	Room        string `json:"room"`
	RecipientID string `json:"recipientId"`
}

type chatOut struct {
	ID        string    `json:"id"`
	User      userRef   `json:"user"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	IsPrivate bool      `json:"isPrivate,omitempty"`
}

type creatorRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type progressIn struct {
	GameID   string `json:"gameId"`
	Progress int    `json:"progress"`
}

type progressOut struct {
	GameID    string     `json:"gameId"`
	Creator   creatorRef `json:"creator"`
	Progress  int        `json:"progress"`
	Timestamp time.Time  `json:"timestamp"`
}

// GameAnnouncement is the game:new payload.
type GameAnnouncement struct {
	GameID      string     `json:"gameId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Style       string     `json:"style"`
	Creator     creatorRef `json:"creator"`
	Timestamp   time.Time  `json:"timestamp"`
}

// NewGameAnnouncement builds a game:new payload for a server-side publish.
func NewGameAnnouncement(gameID, title, description, typ, style, creatorID, creatorName string, at time.Time) GameAnnouncement {
	return GameAnnouncement{
		GameID:      gameID,
		Title:       title,
		Description: description,
		Type:        typ,
		Style:       style,
		Creator:     creatorRef{ID: creatorID, Username: creatorName},
		Timestamp:   at,
	}
}

type tokenIn struct {
	RecipientWallet string          `json:"recipientWallet"`
	Amount          decimal.Decimal `json:"amount"`
	Reason          string          `json:"reason"`
}

// TokenReceived is the token:received payload.
type TokenReceived struct {
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	From      string          `json:"from"`
	Signature string          `json:"signature,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type errorOut struct {
	Message string `json:"message"`
}

// HandleMessage decodes a raw frame from c and handles it.
func (h *Hub) HandleMessage(c *Client, raw []byte) {
	var in Envelope
	if err := json.Unmarshal(raw, &in); err != nil || in.Event == "" {
		h.sendTo(c, EventError, errorOut{"Malformed message"})
		return
	}
	h.Handle(c, in)
}

// Handle processes one inbound envelope from c. Bad input is answered with
// an error event to c alone; unknown events are ignored.
func (h *Hub) Handle(c *Client, in Envelope) {
	u := c.Session.User
	now := h.now()

	switch in.Event {
	case EventChatMessage:
		var m chatIn
		if !h.decode(c, in, &m) {
			return
		}
		text := strings.TrimSpace(m.Message)
		if text == "" {
			h.sendTo(c, EventError, errorOut{"Message cannot be empty"})
			return
		}
		room := m.Room
		if room == "" {
			room = TopicGeneral
		}
		h.publish(room, EventChatMessage, chatOut{
			ID:        "msg_" + uuid.NewString(),
			User:      refOf(u),
			Message:   text,
			Timestamp: now,
		}, nil)

	case EventPrivateMessage:
		var m chatIn
		if !h.decode(c, in, &m) {
			return
		}
		text := strings.TrimSpace(m.Message)
		if text == "" {
			h.sendTo(c, EventError, errorOut{"Message cannot be empty"})
			return
		}
		if m.RecipientID == "" {
			h.sendTo(c, EventError, errorOut{"Recipient is required"})
			return
		}
		out := chatOut{
			ID:        "msg_" + uuid.NewString(),
			User:      refOf(u),
			Message:   text,
			Timestamp: now,
			IsPrivate: true,
		}
		// The sender gets a copy unless the recipient topic already reaches it.
		if u.IsGuest || m.RecipientID != u.ID {
			h.sendTo(c, EventPrivateMessage, out)
		}
		h.publish(UserTopic(m.RecipientID), EventPrivateMessage, out, nil)

	case EventGameCreating:
		var m progressIn
		if !h.decode(c, in, &m) {
			return
		}
		h.publish(TopicGeneral, EventGameProgress, progressOut{
			GameID:    m.GameID,
			Creator:   creatorRef{ID: u.ID, Username: u.Username},
			Progress:  m.Progress,
			Timestamp: now,
		}, c)

	case EventGamePublished:
		var m struct {
			GameID      string `json:"gameId"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Type        string `json:"type"`
			Style       string `json:"style"`
		}
		if !h.decode(c, in, &m) {
			return
		}
		h.publish(TopicGeneral, EventGameNew,
			NewGameAnnouncement(m.GameID, m.Title, m.Description, m.Type, m.Style, u.ID, u.Username, now), nil)

	case EventTokenTransaction:
		var m tokenIn
		if !h.decode(c, in, &m) {
			return
		}
		if m.RecipientWallet == "" {
			return
		}
		h.publish(WalletTopic(m.RecipientWallet), EventTokenReceived, TokenReceived{
			Amount:    m.Amount,
			Reason:    m.Reason,
			From:      u.ID,
			Timestamp: now,
		}, nil)

	default:
		h.logger.Debug("relay ignoring event", "event", in.Event, "session", c.Session.ID)
	}
}

func (h *Hub) decode(c *Client, in Envelope, v any) bool {
	if len(in.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(in.Data, v); err != nil {
		h.sendTo(c, EventError, errorOut{"Malformed " + in.Event + " payload"})
		return false
	}
	return true
}
