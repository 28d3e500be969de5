package notification

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClientNotFound = errors.New("gateway client not found")
	ErrChannelFull    = errors.New("gateway message channel full")
)

// Port is the engine's outbound presentation boundary. Every method is
// fire-and-forget: implementations queue and return immediately, log their
// own failures, and never gate the calling operation's success.
type Port interface {
	RefreshLobby(shortID string)
	NotifyPlayer(accountID, message string)
	NotifyAdmin(shortID, details string)
}

// Gateway event names carried on the SSE stream the chat layer subscribes to.
const (
	EventLobbyRefresh = "lobby_refresh"
	EventPlayerDM     = "player_dm"
	EventAdminAlert   = "admin_alert"
)

// LobbyRefresh asks the chat layer to re-render a session's lobby card.
type LobbyRefresh struct {
	ShortID string `json:"shortId"`
}

// PlayerDM asks the chat layer to deliver a direct message.
type PlayerDM struct {
	AccountID string `json:"accountId"`
	Message   string `json:"message"`
}

// AdminAlert asks the chat layer to surface a dispute to the operator.
type AdminAlert struct {
	ShortID string `json:"shortId"`
	Details string `json:"details"`
}

// Client represents an active gateway subscription.
type Client struct {
	ClientID    string
	AccountID   *string
	ConnectedAt time.Time
	MessageChan chan *Message
}

// NewClient creates a gateway client with a buffered channel; a slow
// consumer drops messages rather than blocking the dispatcher.
func NewClient(clientID string, accountID *string) *Client {
	return &Client{
		ClientID:    clientID,
		AccountID:   accountID,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *Message, 100),
	}
}

// Close closes the client's message channel.
func (c *Client) Close() {
	close(c.MessageChan)
}

// Message is one event on the gateway stream.
type Message struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a gateway message.
func NewMessage(event string, data json.RawMessage) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}
