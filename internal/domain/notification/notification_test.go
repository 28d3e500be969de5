package notification

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("with account", func(t *testing.T) {
		accountID := "acct-456"

		client := NewClient("client-123", &accountID)

		require.NotNil(t, client)
		assert.Equal(t, "client-123", client.ClientID)
		require.NotNil(t, client.AccountID)
		assert.Equal(t, "acct-456", *client.AccountID)
		assert.False(t, client.ConnectedAt.IsZero())
		assert.NotNil(t, client.MessageChan)
	})

	t.Run("anonymous", func(t *testing.T) {
		client := NewClient("client-123", nil)

		require.NotNil(t, client)
		assert.Nil(t, client.AccountID)
	})
}

func TestClient_Close(t *testing.T) {
	client := NewClient("client-123", nil)
	require.NotNil(t, client.MessageChan)

	client.Close()

	// Channel is closed, so a send must panic.
	assert.Panics(t, func() {
		client.MessageChan <- &Message{}
	})
}

func TestNewMessage(t *testing.T) {
	data := json.RawMessage(`{"shortId": "AB23CD"}`)

	message := NewMessage(EventLobbyRefresh, data)

	require.NotNil(t, message)
	assert.NotEmpty(t, message.ID)
	assert.Equal(t, EventLobbyRefresh, message.Event)
	assert.Equal(t, data, message.Data)
	assert.False(t, message.Timestamp.IsZero())
}

func TestEventNames(t *testing.T) {
	assert.Equal(t, "lobby_refresh", EventLobbyRefresh)
	assert.Equal(t, "player_dm", EventPlayerDM)
	assert.Equal(t, "admin_alert", EventAdminAlert)
}
