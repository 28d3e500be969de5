package notify

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stakepot/stakepot/internal/domain/notification"
	"github.com/stakepot/stakepot/internal/infrastructure/sse"
)

const queueSize = 256

// Dispatcher implements notification.Port by queuing events and fanning
// them out to the gateway hub from a single worker goroutine. Engine
// operations never block on a slow subscriber; when the queue is full the
// event is dropped and logged.
type Dispatcher struct {
	hub    *sse.Hub
	queue  chan *envelope
	logger zerolog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

type envelope struct {
	accountID string // empty means broadcast to all
	message   *notification.Message
}

func NewDispatcher(hub *sse.Hub, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		hub:    hub,
		queue:  make(chan *envelope, queueSize),
		logger: logger.With().Str("service", "notify").Logger(),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for env := range d.queue {
		if env.accountID == "" {
			d.hub.BroadcastToAll(env.message)
			continue
		}
		d.hub.BroadcastToAccount(env.accountID, env.message)
	}
}

// Close stops accepting events, drains the queue and waits for the worker
// to finish.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
		<-d.done
	})
}

func (d *Dispatcher) RefreshLobby(shortID string) {
	d.enqueue("", notification.EventLobbyRefresh, notification.LobbyRefresh{ShortID: shortID})
}

func (d *Dispatcher) NotifyPlayer(accountID, message string) {
	d.enqueue(accountID, notification.EventPlayerDM, notification.PlayerDM{AccountID: accountID, Message: message})
}

func (d *Dispatcher) NotifyAdmin(shortID, details string) {
	d.enqueue("", notification.EventAdminAlert, notification.AdminAlert{ShortID: shortID, Details: details})
}

func (d *Dispatcher) enqueue(accountID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error().Err(err).Str("event", event).Msg("marshal notification payload")
		return
	}
	env := &envelope{accountID: accountID, message: notification.NewMessage(event, data)}
	defer func() {
		// enqueue after Close panics on the closed channel; a late
		// notification during shutdown is not worth crashing for.
		if recover() != nil {
			d.logger.Warn().Str("event", event).Msg("notification dropped, dispatcher closed")
		}
	}()
	select {
	case d.queue <- env:
	default:
		d.logger.Warn().Str("event", event).Msg("notification queue full, event dropped")
	}
}
