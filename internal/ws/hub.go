package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/logger"
)

// Envelope сообщение между инстансами. UserID == uuid.Nil означает всех подключённых.
type Envelope struct {
	UserID  uuid.UUID       `json:"userId"`
	Payload json.RawMessage `json:"payload"`
}

// Relay пересылает сообщения между инстансами API.
type Relay interface {
	Publish(ctx context.Context, env Envelope) error
	Subscribe(ctx context.Context, onMessage func(Envelope)) error
}

// Hub управляет WebSocket клиентами этого инстанса.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	deliver    chan Envelope
	done       chan struct{}

	relayMu sync.RWMutex
	relay   Relay
}

// NewHub создаёт хаб. relay может быть nil, тогда сообщения доставляются только локально.
func NewHub(relay Relay) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan Envelope, 64),
		relay:      relay,
		done:       make(chan struct{}),
	}
}

// Connect подписывает хаб на relay. Вызывается до приёма запросов.
// При ошибке relay отключается и хаб доставляет сообщения только локально.
func (h *Hub) Connect(ctx context.Context) error {
	relay := h.currentRelay()
	if relay == nil {
		return nil
	}
	if err := relay.Subscribe(ctx, h.enqueue); err != nil {
		h.relayMu.Lock()
		h.relay = nil
		h.relayMu.Unlock()
		return fmt.Errorf("ws: подписка на relay: %w", err)
	}
	return nil
}

// Run запускает главный цикл хаба до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case env := <-h.deliver:
			h.send(env)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendToUser отправляет событие всем подключениям пользователя на всех инстансах.
// Формат сообщения: {"type": event, "data": data}.
func (h *Hub) SendToUser(ctx context.Context, userID uuid.UUID, event string, data any) error {
	raw, err := encode(event, data)
	if err != nil {
		return err
	}
	return h.dispatch(ctx, Envelope{UserID: userID, Payload: raw})
}

// Broadcast отправляет событие всем подключённым пользователям.
func (h *Hub) Broadcast(ctx context.Context, event string, data any) error {
	raw, err := encode(event, data)
	if err != nil {
		return err
	}
	return h.dispatch(ctx, Envelope{UserID: uuid.Nil, Payload: raw})
}

// IsOnline сообщает, может ли пользователь получить realtime событие.
// С relay всегда true: клиент может быть подключён к другому инстансу.
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	if h.currentRelay() != nil {
		return true
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) currentRelay() Relay {
	h.relayMu.RLock()
	defer h.relayMu.RUnlock()
	return h.relay
}

func (h *Hub) dispatch(ctx context.Context, env Envelope) error {
	if relay := h.currentRelay(); relay != nil {
		return relay.Publish(ctx, env)
	}
	h.enqueue(env)
	return nil
}

func (h *Hub) enqueue(env Envelope) {
	select {
	case h.deliver <- env:
	default:
		logger.Log.WithFields(logrus.Fields{"user_id": env.UserID}).Warn("ws: очередь доставки переполнена, сообщение отброшено")
	}
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(map[string]any{"type": event, "data": data})
	if err != nil {
		return nil, fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}
	return raw, nil
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
		}
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *Hub) send(env Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	deliver := func(userID uuid.UUID, clients map[*Client]struct{}) {
		for client := range clients {
			select {
			case client.send <- env.Payload:
			default:
				// медленный клиент отключается
				delete(clients, client)
				close(client.send)
			}
		}
		if len(clients) == 0 {
			delete(h.clients, userID)
		}
	}

	if env.UserID == uuid.Nil {
		for userID, clients := range h.clients {
			deliver(userID, clients)
		}
		return
	}
	if clients, ok := h.clients[env.UserID]; ok {
		deliver(env.UserID, clients)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
		delete(h.clients, userID)
	}
}
