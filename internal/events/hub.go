// Package events publishes committed ledger transactions to websocket
// subscribers and to a message broker.
package events

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/gateway"
	"mobility-finance/ledger-backend/internal/ledger"
)

// Message types
const (
	TypeCommit     = "commit"
	TypeSubscribe  = "subscribe"
	TypeSubscribed = "subscribed"
)

const (
	sendBuffer  = 256
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second
	maxReadSize = 4096
)

// Message is the websocket frame exchanged with subscribers
type Message struct {
	Type      string         `json:"type"`
	Record    *ledger.Record `json:"record,omitempty"`
	Contracts []string       `json:"contracts,omitempty"`
	ClientID  string         `json:"client_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Client is one websocket subscriber. An empty contract filter receives
// every commit.
type Client struct {
	ID        string
	Principal string
	conn      *websocket.Conn
	send      chan Message

	mu        sync.Mutex
	contracts map[string]bool
}

func (c *Client) wants(contract string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.contracts) == 0 || c.contracts[contract]
}

func (c *Client) subscribe(contracts []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contracts = make(map[string]bool, len(contracts))
	for _, name := range contracts {
		c.contracts[name] = true
	}
}

// Hub fans committed records out to websocket clients. Clients whose
// buffer is full are dropped instead of blocking the ledger.
type Hub struct {
	clients       map[*Client]struct{}
	broadcast     chan Message
	register      chan *Client
	unregister    chan *Client
	subscriptions chan subscription
	stop          chan struct{}
	stopOnce      sync.Once
	count         atomic.Int64
	upgrader      websocket.Upgrader
	logger        *zap.Logger
}

type subscription struct {
	client    *Client
	contracts []string
}

// NewHub creates a hub and starts its run loop
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		clients:       make(map[*Client]struct{}),
		broadcast:     make(chan Message, sendBuffer),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		subscriptions: make(chan subscription),
		stop:          make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
	go h.run()
	return h
}

// Notify implements ledger.Observer
func (h *Hub) Notify(_ context.Context, rec ledger.Record) {
	msg := Message{Type: TypeCommit, Record: &rec, Timestamp: time.Now().UTC()}
	select {
	case h.broadcast <- msg:
	case <-h.stop:
	default:
		h.logger.Warn("Event broadcast buffer full, dropping commit",
			zap.String("contract", rec.Contract),
			zap.Uint64("seq", rec.Seq))
	}
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// ServeWS handles GET /events/ws. ?contract= may be repeated to filter.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:        uuid.NewString(),
		Principal: gateway.Principal(c).String(),
		conn:      conn,
		send:      make(chan Message, sendBuffer),
	}
	client.subscribe(c.QueryArray("contract"))

	select {
	case h.register <- client:
	case <-h.stop:
		_ = conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

// Close disconnects every client and stops the hub
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			h.logger.Debug("Event subscriber connected", zap.String("client_id", client.ID))

		case client := <-h.unregister:
			h.remove(client)

		case sub := <-h.subscriptions:
			if _, ok := h.clients[sub.client]; !ok {
				continue
			}
			sub.client.subscribe(sub.contracts)
			h.deliver(sub.client, Message{
				Type:      TypeSubscribed,
				Contracts: sub.contracts,
				ClientID:  sub.client.ID,
				Timestamp: time.Now().UTC(),
			})

		case msg := <-h.broadcast:
			for client := range h.clients {
				if client.wants(msg.Record.Contract) {
					h.deliver(client, msg)
				}
			}

		case <-h.stop:
			for client := range h.clients {
				h.remove(client)
			}
			return
		}
	}
}

// deliver and remove must only be called from run.
func (h *Hub) deliver(client *Client, msg Message) {
	select {
	case client.send <- msg:
	default:
		h.logger.Warn("Dropping slow event subscriber", zap.String("client_id", client.ID))
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.count.Store(int64(len(h.clients)))
	h.logger.Debug("Event subscriber disconnected", zap.String("client_id", client.ID))
}

func (h *Hub) readPump(client *Client) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.stop:
		}
		_ = client.conn.Close()
	}()

	client.conn.SetReadLimit(maxReadSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("Event subscriber read failed", zap.String("client_id", client.ID), zap.Error(err))
			}
			return
		}
		if msg.Type != TypeSubscribe {
			continue
		}

		select {
		case h.subscriptions <- subscription{client: client, contracts: msg.Contracts}:
		case <-h.stop:
			return
		}
	}
}

func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
