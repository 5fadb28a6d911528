package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"socialdm/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Subscription is a listener owned by a connection; it is released when the
// topic is unsubscribed or the connection goes away.
type Subscription interface {
	Unsubscribe()
}

// Client represents a WebSocket connection client
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	mu            sync.Mutex
	closed        bool
	subscriptions map[string]Subscription
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		ID:            uuid.New().String(),
		UserID:        userID,
		Conn:          conn,
		Send:          make(chan []byte, sendBuffer),
		subscriptions: make(map[string]Subscription),
	}
}

// Enqueue queues a frame without blocking. A full buffer drops the frame;
// data frames carry full state, so the next one supersedes it.
func (c *Client) Enqueue(frame Frame) bool {
	payload, err := frame.Encode()
	if err != nil {
		logger.Error("Failed to encode %s frame for %s: %v", frame.Type, c.UserID, err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}

	select {
	case c.Send <- payload:
		return true
	default:
		logger.Warn("Send buffer full for client %s, dropping %s frame", c.ID, frame.Type)
		return false
	}
}

// Subscribe attaches sub to topic, replacing any previous listener on it.
func (c *Client) Subscribe(topic string, sub Subscription) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	previous := c.subscriptions[topic]
	c.subscriptions[topic] = sub
	c.mu.Unlock()

	if previous != nil {
		previous.Unsubscribe()
	}
}

// Unsubscribe releases the listener on topic and reports whether there was one.
func (c *Client) Unsubscribe(topic string) bool {
	c.mu.Lock()
	sub, ok := c.subscriptions[topic]
	delete(c.subscriptions, topic)
	c.mu.Unlock()

	if ok {
		sub.Unsubscribe()
	}
	return ok
}

// Forget drops topic without stopping its listener; used when the listener
// ended on its own.
func (c *Client) Forget(topic string, sub Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscriptions[topic] == sub {
		delete(c.subscriptions, topic)
	}
}

func (c *Client) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	topics := make([]string, 0, len(c.subscriptions))
	for topic := range c.subscriptions {
		topics = append(topics, topic)
	}
	return topics
}

// close releases every subscription and closes Send. Safe to call twice.
func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subscriptions
	c.subscriptions = make(map[string]Subscription)
	close(c.Send)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Manager manages all active WebSocket connections
type Manager struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				m.clients[client.ID] = client
				m.mutex.Unlock()
				logger.Info("Client registered: %s (user %s)", client.ID, client.UserID)

			case client := <-m.Unregister:
				m.remove(client)
				logger.Info("Client unregistered: %s (user %s)", client.ID, client.UserID)

			case <-ctx.Done():
				close(m.done)
				m.mutex.Lock()
				clients := m.clients
				m.clients = make(map[string]*Client)
				m.mutex.Unlock()
				for _, client := range clients {
					client.close()
				}
				return
			}
		}
	}()
}

// Add registers client with the running loop. It reports false once the
// manager has stopped; the caller then owns the connection.
func (m *Manager) Add(client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-m.done:
		client.close()
		return false
	}
}

// Drop unregisters client. After the manager has stopped the client was
// already closed by the shutdown sweep.
func (m *Manager) Drop(client *Client) {
	select {
	case m.Unregister <- client:
	case <-m.done:
		client.close()
	}
}

// Stopped is closed when the manager loop exits.
func (m *Manager) Stopped() <-chan struct{} {
	return m.done
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	delete(m.clients, client.ID)
	m.mutex.Unlock()
	client.close()
}

// SendToUser queues a frame on every connection of the user.
func (m *Manager) SendToUser(userID string, frame Frame) int {
	m.mutex.RLock()
	var targets []*Client
	for _, client := range m.clients {
		if client.UserID == userID {
			targets = append(targets, client)
		}
	}
	m.mutex.RUnlock()

	sent := 0
	for _, client := range targets {
		if client.Enqueue(frame) {
			sent++
		}
	}
	return sent
}

func (m *Manager) ConnectedCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// ReadPump reads frames from the connection and hands them to handle until
// the connection closes.
func (c *Client) ReadPump(m *Manager, handle func(c *Client, raw []byte)) {
	defer func() {
		m.Drop(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error for %s: %v", c.UserID, err)
			}
			break
		}
		handle(c, message)
	}
}

// WritePump sends queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket write error for %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
