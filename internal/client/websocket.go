package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSClient is a Solana pubsub client. Subscriptions survive reconnects:
// they are re-sent with their original request ids once the socket is back.
type WSClient struct {
	url            string
	conn           *websocket.Conn
	logger         *logrus.Logger
	mu             sync.RWMutex
	writeMu        sync.Mutex
	subscriptions  map[int]*Subscription
	nextID         int
	ctx            context.Context
	cancel         context.CancelFunc
	reconnectDelay time.Duration
	pingInterval   time.Duration
	readTimeout    time.Duration

	messagesReceived int
	messagesSent     int
	reconnectCount   int
	lastActivity     time.Time
}

// Subscription tracks one pubsub subscription. ID is the request id we
// chose, ServerID the subscription number the node assigned.
type Subscription struct {
	ID          int
	ServerID    int
	Method      string
	Params      interface{}
	Handler     EventHandler
	Active      bool
	Created     time.Time
	LastMessage time.Time
}

// EventHandler receives the raw params of a notification
type EventHandler func(params json.RawMessage) error

type wsRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type wsMessage struct {
	ID     *int              `json:"id,omitempty"`
	Method string            `json:"method,omitempty"`
	Params json.RawMessage   `json:"params,omitempty"`
	Result json.RawMessage   `json:"result,omitempty"`
	Error  *jsonrpc.RPCError `json:"error,omitempty"`
}

// LogsNotification represents a logs notification
type LogsNotification struct {
	Subscription int `json:"subscription"`
	Result       struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Signature string      `json:"signature"`
			Err       interface{} `json:"err"`
			Logs      []string    `json:"logs"`
		} `json:"value"`
	} `json:"result"`
}

// NewWSClient creates a new WebSocket client
func NewWSClient(url string, logger *logrus.Logger) *WSClient {
	ctx, cancel := context.WithCancel(context.Background())

	return &WSClient{
		url:            url,
		logger:         logger,
		subscriptions:  make(map[int]*Subscription),
		nextID:         1,
		ctx:            ctx,
		cancel:         cancel,
		reconnectDelay: 5 * time.Second,
		pingInterval:   30 * time.Second,
		readTimeout:    90 * time.Second,
		lastActivity:   time.Now(),
	}
}

// Connect dials the endpoint and starts the read and ping loops
func (ws *WSClient) Connect() error {
	ws.logger.WithField("url", ws.url).Info("🔌 Connecting to Solana WebSocket...")

	if err := ws.dial(); err != nil {
		return err
	}

	go ws.handleMessages()
	go ws.pingHandler()

	return nil
}

func (ws *WSClient) dial() error {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, resp, err := dialer.DialContext(ws.ctx, ws.url, nil)
	if err != nil {
		if resp != nil {
			ws.logger.WithFields(logrus.Fields{
				"status":      resp.Status,
				"status_code": resp.StatusCode,
				"url":         ws.url,
			}).Error("❌ WebSocket connection failed")
		}
		return fmt.Errorf("failed to connect to WebSocket: %w", err)
	}

	conn.SetReadLimit(1024 * 1024)
	conn.SetPongHandler(func(string) error {
		ws.touch()
		return nil
	})

	ws.mu.Lock()
	ws.conn = conn
	ws.lastActivity = time.Now()
	ws.mu.Unlock()

	ws.logger.WithField("url", ws.url).Info("✅ WebSocket connected")
	return nil
}

// Close stops the loops and closes the connection
func (ws *WSClient) Close() error {
	ws.cancel()

	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.conn != nil {
		err := ws.conn.Close()
		ws.conn = nil
		return err
	}

	return nil
}

// Subscribe sends a subscription request and returns its request id
func (ws *WSClient) Subscribe(method string, params interface{}, handler EventHandler) (int, error) {
	ws.mu.Lock()
	id := ws.nextID
	ws.nextID++
	ws.subscriptions[id] = &Subscription{
		ID:      id,
		Method:  method,
		Params:  params,
		Handler: handler,
		Created: time.Now(),
	}
	ws.mu.Unlock()

	if err := ws.send(wsRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		ws.mu.Lock()
		delete(ws.subscriptions, id)
		ws.mu.Unlock()
		return 0, fmt.Errorf("failed to send subscription: %w", err)
	}

	ws.logger.WithFields(logrus.Fields{
		"method": method,
		"id":     id,
	}).Debug("📡 Subscription request sent")

	return id, nil
}

// Unsubscribe cancels a subscription by request id
func (ws *WSClient) Unsubscribe(id int) error {
	ws.mu.Lock()
	sub, exists := ws.subscriptions[id]
	if !exists {
		ws.mu.Unlock()
		return fmt.Errorf("subscription %d not found", id)
	}
	delete(ws.subscriptions, id)
	reqID := ws.nextID
	ws.nextID++
	ws.mu.Unlock()

	// Nothing to cancel on the node until it has confirmed
	if !sub.Active {
		return nil
	}

	unsubMethod := getUnsubscribeMethod(sub.Method)
	if unsubMethod == "" {
		return fmt.Errorf("unknown unsubscribe method for %s", sub.Method)
	}

	if err := ws.send(wsRequest{JSONRPC: "2.0", ID: reqID, Method: unsubMethod, Params: []interface{}{sub.ServerID}}); err != nil {
		return fmt.Errorf("failed to send unsubscribe: %w", err)
	}

	ws.logger.WithField("id", id).Debug("🗑️ Subscription cancelled")
	return nil
}

// SubscribeToLogs subscribes to logs of transactions mentioning account
func (ws *WSClient) SubscribeToLogs(account, commitment string, handler EventHandler) (int, error) {
	params := []interface{}{
		map[string]interface{}{
			"mentions": []string{account},
		},
		map[string]interface{}{
			"commitment": commitment,
		},
	}

	return ws.Subscribe("logsSubscribe", params, handler)
}

func (ws *WSClient) send(req wsRequest) error {
	ws.mu.RLock()
	conn := ws.conn
	ws.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("WebSocket not connected")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ws.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	ws.writeMu.Unlock()
	if err != nil {
		return err
	}

	ws.mu.Lock()
	ws.messagesSent++
	ws.lastActivity = time.Now()
	ws.mu.Unlock()
	return nil
}

func (ws *WSClient) touch() {
	ws.mu.Lock()
	ws.lastActivity = time.Now()
	ws.mu.Unlock()
}

// handleMessages reads until Close, reconnecting whenever the socket drops
func (ws *WSClient) handleMessages() {
	defer ws.logger.Debug("🛑 WebSocket message handler stopped")

	for {
		if ws.ctx.Err() != nil {
			return
		}

		ws.mu.RLock()
		conn := ws.conn
		ws.mu.RUnlock()

		if conn == nil {
			if err := ws.attemptReconnect(); err != nil {
				ws.logger.WithError(err).Warn("⚠️ WebSocket reconnection failed")
				select {
				case <-ws.ctx.Done():
					return
				case <-time.After(ws.reconnectDelay):
				}
			}
			continue
		}

		_ = conn.SetReadDeadline(time.Now().Add(ws.readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ws.ctx.Err() != nil {
				return
			}
			ws.logger.WithError(err).Warn("⚠️ WebSocket read failed, reconnecting")

			ws.mu.Lock()
			if ws.conn == conn {
				ws.conn = nil
			}
			ws.mu.Unlock()
			_ = conn.Close()
			continue
		}

		ws.mu.Lock()
		ws.messagesReceived++
		ws.lastActivity = time.Now()
		ws.mu.Unlock()

		var message wsMessage
		if err := json.Unmarshal(data, &message); err != nil {
			ws.logger.WithError(err).WithField("data", string(data[:min(len(data), 200)])).Warn("❌ Failed to unmarshal WebSocket message")
			continue
		}

		ws.handleMessage(message)
	}
}

func (ws *WSClient) handleMessage(message wsMessage) {
	if message.Error != nil {
		ws.logger.WithFields(logrus.Fields{
			"id":      message.ID,
			"code":    message.Error.Code,
			"message": message.Error.Message,
		}).Error("❌ WebSocket error received")
		return
	}

	// Subscription confirmations carry the node's subscription number;
	// unsubscribe acknowledgements carry a bool and are ignored.
	if message.ID != nil {
		var serverID int
		if err := json.Unmarshal(message.Result, &serverID); err != nil {
			return
		}

		ws.mu.Lock()
		sub, exists := ws.subscriptions[*message.ID]
		if exists {
			sub.ServerID = serverID
			sub.Active = true
		}
		ws.mu.Unlock()

		if exists {
			ws.logger.WithFields(logrus.Fields{
				"method":       sub.Method,
				"id":           sub.ID,
				"subscription": serverID,
			}).Info("✅ WebSocket subscription confirmed")
		}
		return
	}

	if message.Method == "" {
		return
	}

	var envelope struct {
		Subscription int `json:"subscription"`
	}
	if err := json.Unmarshal(message.Params, &envelope); err != nil {
		ws.logger.WithError(err).WithField("method", message.Method).Warn("❌ Malformed notification")
		return
	}

	var handler EventHandler
	ws.mu.Lock()
	for _, sub := range ws.subscriptions {
		if sub.Active && sub.ServerID == envelope.Subscription {
			sub.LastMessage = time.Now()
			handler = sub.Handler
			break
		}
	}
	ws.mu.Unlock()

	if handler == nil {
		ws.logger.WithFields(logrus.Fields{
			"method":       message.Method,
			"subscription": envelope.Subscription,
		}).Debug("❓ Notification for unknown subscription")
		return
	}

	if err := handler(message.Params); err != nil {
		ws.logger.WithError(err).WithField("method", message.Method).Error("❌ Notification handler error")
	}
}

// attemptReconnect redials and re-sends every known subscription
func (ws *WSClient) attemptReconnect() error {
	ws.mu.Lock()
	ws.reconnectCount++
	attempt := ws.reconnectCount
	ws.mu.Unlock()

	ws.logger.WithField("attempt", attempt).Info("🔄 Attempting to reconnect WebSocket...")

	if err := ws.dial(); err != nil {
		return fmt.Errorf("reconnection failed: %w", err)
	}

	ws.mu.Lock()
	pending := make([]wsRequest, 0, len(ws.subscriptions))
	for _, sub := range ws.subscriptions {
		sub.Active = false
		sub.ServerID = 0
		pending = append(pending, wsRequest{JSONRPC: "2.0", ID: sub.ID, Method: sub.Method, Params: sub.Params})
	}
	ws.mu.Unlock()

	resubscribed := 0
	for _, req := range pending {
		if err := ws.send(req); err != nil {
			ws.logger.WithError(err).WithField("method", req.Method).Error("❌ Failed to resubscribe")
			continue
		}
		resubscribed++
	}

	ws.logger.WithFields(logrus.Fields{
		"reconnect_count": attempt,
		"resubscribed":    resubscribed,
	}).Info("✅ WebSocket reconnected")

	return nil
}

// pingHandler keeps the connection alive and flags stale sockets
func (ws *WSClient) pingHandler() {
	ticker := time.NewTicker(ws.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ws.ctx.Done():
			return
		case <-ticker.C:
			ws.mu.RLock()
			conn := ws.conn
			lastActivity := ws.lastActivity
			ws.mu.RUnlock()

			if conn == nil {
				continue
			}

			ws.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			ws.writeMu.Unlock()
			if err != nil {
				ws.logger.WithError(err).Debug("❌ Failed to send ping")
			}

			if time.Since(lastActivity) > 2*time.Minute {
				ws.logger.WithField("last_activity", lastActivity).Warn("⚠️ Connection appears stale - no activity for 2+ minutes")
			}
		}
	}
}

// GetConnectionStats returns current connection statistics
func (ws *WSClient) GetConnectionStats() map[string]interface{} {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	active := 0
	for _, sub := range ws.subscriptions {
		if sub.Active {
			active++
		}
	}

	return map[string]interface{}{
		"messages_received":    ws.messagesReceived,
		"messages_sent":        ws.messagesSent,
		"active_subscriptions": active,
		"total_subscriptions":  len(ws.subscriptions),
		"reconnect_count":      ws.reconnectCount,
		"last_activity":        ws.lastActivity,
		"connection_active":    ws.conn != nil,
	}
}

// getUnsubscribeMethod returns the unsubscribe method name for a subscribe method
func getUnsubscribeMethod(subscribeMethod string) string {
	switch subscribeMethod {
	case "logsSubscribe":
		return "logsUnsubscribe"
	case "accountSubscribe":
		return "accountUnsubscribe"
	case "signatureSubscribe":
		return "signatureUnsubscribe"
	case "slotSubscribe":
		return "slotUnsubscribe"
	default:
		return ""
	}
}
