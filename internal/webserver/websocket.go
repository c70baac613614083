package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nantokaworks/chzzk-games/internal/game"
	"github.com/nantokaworks/chzzk-games/internal/shared/logger"
	"go.uber.org/zap"
)

// WSMessage はWebSocketメッセージの構造を定義
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WSClient は接続中のディスプレイ面1つを表す
type WSClient struct {
	conn        *websocket.Conn
	send        chan []byte
	clientID    string
	channelID   string
	connectedAt time.Time
}

type roomMessage struct {
	channelID string
	payload   []byte
}

// WSHub はチャンネルごとのルームに分かれた全WebSocket接続を管理
type WSHub struct {
	rooms      map[string]map[*WSClient]bool
	register   chan *WSClient
	unregister chan *WSClient
	broadcast  chan roomMessage
	mu         sync.RWMutex
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// オーバーレイはOBSのブラウザソースから繋がるので全オリジン許可
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

var wsHub = &WSHub{
	rooms:      make(map[string]map[*WSClient]bool),
	register:   make(chan *WSClient),
	unregister: make(chan *WSClient),
	broadcast:  make(chan roomMessage, 256),
}

// StartWSHub WebSocketハブを起動
func StartWSHub() {
	go wsHub.run()
}

func (h *WSHub) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[client.channelID]
			if !ok {
				room = make(map[*WSClient]bool)
				h.rooms[client.channelID] = room
			}
			room[client] = true
			h.mu.Unlock()

			logger.Info("WebSocket client connected",
				zap.String("clientId", client.clientID),
				zap.String("channel_id", client.channelID),
				zap.Int("room_clients", len(room)))

		case client := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.channelID]; ok {
				if _, ok := room[client]; ok {
					delete(room, client)
					close(client.send)
					if len(room) == 0 {
						delete(h.rooms, client.channelID)
					}
				}
			}
			h.mu.Unlock()

			logger.Info("WebSocket client disconnected",
				zap.String("clientId", client.clientID),
				zap.String("channel_id", client.channelID))

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.rooms[message.channelID] {
				select {
				case client.send <- message.payload:
				default:
					// 送信が詰まったクライアントは切断する。遅い
					// ディスプレイ面にエンジンを待たせない。
					go func(c *WSClient) {
						h.unregister <- c
						c.conn.Close()
					}(client)
				}
			}
			h.mu.RUnlock()

		case <-ticker.C:
			// ハートビート送信
			h.mu.RLock()
			for _, room := range h.rooms {
				for client := range room {
					if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						go func(c *WSClient) {
							h.unregister <- c
							c.conn.Close()
						}(client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ClientCount はチャンネルに接続中のディスプレイ面の数を返す。
func ClientCount(channelID string) int {
	wsHub.mu.RLock()
	defer wsHub.mu.RUnlock()
	return len(wsHub.rooms[channelID])
}

// BroadcastSnapshot sends the full session snapshot to every display
// surface on the channel. Fire-and-forget: no client is acknowledged.
func BroadcastSnapshot(channelID string, snap game.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		logger.Error("Failed to marshal snapshot", zap.Error(err))
		return
	}

	payload, err := json.Marshal(WSMessage{Type: "snapshot", Data: data})
	if err != nil {
		logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	select {
	case wsHub.broadcast <- roomMessage{channelID: channelID, payload: payload}:
	default:
		logger.Warn("WebSocket broadcast channel full, snapshot dropped",
			zap.String("channel_id", channelID))
	}
}

// handleWS WebSocket接続を処理
func handleWS(w http.ResponseWriter, r *http.Request) {
	channelID := channelOrDefault(r.URL.Query().Get("channel"))

	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = generateClientID()
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade to WebSocket", zap.Error(err))
		return
	}

	client := &WSClient{
		conn:        conn,
		send:        make(chan []byte, 256),
		clientID:    clientID,
		channelID:   channelID,
		connectedAt: time.Now(),
	}

	wsHub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *WSClient) readPump() {
	defer func() {
		wsHub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket read error", zap.Error(err))
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Debug("Ignoring malformed WebSocket message",
				zap.String("clientId", c.clientID))
			continue
		}

		// 再接続したディスプレイ面は次の状態変化を待たずにこれで
		// 現在のスナップショットを引き出す。
		if msg.Type == "request-sync" {
			c.sendCurrentSnapshot()
		}
	}
}

func (c *WSClient) sendCurrentSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := sessions.Get(c.channelID).Snapshot(ctx)
	if err != nil {
		logger.Warn("Failed to resolve snapshot for sync request",
			zap.String("channel_id", c.channelID), zap.Error(err))
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		logger.Error("Failed to marshal snapshot", zap.Error(err))
		return
	}
	payload, err := json.Marshal(WSMessage{Type: "snapshot", Data: data})
	if err != nil {
		logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	select {
	case c.send <- payload:
	default:
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.conn.WriteMessage(websocket.TextMessage, message)

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// generateClientID クライアントIDを生成
func generateClientID() string {
	id, err := gonanoid.New()
	if err != nil {
		return "ws-unknown"
	}
	return "ws-" + id
}
