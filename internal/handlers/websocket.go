package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/sevenbit/faircore/internal/ledger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler owns the connection hub and doubles as the engine's
// Broadcaster: crash ticks fan out to every client, balance updates go to the
// owning user only.
type WebSocketHandler struct {
	ledger ledger.Ledger
	log    *logrus.Logger
	hub    *wsHub
}

type wsHub struct {
	clients    map[int64]*websocket.Conn
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan *wsMessage
	log        *logrus.Logger
}

type wsClient struct {
	UserID int64
	Conn   *websocket.Conn
}

type wsMessage struct {
	Type   string      `json:"type"`
	UserID int64       `json:"-"`
	Data   interface{} `json:"data"`
}

func NewWebSocketHandler(lg ledger.Ledger, log *logrus.Logger) *WebSocketHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	hub := &wsHub{
		clients:    make(map[int64]*websocket.Conn),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan *wsMessage, 100),
		log:        log,
	}
	go hub.run()

	return &WebSocketHandler{ledger: lg, log: log, hub: hub}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Error("failed to upgrade to websocket")
		return
	}

	client := &wsClient{UserID: userID, Conn: conn}
	h.hub.register <- client
	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendBalance(userID)

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Warn("websocket read error")
			}
			return
		}
		if msg.Type == "PING" {
			h.hub.broadcast <- &wsMessage{
				Type:   "PONG",
				UserID: userID,
				Data:   gin.H{"timestamp": time.Now().Unix()},
			}
		}
	}
}

func (h *WebSocketHandler) sendBalance(userID int64) {
	balance, err := h.ledger.Balance(context.Background(), userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("failed to get balance for websocket")
		return
	}
	h.BalanceUpdate(userID, balance)
}

func (hub *wsHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.UserID] = client.Conn
			hub.log.WithField("user_id", client.UserID).Debug("websocket client registered")

		case client := <-hub.unregister:
			if _, ok := hub.clients[client.UserID]; ok {
				delete(hub.clients, client.UserID)
				hub.log.WithField("user_id", client.UserID).Debug("websocket client unregistered")
			}

		case msg := <-hub.broadcast:
			hub.send(msg)
		}
	}
}

func (hub *wsHub) send(msg *wsMessage) {
	if msg.UserID != 0 {
		if conn, ok := hub.clients[msg.UserID]; ok {
			conn.WriteJSON(msg)
		}
		return
	}
	for _, conn := range hub.clients {
		conn.WriteJSON(msg)
	}
}

// CrashTick streams the live multiplier of a running crash round.
func (h *WebSocketHandler) CrashTick(roundID string, multiplier float64) {
	h.enqueue(&wsMessage{
		Type: "CRASH_TICK",
		Data: gin.H{
			"round_id":   roundID,
			"multiplier": multiplier,
			"timestamp":  time.Now().Unix(),
		},
	})
}

func (h *WebSocketHandler) CrashBust(roundID string, crashPoint float64) {
	h.enqueue(&wsMessage{
		Type: "CRASH_BUST",
		Data: gin.H{
			"round_id":    roundID,
			"crash_point": crashPoint,
			"timestamp":   time.Now().Unix(),
		},
	})
}

func (h *WebSocketHandler) BalanceUpdate(userID int64, balance int64) {
	h.enqueue(&wsMessage{
		Type:   "BALANCE_UPDATE",
		UserID: userID,
		Data:   gin.H{"balance": balance},
	})
}

// enqueue drops the message when the hub is backed up; a stale tick is worth
// less than a blocked settlement goroutine.
func (h *WebSocketHandler) enqueue(msg *wsMessage) {
	select {
	case h.hub.broadcast <- msg:
	default:
	}
}
