package handlers

import (
	"io"
	"net/http"
	"time"

	"campusride/internal/http/middleware"
	"campusride/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	streamKeepAlive = 25 * time.Second

	wsPingInterval   = 30 * time.Second
	wsPongWait       = 60 * time.Second
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 1024
)

type messageRequest struct {
	ReceiverID int64  `json:"receiverId" binding:"required,gt=0"`
	RideID     *int64 `json:"rideId" binding:"omitempty,gt=0"`
	Content    string `json:"content" binding:"required"`
}

// POST /api/messages
func (h *Handler) SendMessage(c *gin.Context) {
	var req messageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.Messages.Send(c.Request.Context(), currentUser(c), req.ReceiverID, req.RideID, req.Content)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// GET /api/messages returns one entry per conversation partner.
func (h *Handler) ListConversations(c *gin.Context) {
	convs, err := h.Messages.Overview(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// GET /api/messages/:userId
func (h *Handler) GetConversation(c *gin.Context) {
	otherID, ok := paramID(c, "userId")
	if !ok {
		return
	}
	msgs, err := h.Messages.Conversation(c.Request.Context(), currentUser(c).ID, otherID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// GET /api/messages/unread/count
func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.Messages.UnreadCount(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// PUT /api/messages/:id/read
func (h *Handler) MarkMessageRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	msg, err := h.Messages.MarkRead(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// GET /api/messages/stream pushes realtime events as server-sent events.
func (h *Handler) StreamMessages(c *gin.Context) {
	user := currentUser(c)
	sub := h.Hub.Subscribe(user.ID)
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"userId": user.ID})
	c.Writer.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev.Data)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"ts": time.Now().Unix()})
			return true
		}
	})
}

// GET /api/messages/ws pushes the same events over a WebSocket. Clients
// only read; anything they send is discarded.
func (h *Handler) MessagesWebSocket(c *gin.Context) {
	user := currentUser(c)
	log := middleware.LoggerFrom(c).With(zap.Int64("user_id", user.ID))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := h.Hub.Subscribe(user.ID)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(wsMaxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}
	if err := write(realtime.Event{Type: "ready", Data: gin.H{"userId": user.ID}}); err != nil {
		return
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := write(ev); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
