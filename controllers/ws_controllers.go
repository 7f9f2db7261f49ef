package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yeremiapane/restaurant-reservation/hub"
	"github.com/yeremiapane/restaurant-reservation/metrics"
	"github.com/yeremiapane/restaurant-reservation/middlewares"
	"github.com/yeremiapane/restaurant-reservation/protocol"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

const (
	maxMessageSize = 64 << 10
	writeWait      = 10 * time.Second
)

// NewUpgrader accepts connections whose Origin is in allowed ("*" allows any).
// Requests without an Origin header (non-browser clients) are accepted.
func NewUpgrader(allowed []string) websocket.Upgrader {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || set["*"] || set[origin]
		},
	}
}

// ProtocolController serves the request/response protocol. Each connection
// is read, dispatched and answered by one goroutine, so responses keep the
// order of requests.
type ProtocolController struct {
	Dispatcher *protocol.Dispatcher
	Upgrader   websocket.Upgrader
	Limit      rate.Limit
	Burst      int
}

func NewProtocolController(d *protocol.Dispatcher, upgrader websocket.Upgrader, perSecond float64, burst int) *ProtocolController {
	return &ProtocolController{
		Dispatcher: d,
		Upgrader:   upgrader,
		Limit:      rate.Limit(perSecond),
		Burst:      burst,
	}
}

func (pc *ProtocolController) Serve(c *gin.Context) {
	ws, err := pc.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("Websocket upgrade failed from %s: %v", c.ClientIP(), err)
		return
	}
	defer ws.Close()

	session := protocol.NewSession(pc.Limit, pc.Burst)
	session.Role = middlewares.RoleFromContext(c)
	session.Username = c.GetString(middlewares.ContextUsername)

	log := utils.InfoLogger.WithFields(logrus.Fields{
		"session": session.ID.String(),
		"ip":      c.ClientIP(),
		"role":    session.Role,
	})
	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()
	log.Info("protocol client connected")

	ws.SetReadLimit(maxMessageSize)
	ctx := c.Request.Context()
	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.ErrorLogger.WithError(err).WithField("session", session.ID.String()).Warn("protocol connection lost")
			}
			break
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		resp := pc.Dispatcher.Dispatch(ctx, session, data)
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(resp); err != nil {
			utils.ErrorLogger.WithError(err).WithField("session", session.ID.String()).Warn("protocol write failed")
			break
		}
	}
	log.Info("protocol client disconnected")
}

// FloorController streams floor events to staff dashboards.
type FloorController struct {
	Hub      *hub.Hub
	Upgrader websocket.Upgrader
}

func NewFloorController(h *hub.Hub, upgrader websocket.Upgrader) *FloorController {
	return &FloorController{Hub: h, Upgrader: upgrader}
}

func (fc *FloorController) Serve(c *gin.Context) {
	role := middlewares.RoleFromContext(c)
	if !role.IsStaff() {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := fc.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	fc.Hub.RegisterClient(ws, role)
	utils.InfoLogger.Printf("Floor dashboard connected (%s), %d clients", role, fc.Hub.ClientCount())

	// Dashboards only listen; reading detects the disconnect.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	fc.Hub.UnregisterClient(ws)
}
