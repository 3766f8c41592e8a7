package handler

import (
	"time"

	"atomics-registration-be/internal/pkg/logger"
	"atomics-registration-be/internal/pkg/serverutils"
	internalWS "atomics-registration-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// FeedHandler serves the admin live feed: the websocket itself plus a couple of
// diagnostics for the dashboard.
type FeedHandler struct {
	hub    *internalWS.Hub
	admin  fiber.Handler
	logger logger.ILogger
}

func NewFeedHandler(hub *internalWS.Hub, adminMiddleware fiber.Handler, log logger.ILogger) *FeedHandler {
	return &FeedHandler{
		hub:    hub,
		admin:  adminMiddleware,
		logger: log,
	}
}

// ServeWs upgrades an authenticated admin to the feed. The token may come from the
// ?token= query since browsers cannot set headers on the upgrade request.
func (h *FeedHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	adminID, _ := c.Locals("admin").(string)

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("FeedHandler", "Starting WebSocket session", map[string]interface{}{"admin": adminID})
		internalWS.ServeWs(h.hub, conn, adminID)
		h.logger.Info("FeedHandler", "WebSocket session ended", map[string]interface{}{"admin": adminID})
	})(c)
}

// Status reports how many admins this instance is serving.
func (h *FeedHandler) Status(c *fiber.Ctx) error {
	return c.JSON(serverutils.SuccessResponse("Feed status", fiber.Map{
		"connectedAdmins": h.hub.ClientCount(),
	}))
}

// Ping pushes a test frame through the hub so the dashboard can verify its connection.
func (h *FeedHandler) Ping(c *fiber.Ctx) error {
	adminID, _ := c.Locals("admin").(string)
	h.hub.Broadcast(internalWS.FeedMessage{
		Type: "FEED_PING",
		Data: map[string]interface{}{
			"admin": adminID,
			"at":    time.Now().UTC(),
		},
	})
	return c.JSON(serverutils.SuccessResponse[any]("Ping sent", nil))
}

func (h *FeedHandler) RegisterRoutes(router fiber.Router) {
	// Per-route middleware: a group-level handler would also guard /admin/login.
	feed := router.Group("/admin")
	feed.Get("/ws", h.admin, h.ServeWs)
	feed.Get("/feed/status", h.admin, h.Status)
	feed.Post("/feed/ping", h.admin, h.Ping)
}
