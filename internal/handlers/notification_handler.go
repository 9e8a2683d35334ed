package handlers

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/avargas-dev/AcademyBack/internal/notify"
	"github.com/avargas-dev/AcademyBack/pkg/utils"
)

type NotificationHandler struct {
	hub       *notify.Hub
	jwtSecret string
}

func NewNotificationHandler(hub *notify.Hub, jwtSecret string) *NotificationHandler {
	return &NotificationHandler{hub: hub, jwtSecret: jwtSecret}
}

// WebSocketAuth upgrades authenticated requests. Browsers cannot set
// headers on websocket dials, so the token is also accepted as a query
// parameter.
func (h *NotificationHandler) WebSocketAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		token := c.Query("token")
		if token == "" {
			auth := c.Get("Authorization")
			if len(auth) > 7 && auth[:7] == "Bearer " {
				token = auth[7:]
			}
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := utils.ValidateToken(token, h.jwtSecret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)
		return c.Next()
	}
}

func (h *NotificationHandler) HandleWebSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("user_id").(string)
		role, _ := conn.Locals("role").(string)
		if userID == "" {
			_ = conn.Close()
			return
		}

		client := notify.NewClient(h.hub, conn, userID, role == "admin")
		h.hub.Register(client)

		go client.WritePump()
		client.ReadPump()
	})
}
