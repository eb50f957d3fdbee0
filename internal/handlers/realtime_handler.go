package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/middleware"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/realtime"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/utils"
)

// RealtimeHandler streams booking updates over a websocket. Browsers cannot
// set headers on the upgrade, so the token may also come as ?token=.
type RealtimeHandler struct {
	Hub       *realtime.Hub
	JWTSecret string
}

func NewRealtimeHandler(hub *realtime.Hub, secret string) *RealtimeHandler {
	return &RealtimeHandler{Hub: hub, JWTSecret: secret}
}

// Upgrade authenticates the handshake before the protocol switch.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	tok := c.Query("token")
	if tok == "" {
		tok = middleware.TokenFromRequest(c)
	}
	claims, err := utils.ParseJWT(h.JWTSecret, tok)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	c.Locals("userId", uid)
	return c.Next()
}

func (h *RealtimeHandler) Serve(c *websocket.Conn) {
	uid, ok := c.Locals("userId").(uuid.UUID)
	if !ok {
		_ = c.Close()
		return
	}
	log.Debug().Str("user_id", uid.String()).Msg("websocket connected")
	h.Hub.Serve(c, uid)
}
