package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
)

const MessageBookingUpdate = "booking_status_update"

type BookingUpdate struct {
	Type            string               `json:"type"`
	Event           string               `json:"event"`
	BookingID       uint                 `json:"booking_id"`
	ServiceName     string               `json:"service_name,omitempty"`
	Status          models.BookingStatus `json:"status"`
	PaymentStatus   models.PaymentStatus `json:"payment_status"`
	PaymentReceived bool                 `json:"payment_received"`
	At              time.Time            `json:"at"`
}

// BookingNotifier fans committed booking transitions out to the websocket
// hub and to each party's redis notification channel.
type BookingNotifier struct {
	Hub *Hub
	RDB *redis.Client
}

func NewBookingNotifier(hub *Hub, rdb *redis.Client) *BookingNotifier {
	return &BookingNotifier{Hub: hub, RDB: rdb}
}

func (n *BookingNotifier) BookingUpdated(ctx context.Context, b *models.Booking, event string) {
	msg := BookingUpdate{
		Type:            MessageBookingUpdate,
		Event:           event,
		BookingID:       b.ID,
		Status:          b.Status,
		PaymentStatus:   b.PaymentStatus,
		PaymentReceived: b.PaymentReceived,
		At:              time.Now().UTC(),
	}
	parties := []uuid.UUID{b.CustomerID}
	if b.Service != nil {
		msg.ServiceName = b.Service.Name
		if b.Service.ProviderID != b.CustomerID {
			parties = append(parties, b.Service.ProviderID)
		}
	}

	if n.Hub != nil {
		n.Hub.SendToParties(msg, parties...)
	}
	if n.RDB == nil {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("marshal booking update")
		return
	}
	// publishing is best effort; the transition is already committed
	for _, id := range parties {
		if err := n.RDB.Publish(ctx, NotificationChannel(id.String()), payload).Err(); err != nil {
			log.Warn().Err(err).Uint("booking_id", b.ID).Msg("publish booking update")
		}
	}
}
