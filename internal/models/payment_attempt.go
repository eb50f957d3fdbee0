package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptInitiated AttemptStatus = "INITIATED"
	AttemptComplete  AttemptStatus = "COMPLETE"
	AttemptFailed    AttemptStatus = "FAILED"
)

// PaymentAttempt records one gateway hand-off. It is an audit trail only:
// booking payment state is driven by the booking engine.
type PaymentAttempt struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID       uint           `gorm:"not null;index" json:"booking_id"`
	TransactionUUID string         `gorm:"type:varchar(64);uniqueIndex" json:"transaction_uuid"`
	TotalAmount     int64          `json:"total_amount"`
	ProductCode     string         `gorm:"type:varchar(50)" json:"product_code"`
	Status          AttemptStatus  `gorm:"type:varchar(20);default:'INITIATED'" json:"status"`
	RefID           string         `gorm:"type:varchar(64)" json:"ref_id"`
	CallbackPayload datatypes.JSON `json:"callback_payload"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	Booking *Booking `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"-"`
}

func (p *PaymentAttempt) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
