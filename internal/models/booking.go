// internal/models/booking.go
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type BookingStatus string

const (
	BookingPending      BookingStatus = "Pending"
	BookingAccepted     BookingStatus = "Accepted"
	BookingCompleted    BookingStatus = "Completed"
	BookingNotAvailable BookingStatus = "Not Available"
)

var BookingStatuses = []BookingStatus{BookingPending, BookingAccepted, BookingCompleted, BookingNotAvailable}

// providerTransitions is the table a provider may move a booking through.
// Not Available is terminal for everyone except an administrator.
var providerTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:      {BookingAccepted, BookingCompleted, BookingNotAvailable},
	BookingAccepted:     {BookingCompleted, BookingNotAvailable},
	BookingCompleted:    {BookingNotAvailable},
	BookingNotAvailable: {},
}

func (s BookingStatus) Valid() bool {
	_, ok := providerTransitions[s]
	return ok
}

// CanAdvanceTo reports whether a provider may move the booking from s to target.
func (s BookingStatus) CanAdvanceTo(target BookingStatus) bool {
	for _, t := range providerTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return len(providerTransitions[s]) == 0
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("invalid booking status: %q", s)
	}
	return status, nil
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "Cash"
	PaymentEsewa  PaymentMethod = "Esewa"
	PaymentKhalti PaymentMethod = "Khalti"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentEsewa || m == PaymentKhalti
}

// UsesGateway is true for methods settled through a signed redirect handshake.
// Khalti is settled like cash.
func (m PaymentMethod) UsesGateway() bool {
	return m == PaymentEsewa
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentPaid      PaymentStatus = "Paid"
	PaymentReceived  PaymentStatus = "Received"
	PaymentCancelled PaymentStatus = "Cancelled"
	PaymentFailed    PaymentStatus = "Failed"
)

// IsClosed is true once nothing may move the payment again.
func (p PaymentStatus) IsClosed() bool {
	return p == PaymentReceived || p == PaymentCancelled
}

type Booking struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	ServiceID  uint      `gorm:"not null;index" json:"service_id"`

	Date        datatypes.Date `gorm:"not null" json:"date"`
	Time        datatypes.Time `gorm:"not null" json:"time"`
	Address     string         `gorm:"type:text" json:"address"`
	PhoneNumber string         `gorm:"type:varchar(15)" json:"phone_number"`

	Status          BookingStatus `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	PaymentMethod   PaymentMethod `gorm:"type:varchar(20);not null;default:'Cash'" json:"payment_method"`
	PaymentStatus   PaymentStatus `gorm:"type:varchar(20);not null;default:'Pending'" json:"payment_status"`
	PaymentReceived bool          `gorm:"not null;default:false" json:"payment_received"`

	// Version guards every read-modify-write against lost updates.
	Version int64 `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Customer *User    `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"customer,omitempty"`
	Service  *Service `gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE" json:"service,omitempty"`
}

// State is the mutable part of a booking written by one transition.
func (b *Booking) State() BookingState {
	return BookingState{
		Status:          b.Status,
		PaymentStatus:   b.PaymentStatus,
		PaymentReceived: b.PaymentReceived,
	}
}

func (b *Booking) Apply(s BookingState) {
	b.Status = s.Status
	b.PaymentStatus = s.PaymentStatus
	b.PaymentReceived = s.PaymentReceived
}

type BookingState struct {
	Status          BookingStatus
	PaymentStatus   PaymentStatus
	PaymentReceived bool
}

type BookingFilter struct {
	Search     string
	Status     BookingStatus
	CustomerID uuid.UUID
	ProviderID uuid.UUID
}

// ProviderBookingStats aggregates the bookings made against one provider's services.
type ProviderBookingStats struct {
	Total     int64 `json:"total_bookings"`
	Pending   int64 `json:"pending_bookings"`
	Accepted  int64 `json:"accepted_bookings"`
	Completed int64 `json:"completed_bookings"`
	// Earnings counts only completed bookings whose payment the provider confirmed.
	Earnings int64 `json:"total_earnings"`
	// CompletedValue is the price sum of completed bookings regardless of payment.
	CompletedValue int64 `json:"completed_value"`
	Paid           int64 `json:"paid_bookings"`
	Unpaid         int64 `json:"unpaid_bookings"`
}
