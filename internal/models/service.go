package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryPlumbing        Category = "Plumbing"
	CategoryElectrical      Category = "Electrical"
	CategoryCleaning        Category = "Cleaning"
	CategoryPainting        Category = "Painting"
	CategoryApplianceRepair Category = "Appliance Repair"
	CategoryHandyman        Category = "Handyman"
)

// Categories is the fixed catalog taxonomy in display order.
var Categories = []Category{
	CategoryPlumbing,
	CategoryElectrical,
	CategoryCleaning,
	CategoryPainting,
	CategoryApplianceRepair,
	CategoryHandyman,
}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Slug is the URL form, e.g. "appliance-repair".
func (c Category) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(c)), " ", "-")
}

func CategoryFromSlug(slug string) (Category, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, k := range Categories {
		if k.Slug() == slug {
			return k, true
		}
	}
	return "", false
}

type Service struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Category    Category  `gorm:"type:varchar(50);not null;index" json:"category"`
	Price       int64     `gorm:"not null" json:"price"`
	ProviderID  uuid.UUID `gorm:"type:uuid;not null;index" json:"provider_id"`
	IsAvailable bool      `gorm:"not null;default:true" json:"is_available"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Provider *User `gorm:"foreignKey:ProviderID;constraint:OnDelete:CASCADE" json:"provider,omitempty"`
}

func (s *Service) OwnedBy(u *User) bool {
	return u != nil && s.ProviderID == u.ID
}

// ServiceFilter narrows catalog and dashboard listings.
type ServiceFilter struct {
	Search      string
	Category    Category
	ProviderID  uuid.UUID
	NewestFirst bool
}

// ProviderActivity summarises a provider's catalog and booking history.
type ProviderActivity struct {
	ServiceCount      int64 `json:"service_count"`
	TotalBookings     int64 `json:"total_bookings"`
	CompletedBookings int64 `json:"completed_bookings"`
	// TotalEarnings sums prices of completed bookings, paid or not.
	TotalEarnings int64 `json:"total_earnings"`
}
