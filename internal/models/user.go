// internal/models/user.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer and provider are independent capabilities: a user may hold both or neither.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email    string    `gorm:"uniqueIndex;not null" json:"email"`
	Password string    `gorm:"not null" json:"-"`

	FirstName   string `gorm:"type:varchar(150)" json:"first_name"`
	LastName    string `gorm:"type:varchar(150)" json:"last_name"`
	PhoneNumber string `gorm:"type:varchar(15)" json:"phone_number"`
	Address     string `gorm:"type:text" json:"address"`

	IsCustomer bool `gorm:"not null;default:false;index" json:"is_customer"`
	IsProvider bool `gorm:"not null;default:false;index" json:"is_provider"`
	IsAdmin    bool `gorm:"not null;default:false" json:"is_admin"`
	IsActive   bool `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

// FullName falls back to the username when no name was given.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Roles lists the capability names carried in the JWT and checked by middleware.
func (u *User) Roles() []string {
	var roles []string
	if u.IsCustomer {
		roles = append(roles, RoleCustomer)
	}
	if u.IsProvider {
		roles = append(roles, RoleProvider)
	}
	if u.IsAdmin {
		roles = append(roles, RoleAdmin)
	}
	return roles
}

// HasRole reports whether the user holds the named capability.
func (u *User) HasRole(role string) bool {
	switch strings.ToLower(role) {
	case RoleCustomer:
		return u.IsCustomer
	case RoleProvider:
		return u.IsProvider
	case RoleAdmin:
		return u.IsAdmin
	}
	return false
}

const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)
