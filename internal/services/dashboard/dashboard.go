package dashboard

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
)

var (
	ErrNotAdmin          = apperr.New(apperr.KindForbidden, "administrator access required")
	ErrUserNotFound      = apperr.New(apperr.KindNotFound, "user not found")
	ErrServiceNotFound   = apperr.New(apperr.KindNotFound, "service not found")
	ErrCannotDeleteAdmin = apperr.New(apperr.KindConflict, "cannot delete superuser account")
)

type Repository interface {
	Overview(ctx context.Context) (*models.DashboardStats, error)
	ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, error)
	ListServices(ctx context.Context, f models.ServiceFilter) ([]models.Service, error)
	ListBookings(ctx context.Context, f models.BookingFilter) ([]models.Booking, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	DeleteService(ctx context.Context, id uint) error
}

// BookingAdmin is the booking engine's administrative surface.
type BookingAdmin interface {
	ForceStatus(ctx context.Context, admin *models.User, bookingID uint, status models.BookingStatus) (*models.Booking, error)
	Delete(ctx context.Context, admin *models.User, bookingID uint) error
}

type Dashboard struct {
	repo     Repository
	bookings BookingAdmin
}

func New(repo Repository, bookings BookingAdmin) *Dashboard {
	return &Dashboard{repo: repo, bookings: bookings}
}

func requireAdmin(u *models.User) error {
	if u == nil {
		return apperr.New(apperr.KindUnauthorized, "login required")
	}
	if !u.IsAdmin {
		return ErrNotAdmin
	}
	return nil
}

func (d *Dashboard) Home(ctx context.Context, admin *models.User) (*models.DashboardStats, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	st, err := d.repo.Overview(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return st, nil
}

// Users lists accounts; role narrows to "customer" or "provider".
func (d *Dashboard) Users(ctx context.Context, admin *models.User, search, role string) ([]models.User, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role != models.RoleCustomer && role != models.RoleProvider {
		role = ""
	}
	users, err := d.repo.ListUsers(ctx, models.UserFilter{Search: strings.TrimSpace(search), Role: role})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

func (d *Dashboard) Services(ctx context.Context, admin *models.User, search string, category models.Category) ([]models.Service, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	if category != "" && !category.Valid() {
		return nil, apperr.Validation("unknown category", apperr.FieldErrors{"category": {"unknown category"}})
	}
	services, err := d.repo.ListServices(ctx, models.ServiceFilter{Search: strings.TrimSpace(search), Category: category, NewestFirst: true})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return services, nil
}

func (d *Dashboard) Bookings(ctx context.Context, admin *models.User, search string, status models.BookingStatus) ([]models.Booking, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("invalid status selected", apperr.FieldErrors{"status": {"invalid status selected"}})
	}
	list, err := d.repo.ListBookings(ctx, models.BookingFilter{Search: strings.TrimSpace(search), Status: status})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

func (d *Dashboard) UpdateBookingStatus(ctx context.Context, admin *models.User, bookingID uint, status models.BookingStatus) (*models.Booking, error) {
	b, err := d.bookings.ForceStatus(ctx, admin, bookingID, status)
	if err != nil {
		return nil, err
	}
	log.Info().Str("admin", admin.Username).Uint("booking_id", bookingID).Str("status", string(status)).Msg("booking status forced")
	return b, nil
}

func (d *Dashboard) DeleteBooking(ctx context.Context, admin *models.User, bookingID uint) error {
	return d.bookings.Delete(ctx, admin, bookingID)
}

// DeleteUser removes an account with everything it owns. Administrators
// cannot be deleted.
func (d *Dashboard) DeleteUser(ctx context.Context, admin *models.User, id uuid.UUID) error {
	if err := requireAdmin(admin); err != nil {
		return err
	}
	u, err := d.repo.FindUserByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return apperr.Internal(err)
	}
	if u.IsAdmin {
		return ErrCannotDeleteAdmin
	}
	if err := d.repo.DeleteUser(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	log.Info().Str("admin", admin.Username).Str("user", u.Username).Msg("user deleted")
	return nil
}

func (d *Dashboard) DeleteService(ctx context.Context, admin *models.User, id uint) error {
	if err := requireAdmin(admin); err != nil {
		return err
	}
	err := d.repo.DeleteService(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrServiceNotFound
	}
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}
