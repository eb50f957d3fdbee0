package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
)

func (s *Store) CreateBooking(ctx context.Context, b *models.Booking) error {
	return s.DB.WithContext(ctx).Omit("Customer", "Service").Create(b).Error
}

func (s *Store) FindBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.DB.WithContext(ctx).Preload("Service").Preload("Customer").First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBookingState is a compare-and-swap on the version column.
func (s *Store) UpdateBookingState(ctx context.Context, id uint, version int64, st models.BookingState) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"status":           st.Status,
			"payment_status":   st.PaymentStatus,
			"payment_received": st.PaymentReceived,
			"version":          gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) DeleteBooking(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.Booking{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListBookings orders customer and provider views by appointment, most
// recent first, and the unscoped admin view by id.
func (s *Store) ListBookings(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	q := s.DB.WithContext(ctx).Model(&models.Booking{}).
		Select("bookings.*").
		Joins("JOIN services ON services.id = bookings.service_id").
		Joins("JOIN users AS customers ON customers.id = bookings.customer_id").
		Preload("Customer").
		Preload("Service.Provider")

	if f.Search != "" {
		p := like(f.Search)
		q = q.Where("customers.username ILIKE ? OR services.name ILIKE ?", p, p)
	}
	if f.Status != "" {
		q = q.Where("bookings.status = ?", f.Status)
	}
	if f.CustomerID != uuid.Nil {
		q = q.Where("bookings.customer_id = ?", f.CustomerID)
	}
	if f.ProviderID != uuid.Nil {
		q = q.Where("services.provider_id = ?", f.ProviderID)
	}

	if f.CustomerID != uuid.Nil || f.ProviderID != uuid.Nil {
		q = q.Order("bookings.date DESC").Order("bookings.time DESC").Order("bookings.id DESC")
	} else {
		q = q.Order("bookings.id DESC")
	}

	var out []models.Booking
	err := q.Find(&out).Error
	return out, err
}

func (s *Store) ProviderBookingStats(ctx context.Context, providerID uuid.UUID) (models.ProviderBookingStats, error) {
	var st models.ProviderBookingStats
	err := s.DB.WithContext(ctx).Table("bookings").
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN bookings.status = ? THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN bookings.status = ? THEN 1 ELSE 0 END), 0) AS accepted,
			COALESCE(SUM(CASE WHEN bookings.status = ? THEN 1 ELSE 0 END), 0) AS completed,
			COALESCE(SUM(CASE WHEN bookings.status = ? AND bookings.payment_received THEN services.price ELSE 0 END), 0) AS earnings,
			COALESCE(SUM(CASE WHEN bookings.status = ? THEN services.price ELSE 0 END), 0) AS completed_value,
			COALESCE(SUM(CASE WHEN bookings.payment_received THEN 1 ELSE 0 END), 0) AS paid,
			COALESCE(SUM(CASE WHEN bookings.status = ? AND NOT bookings.payment_received THEN 1 ELSE 0 END), 0) AS unpaid`,
			models.BookingPending, models.BookingAccepted, models.BookingCompleted,
			models.BookingCompleted, models.BookingCompleted, models.BookingCompleted).
		Joins("JOIN services ON services.id = bookings.service_id").
		Where("services.provider_id = ?", providerID).
		Scan(&st).Error
	return st, err
}

func (s *Store) CreatePaymentAttempt(ctx context.Context, a *models.PaymentAttempt) error {
	return s.DB.WithContext(ctx).Create(a).Error
}

func (s *Store) FindPaymentAttempt(ctx context.Context, transactionUUID string) (*models.PaymentAttempt, error) {
	var a models.PaymentAttempt
	if err := s.DB.WithContext(ctx).Where("transaction_uuid = ?", transactionUUID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) RecordAttemptResult(ctx context.Context, transactionUUID string, status models.AttemptStatus, refID string, payload datatypes.JSON) error {
	res := s.DB.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("transaction_uuid = ?", transactionUUID).
		Updates(map[string]interface{}{
			"status":           status,
			"ref_id":           refID,
			"callback_payload": payload,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
