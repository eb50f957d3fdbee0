package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
)

// FindService loads the service with its provider.
func (s *Store) FindService(ctx context.Context, id uint) (*models.Service, error) {
	var svc models.Service
	if err := s.DB.WithContext(ctx).Preload("Provider").First(&svc, id).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (s *Store) CreateService(ctx context.Context, svc *models.Service) error {
	return s.DB.WithContext(ctx).Create(svc).Error
}

func (s *Store) SetServiceAvailability(ctx context.Context, id uint, available bool) error {
	res := s.DB.WithContext(ctx).Model(&models.Service{}).Where("id = ?", id).Update("is_available", available)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListServices searches service names and provider names. Results are
// ordered by name unless NewestFirst is set.
func (s *Store) ListServices(ctx context.Context, f models.ServiceFilter) ([]models.Service, error) {
	q := s.DB.WithContext(ctx).Model(&models.Service{}).
		Select("services.*").
		Joins("JOIN users ON users.id = services.provider_id").
		Preload("Provider")

	if f.Search != "" {
		p := like(f.Search)
		q = q.Where("services.name ILIKE ? OR users.username ILIKE ? OR users.first_name ILIKE ? OR users.last_name ILIKE ?", p, p, p, p)
	}
	if f.Category != "" {
		q = q.Where("services.category = ?", f.Category)
	}
	if f.ProviderID != uuid.Nil {
		q = q.Where("services.provider_id = ?", f.ProviderID)
	}
	if f.NewestFirst {
		q = q.Order("services.id DESC")
	} else {
		q = q.Order("services.name ASC").Order("services.id ASC")
	}

	var out []models.Service
	err := q.Find(&out).Error
	return out, err
}

func (s *Store) ListProviders(ctx context.Context, search string) ([]models.User, error) {
	q := s.DB.WithContext(ctx).Model(&models.User{}).Where("is_provider = ?", true)
	if search != "" {
		p := like(search)
		q = q.Where("username ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?", p, p, p)
	}
	var out []models.User
	err := q.Order("username ASC").Find(&out).Error
	return out, err
}

// ProviderActivity aggregates services and bookings per provider. Providers
// without services are absent from the map.
func (s *Store) ProviderActivity(ctx context.Context, providerIDs []uuid.UUID) (map[uuid.UUID]models.ProviderActivity, error) {
	out := make(map[uuid.UUID]models.ProviderActivity, len(providerIDs))
	if len(providerIDs) == 0 {
		return out, nil
	}

	type row struct {
		ProviderID uuid.UUID
		models.ProviderActivity
	}
	var rows []row
	err := s.DB.WithContext(ctx).Table("services").
		Select(`services.provider_id AS provider_id,
			COUNT(DISTINCT services.id) AS service_count,
			COUNT(bookings.id) AS total_bookings,
			COALESCE(SUM(CASE WHEN bookings.status = ? THEN 1 ELSE 0 END), 0) AS completed_bookings,
			COALESCE(SUM(CASE WHEN bookings.status = ? THEN services.price ELSE 0 END), 0) AS total_earnings`,
			models.BookingCompleted, models.BookingCompleted).
		Joins("LEFT JOIN bookings ON bookings.service_id = services.id").
		Where("services.provider_id IN ?", providerIDs).
		Group("services.provider_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ProviderID] = r.ProviderActivity
	}
	return out, nil
}

// DeleteService removes the service and its bookings.
func (s *Store) DeleteService(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("service_id = ?", id).Delete(&models.Booking{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Service{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
