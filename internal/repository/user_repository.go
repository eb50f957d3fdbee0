package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
)

func (s *Store) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByLogin matches the username exactly or the email case-insensitively.
func (s *Store) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).
		Where("username = ? OR LOWER(email) = ?", login, strings.ToLower(login)).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&n).Error
	return n > 0, err
}

// EmailExists ignores the user with id exclude, so a profile can keep its own email.
func (s *Store) EmailExists(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	var n int64
	q := s.DB.WithContext(ctx).Model(&models.User{}).Where("LOWER(email) = ?", strings.ToLower(email))
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (s *Store) HasAdmin(ctx context.Context) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.User{}).Where("is_admin = ?", true).Count(&n).Error
	return n > 0, err
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return s.DB.WithContext(ctx).Create(u).Error
}

// SaveProfile writes the editable profile columns only.
func (s *Store) SaveProfile(ctx context.Context, u *models.User) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", u.ID).Updates(map[string]interface{}{
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"email":        u.Email,
		"phone_number": u.PhoneNumber,
		"address":      u.Address,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, error) {
	q := s.DB.WithContext(ctx).Model(&models.User{})
	if f.Search != "" {
		q = q.Where("username ILIKE ? OR email ILIKE ?", like(f.Search), like(f.Search))
	}
	switch f.Role {
	case models.RoleCustomer:
		q = q.Where("is_customer = ?", true)
	case models.RoleProvider:
		q = q.Where("is_provider = ?", true)
	}
	var users []models.User
	err := q.Order("created_at DESC").Find(&users).Error
	return users, err
}

// DeleteUser removes the user with their bookings, their services and the
// bookings made on those services.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&models.Service{}).Select("id").Where("provider_id = ?", id)
		if err := tx.Where("customer_id = ? OR service_id IN (?)", id, owned).Delete(&models.Booking{}).Error; err != nil {
			return err
		}
		if err := tx.Where("provider_id = ?", id).Delete(&models.Service{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
