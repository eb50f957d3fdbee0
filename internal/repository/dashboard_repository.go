package repository

import (
	"context"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
)

// Overview computes the admin dashboard counters.
func (s *Store) Overview(ctx context.Context) (*models.DashboardStats, error) {
	db := s.DB.WithContext(ctx)
	st := &models.DashboardStats{}

	counts := []struct {
		dst   *int64
		model interface{}
		where string
		arg   interface{}
	}{
		{&st.TotalUsers, &models.User{}, "", nil},
		{&st.TotalCustomers, &models.User{}, "is_customer = ?", true},
		{&st.TotalProviders, &models.User{}, "is_provider = ?", true},
		{&st.TotalServices, &models.Service{}, "", nil},
		{&st.TotalBookings, &models.Booking{}, "", nil},
		{&st.PendingBookings, &models.Booking{}, "status = ?", models.BookingPending},
		{&st.AcceptedBookings, &models.Booking{}, "status = ?", models.BookingAccepted},
		{&st.CompletedBookings, &models.Booking{}, "status = ?", models.BookingCompleted},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.arg)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	if err := db.Preload("Customer").Preload("Service").
		Order("id DESC").Limit(5).Find(&st.RecentBookings).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Booking{}).
		Select("status, COUNT(*) AS count").Group("status").Order("status").
		Scan(&st.BookingsByStatus).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Service{}).
		Select("category, COUNT(*) AS count").Group("category").Order("category").
		Scan(&st.ServicesByCategory).Error; err != nil {
		return nil, err
	}
	return st, nil
}
