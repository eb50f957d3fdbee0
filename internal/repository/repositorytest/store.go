// Package repositorytest provides an in-memory stand-in for repository.Store
// that service and handler tests run against.
package repositorytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
)

type Store struct {
	mu       sync.Mutex
	users    map[uuid.UUID]models.User
	services map[uint]models.Service
	bookings map[uint]models.Booking
	attempts map[string]models.PaymentAttempt

	nextService uint
	nextBooking uint
	// BeforeUpdate runs inside UpdateBookingState before the version check.
	BeforeUpdate func(id uint)
}

func New() *Store {
	return &Store{
		users:    map[uuid.UUID]models.User{},
		services: map[uint]models.Service{},
		bookings: map[uint]models.Booking{},
		attempts: map[string]models.PaymentAttempt{},
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// users

func (s *Store) FindUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (s *Store) FindUserByLogin(_ context.Context, login string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == login || strings.EqualFold(u.Email, login) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *Store) UsernameExists(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) EmailExists(_ context.Context, email string, exclude uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID != exclude && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) HasAdmin(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.IsAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.users {
		if x.Username == u.Username || strings.EqualFold(x.Email, u.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	return nil
}

func (s *Store) SaveProfile(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.FirstName, cur.LastName = u.FirstName, u.LastName
	cur.Email, cur.PhoneNumber, cur.Address = u.Email, u.PhoneNumber, u.Address
	cur.UpdatedAt = time.Now()
	s.users[u.ID] = cur
	return nil
}

func (s *Store) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.Password = hash
	s.users[id] = cur
	return nil
}

func (s *Store) ListUsers(_ context.Context, f models.UserFilter) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if f.Search != "" && !contains(u.Username, f.Search) && !contains(u.Email, f.Search) {
			continue
		}
		if f.Role == models.RoleCustomer && !u.IsCustomer {
			continue
		}
		if f.Role == models.RoleProvider && !u.IsProvider {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteUser(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for bid, b := range s.bookings {
		if b.CustomerID == id || s.services[b.ServiceID].ProviderID == id {
			s.deleteBookingLocked(bid)
		}
	}
	for sid, svc := range s.services {
		if svc.ProviderID == id {
			delete(s.services, sid)
		}
	}
	delete(s.users, id)
	return nil
}

// services

func (s *Store) withProvider(svc models.Service) models.Service {
	if u, ok := s.users[svc.ProviderID]; ok {
		svc.Provider = &u
	}
	return svc
}

func (s *Store) FindService(_ context.Context, id uint) (*models.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	svc = s.withProvider(svc)
	return &svc, nil
}

func (s *Store) CreateService(_ context.Context, svc *models.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextService++
	svc.ID = s.nextService
	now := time.Now()
	svc.CreatedAt, svc.UpdatedAt = now, now
	stored := *svc
	stored.Provider = nil
	s.services[svc.ID] = stored
	return nil
}

func (s *Store) SetServiceAvailability(_ context.Context, id uint, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	svc.IsAvailable = available
	s.services[id] = svc
	return nil
}

func (s *Store) ListServices(_ context.Context, f models.ServiceFilter) ([]models.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Service
	for _, svc := range s.services {
		svc = s.withProvider(svc)
		if f.Search != "" {
			p := svc.Provider
			match := contains(svc.Name, f.Search)
			if p != nil {
				match = match || contains(p.Username, f.Search) || contains(p.FirstName, f.Search) || contains(p.LastName, f.Search)
			}
			if !match {
				continue
			}
		}
		if f.Category != "" && svc.Category != f.Category {
			continue
		}
		if f.ProviderID != uuid.Nil && svc.ProviderID != f.ProviderID {
			continue
		}
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.NewestFirst {
			return out[i].ID > out[j].ID
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListProviders(_ context.Context, search string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if !u.IsProvider {
			continue
		}
		if search != "" && !contains(u.Username, search) && !contains(u.FirstName, search) && !contains(u.LastName, search) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) ProviderActivity(_ context.Context, providerIDs []uuid.UUID) (map[uuid.UUID]models.ProviderActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range providerIDs {
		want[id] = true
	}
	out := map[uuid.UUID]models.ProviderActivity{}
	for _, svc := range s.services {
		if !want[svc.ProviderID] {
			continue
		}
		a := out[svc.ProviderID]
		a.ServiceCount++
		out[svc.ProviderID] = a
	}
	for _, b := range s.bookings {
		svc := s.services[b.ServiceID]
		if !want[svc.ProviderID] {
			continue
		}
		a := out[svc.ProviderID]
		a.TotalBookings++
		if b.Status == models.BookingCompleted {
			a.CompletedBookings++
			a.TotalEarnings += svc.Price
		}
		out[svc.ProviderID] = a
	}
	return out, nil
}

func (s *Store) DeleteService(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.services[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for bid, b := range s.bookings {
		if b.ServiceID == id {
			s.deleteBookingLocked(bid)
		}
	}
	delete(s.services, id)
	return nil
}

// bookings

func (s *Store) hydrate(b models.Booking) models.Booking {
	if svc, ok := s.services[b.ServiceID]; ok {
		svc = s.withProvider(svc)
		b.Service = &svc
	}
	if u, ok := s.users[b.CustomerID]; ok {
		b.Customer = &u
	}
	return b
}

func (s *Store) CreateBooking(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.services[b.ServiceID]; !ok {
		return gorm.ErrForeignKeyViolated
	}
	s.nextBooking++
	b.ID = s.nextBooking
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	stored := *b
	stored.Service, stored.Customer = nil, nil
	s.bookings[b.ID] = stored
	return nil
}

func (s *Store) FindBooking(_ context.Context, id uint) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	b = s.hydrate(b)
	return &b, nil
}

func (s *Store) UpdateBookingState(_ context.Context, id uint, version int64, st models.BookingState) (bool, error) {
	if s.BeforeUpdate != nil {
		s.BeforeUpdate(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Version != version {
		return false, nil
	}
	b.Apply(st)
	b.Version++
	b.UpdatedAt = time.Now()
	s.bookings[id] = b
	return true, nil
}

// SetBookingState overwrites a booking's state and bumps its version, as a
// concurrent writer would.
func (s *Store) SetBookingState(id uint, st models.BookingState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bookings[id]
	b.Apply(st)
	b.Version++
	s.bookings[id] = b
}

func (s *Store) DeleteBooking(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.deleteBookingLocked(id)
	return nil
}

func (s *Store) deleteBookingLocked(id uint) {
	delete(s.bookings, id)
	for k, a := range s.attempts {
		if a.BookingID == id {
			delete(s.attempts, k)
		}
	}
}

func (s *Store) ListBookings(_ context.Context, f models.BookingFilter) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		b = s.hydrate(b)
		if f.Search != "" {
			match := b.Service != nil && contains(b.Service.Name, f.Search)
			match = match || (b.Customer != nil && contains(b.Customer.Username, f.Search))
			if !match {
				continue
			}
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.CustomerID != uuid.Nil && b.CustomerID != f.CustomerID {
			continue
		}
		if f.ProviderID != uuid.Nil && (b.Service == nil || b.Service.ProviderID != f.ProviderID) {
			continue
		}
		out = append(out, b)
	}
	scoped := f.CustomerID != uuid.Nil || f.ProviderID != uuid.Nil
	sort.Slice(out, func(i, j int) bool {
		if scoped {
			di, dj := time.Time(out[i].Date), time.Time(out[j].Date)
			if !di.Equal(dj) {
				return di.After(dj)
			}
			if out[i].Time != out[j].Time {
				return out[i].Time > out[j].Time
			}
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ProviderBookingStats(_ context.Context, providerID uuid.UUID) (models.ProviderBookingStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st models.ProviderBookingStats
	for _, b := range s.bookings {
		svc, ok := s.services[b.ServiceID]
		if !ok || svc.ProviderID != providerID {
			continue
		}
		st.Total++
		switch b.Status {
		case models.BookingPending:
			st.Pending++
		case models.BookingAccepted:
			st.Accepted++
		case models.BookingCompleted:
			st.Completed++
			st.CompletedValue += svc.Price
			if b.PaymentReceived {
				st.Earnings += svc.Price
			} else {
				st.Unpaid++
			}
		}
		if b.PaymentReceived {
			st.Paid++
		}
	}
	return st, nil
}

func (s *Store) CreatePaymentAttempt(_ context.Context, a *models.PaymentAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.attempts[a.TransactionUUID]; dup {
		return gorm.ErrDuplicatedKey
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.attempts[a.TransactionUUID] = *a
	return nil
}

func (s *Store) FindPaymentAttempt(_ context.Context, transactionUUID string) (*models.PaymentAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[transactionUUID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (s *Store) RecordAttemptResult(_ context.Context, transactionUUID string, status models.AttemptStatus, refID string, payload datatypes.JSON) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[transactionUUID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.Status, a.RefID, a.CallbackPayload = status, refID, payload
	s.attempts[transactionUUID] = a
	return nil
}

// Attempts returns the recorded gateway attempts of a booking.
func (s *Store) Attempts(bookingID uint) []models.PaymentAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PaymentAttempt
	for _, a := range s.attempts {
		if a.BookingID == bookingID {
			out = append(out, a)
		}
	}
	return out
}

// dashboard

func (s *Store) Overview(ctx context.Context) (*models.DashboardStats, error) {
	s.mu.Lock()
	st := &models.DashboardStats{}
	byStatus := map[models.BookingStatus]int64{}
	byCategory := map[models.Category]int64{}
	for _, u := range s.users {
		st.TotalUsers++
		if u.IsCustomer {
			st.TotalCustomers++
		}
		if u.IsProvider {
			st.TotalProviders++
		}
	}
	for _, svc := range s.services {
		st.TotalServices++
		byCategory[svc.Category]++
	}
	for _, b := range s.bookings {
		st.TotalBookings++
		byStatus[b.Status]++
		switch b.Status {
		case models.BookingPending:
			st.PendingBookings++
		case models.BookingAccepted:
			st.AcceptedBookings++
		case models.BookingCompleted:
			st.CompletedBookings++
		}
	}
	s.mu.Unlock()

	for k, n := range byStatus {
		st.BookingsByStatus = append(st.BookingsByStatus, models.StatusCount{Status: k, Count: n})
	}
	sort.Slice(st.BookingsByStatus, func(i, j int) bool { return st.BookingsByStatus[i].Status < st.BookingsByStatus[j].Status })
	for k, n := range byCategory {
		st.ServicesByCategory = append(st.ServicesByCategory, models.CategoryCount{Category: k, Count: n})
	}
	sort.Slice(st.ServicesByCategory, func(i, j int) bool { return st.ServicesByCategory[i].Category < st.ServicesByCategory[j].Category })

	all, _ := s.ListBookings(ctx, models.BookingFilter{})
	if len(all) > 5 {
		all = all[:5]
	}
	st.RecentBookings = all
	return st, nil
}
