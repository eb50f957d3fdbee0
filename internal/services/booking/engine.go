package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/esewa"
)

// Repository is the persistence the engine needs. Lookups return
// gorm.ErrRecordNotFound for missing rows.
type Repository interface {
	FindService(ctx context.Context, id uint) (*models.Service, error)
	CreateBooking(ctx context.Context, b *models.Booking) error
	// FindBooking loads the booking with its Service.
	FindBooking(ctx context.Context, id uint) (*models.Booking, error)
	// UpdateBookingState writes s only if the stored version still equals
	// version, bumping it. It reports whether a row was written.
	UpdateBookingState(ctx context.Context, id uint, version int64, s models.BookingState) (bool, error)
	DeleteBooking(ctx context.Context, id uint) error
	ListBookings(ctx context.Context, f models.BookingFilter) ([]models.Booking, error)
	ProviderBookingStats(ctx context.Context, providerID uuid.UUID) (models.ProviderBookingStats, error)
	CreatePaymentAttempt(ctx context.Context, a *models.PaymentAttempt) error
	FindPaymentAttempt(ctx context.Context, transactionUUID string) (*models.PaymentAttempt, error)
	RecordAttemptResult(ctx context.Context, transactionUUID string, status models.AttemptStatus, refID string, payload datatypes.JSON) error
}

type Gateway interface {
	BuildPaymentRequest(b *models.Booking, baseURL string) (*esewa.PaymentRequest, error)
	VerifyCallback(data string) (*esewa.CallbackResult, error)
}

// Notifier is told about every committed transition.
type Notifier interface {
	BookingUpdated(ctx context.Context, b *models.Booking, event string)
}

const (
	EventStatusChanged   = "status_changed"
	EventPaymentPaid     = "payment_paid"
	EventPaymentFailed   = "payment_failed"
	EventPaymentReceived = "payment_received"
)

type Engine struct {
	repo     Repository
	gateway  Gateway
	notifier Notifier
}

func NewEngine(repo Repository, gateway Gateway, notifier Notifier) *Engine {
	return &Engine{repo: repo, gateway: gateway, notifier: notifier}
}

type CreateInput struct {
	Date          string `json:"date"`
	Time          string `json:"time"`
	Address       string `json:"address"`
	PhoneNumber   string `json:"phone_number"`
	PaymentMethod string `json:"payment_method"`
}

// PaymentOutcome is the result of InitiatePayment. Request is set only when
// the customer must be sent to the gateway.
type PaymentOutcome struct {
	Booking *models.Booking
	Request *esewa.PaymentRequest
}

func (e *Engine) CreateBooking(ctx context.Context, actor *models.User, serviceID uint, in CreateInput) (*models.Booking, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	svc, err := e.findService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	errs := apperr.FieldErrors{}
	dateStr := strings.TrimSpace(in.Date)
	timeStr := strings.TrimSpace(in.Time)
	address := strings.TrimSpace(in.Address)
	phone := strings.TrimSpace(in.PhoneNumber)

	var date time.Time
	if dateStr == "" {
		errs.Add("date", "Please provide both date and time.")
	} else if date, err = time.Parse("2006-01-02", dateStr); err != nil {
		errs.Add("date", "date must be in YYYY-MM-DD format")
	}
	var clock time.Time
	if timeStr == "" {
		errs.Add("time", "Please provide both date and time.")
	} else if clock, err = parseClock(timeStr); err != nil {
		errs.Add("time", "time must be in HH:MM format")
	}
	if address == "" {
		errs.Add("address", "Please provide a service address.")
	}
	if phone == "" {
		errs.Add("phone_number", "Please provide your phone number.")
	} else if len(phone) > 15 {
		errs.Add("phone_number", "phone number must be at most 15 characters")
	}

	method := models.PaymentCash
	if m := strings.TrimSpace(in.PaymentMethod); m != "" {
		method = models.PaymentMethod(m)
		if !method.Valid() {
			errs.Add("payment_method", "payment method must be one of: Cash, Esewa, Khalti")
		}
	}
	if !errs.Empty() {
		return nil, apperr.Validation("invalid booking request", errs)
	}

	b := &models.Booking{
		CustomerID:      actor.ID,
		ServiceID:       svc.ID,
		Date:            datatypes.Date(date),
		Time:            datatypes.NewTime(clock.Hour(), clock.Minute(), clock.Second(), 0),
		Address:         address,
		PhoneNumber:     phone,
		Status:          models.BookingPending,
		PaymentMethod:   method,
		PaymentStatus:   models.PaymentPending,
		PaymentReceived: false,
	}
	if err := e.repo.CreateBooking(ctx, b); err != nil {
		return nil, apperr.Internal(err)
	}
	b.Service = svc
	return b, nil
}

// AdvanceStatus moves a booking along the provider transition table.
// Re-applying the current status is a no-op.
func (e *Engine) AdvanceStatus(ctx context.Context, actor *models.User, bookingID uint, newStatus models.BookingStatus) (*models.Booking, error) {
	b, err := e.loadForProvider(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == models.BookingNotAvailable {
		return nil, ErrBookingLocked
	}
	if !newStatus.Valid() {
		return nil, ErrInvalidStatus
	}
	if newStatus == b.Status {
		return b, nil
	}
	if !b.Status.CanAdvanceTo(newStatus) {
		return nil, ErrInvalidTransition
	}

	next := b.State()
	next.Status = newStatus
	if newStatus == models.BookingNotAvailable {
		next.PaymentStatus = models.PaymentCancelled
		next.PaymentReceived = false
	}
	if err := e.commit(ctx, b, next, EventStatusChanged); err != nil {
		return nil, err
	}
	return b, nil
}

// InitiatePayment settles Cash and Khalti immediately and signs a gateway
// request for Esewa without touching the booking.
func (e *Engine) InitiatePayment(ctx context.Context, actor *models.User, bookingID uint, baseURL string) (*PaymentOutcome, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	b, err := e.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != actor.ID {
		return nil, ErrNotCustomer
	}
	if b.PaymentStatus != models.PaymentPending && b.PaymentStatus != models.PaymentFailed {
		return nil, ErrPaymentUnavailable
	}

	if b.PaymentMethod.UsesGateway() {
		req, err := e.gateway.BuildPaymentRequest(b, baseURL)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		attempt := &models.PaymentAttempt{
			BookingID:       b.ID,
			TransactionUUID: req.TransactionUUID,
			TotalAmount:     req.TotalAmount,
			ProductCode:     req.ProductCode,
			Status:          models.AttemptInitiated,
		}
		if err := e.repo.CreatePaymentAttempt(ctx, attempt); err != nil {
			return nil, apperr.Internal(err)
		}
		return &PaymentOutcome{Booking: b, Request: req}, nil
	}

	next := b.State()
	next.PaymentStatus = models.PaymentPaid
	if err := e.commit(ctx, b, next, EventPaymentPaid); err != nil {
		return nil, err
	}
	return &PaymentOutcome{Booking: b}, nil
}

func (e *Engine) MarkPaymentReceived(ctx context.Context, actor *models.User, bookingID uint) (*models.Booking, error) {
	b, err := e.loadForProvider(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus != models.PaymentPaid {
		return nil, ErrPaymentNotPaid
	}

	next := b.State()
	next.PaymentStatus = models.PaymentReceived
	next.PaymentReceived = true
	if err := e.commit(ctx, b, next, EventPaymentReceived); err != nil {
		return nil, err
	}
	return b, nil
}

// ConfirmGatewayPayment handles the gateway redirect. A payload that does
// not decode or verify, or that does not match an attempt issued for this
// booking, is rejected and the booking is left alone.
func (e *Engine) ConfirmGatewayPayment(ctx context.Context, bookingID uint, data string) (*models.Booking, *esewa.CallbackResult, error) {
	res, err := e.gateway.VerifyCallback(data)
	if err != nil {
		log.Warn().Err(err).Uint("booking_id", bookingID).Msg("esewa callback rejected")
		return nil, nil, apperr.Wrap(apperr.KindGateway, ErrInvalidCallback.Message, err)
	}
	if err := e.matchAttempt(ctx, bookingID, res); err != nil {
		log.Warn().Err(err).Uint("booking_id", bookingID).Str("transaction_uuid", res.TransactionUUID).Msg("esewa callback rejected")
		return nil, nil, err
	}

	b, err := e.ApplyGatewayResult(ctx, bookingID, res.Complete)
	if err != nil {
		return nil, res, err
	}

	status := models.AttemptFailed
	if res.Complete {
		status = models.AttemptComplete
	}
	if err := e.repo.RecordAttemptResult(ctx, res.TransactionUUID, status, res.TransactionCode, datatypes.JSON(res.JSON)); err != nil {
		log.Error().Err(err).Str("transaction_uuid", res.TransactionUUID).Msg("record payment attempt")
	}
	return b, res, nil
}

// matchAttempt ties a callback to a gateway attempt this booking issued,
// for the amount that attempt was signed with.
func (e *Engine) matchAttempt(ctx context.Context, bookingID uint, res *esewa.CallbackResult) error {
	b, err := e.findBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if !b.PaymentMethod.UsesGateway() {
		return invalidCallback(errors.New("booking is not paid through the gateway"))
	}
	if res.TransactionUUID == "" {
		return invalidCallback(errors.New("missing transaction_uuid"))
	}

	a, err := e.repo.FindPaymentAttempt(ctx, res.TransactionUUID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invalidCallback(errors.New("unknown transaction"))
	}
	if err != nil {
		return apperr.Internal(err)
	}
	if a.BookingID != bookingID {
		return invalidCallback(fmt.Errorf("transaction belongs to booking %d", a.BookingID))
	}

	// a non-complete status may come back without an amount
	if res.TotalAmount == "" && !res.Complete {
		return nil
	}
	amount, ok := esewa.ParseAmount(res.TotalAmount)
	if !ok || amount != a.TotalAmount {
		return invalidCallback(fmt.Errorf("total_amount %q does not match %d", res.TotalAmount, a.TotalAmount))
	}
	return nil
}

func invalidCallback(cause error) error {
	return apperr.Wrap(apperr.KindGateway, ErrInvalidCallback.Message, cause)
}

// ApplyGatewayResult moves payment to Paid or Failed. Received and
// Cancelled are never left.
func (e *Engine) ApplyGatewayResult(ctx context.Context, bookingID uint, complete bool) (*models.Booking, error) {
	b, err := e.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus.IsClosed() {
		return nil, ErrPaymentClosed
	}

	target, event := models.PaymentFailed, EventPaymentFailed
	if complete {
		target, event = models.PaymentPaid, EventPaymentPaid
	}
	if b.PaymentStatus == target {
		return b, nil
	}

	next := b.State()
	next.PaymentStatus = target
	if err := e.commit(ctx, b, next, event); err != nil {
		return nil, err
	}
	return b, nil
}

// ForceStatus sets any status, bypassing ownership and the transition table.
// Payment fields are left as they are.
func (e *Engine) ForceStatus(ctx context.Context, admin *models.User, bookingID uint, status models.BookingStatus) (*models.Booking, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	b, err := e.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == status {
		return b, nil
	}

	next := b.State()
	next.Status = status
	if err := e.commit(ctx, b, next, EventStatusChanged); err != nil {
		return nil, err
	}
	return b, nil
}

func (e *Engine) Delete(ctx context.Context, admin *models.User, bookingID uint) error {
	if err := requireAdmin(admin); err != nil {
		return err
	}
	if _, err := e.findBooking(ctx, bookingID); err != nil {
		return err
	}
	if err := e.repo.DeleteBooking(ctx, bookingID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (e *Engine) ListForCustomer(ctx context.Context, actor *models.User) ([]models.Booking, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	list, err := e.repo.ListBookings(ctx, models.BookingFilter{CustomerID: actor.ID})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

type ProviderOverview struct {
	Bookings []models.Booking            `json:"bookings"`
	Stats    models.ProviderBookingStats `json:"stats"`
	Status   models.BookingStatus        `json:"status_filter"`
}

// ProviderOverview lists bookings on the actor's services. Stats always
// cover every booking; status only narrows the list.
func (e *Engine) ProviderOverview(ctx context.Context, actor *models.User, status models.BookingStatus) (*ProviderOverview, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	if !actor.IsProvider {
		return nil, ErrNotProvider
	}
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}

	stats, err := e.repo.ProviderBookingStats(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	list, err := e.repo.ListBookings(ctx, models.BookingFilter{ProviderID: actor.ID, Status: status})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &ProviderOverview{Bookings: list, Stats: stats, Status: status}, nil
}

// commit writes next with the version read alongside b. On success b
// reflects the stored row.
func (e *Engine) commit(ctx context.Context, b *models.Booking, next models.BookingState, event string) error {
	ok, err := e.repo.UpdateBookingState(ctx, b.ID, b.Version, next)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return ErrConcurrentUpdate
	}
	b.Apply(next)
	b.Version++

	log.Info().
		Uint("booking_id", b.ID).
		Str("status", string(b.Status)).
		Str("payment_status", string(b.PaymentStatus)).
		Str("event", event).
		Msg("booking updated")

	if e.notifier != nil {
		e.notifier.BookingUpdated(ctx, b, event)
	}
	return nil
}

func (e *Engine) loadForProvider(ctx context.Context, actor *models.User, bookingID uint) (*models.Booking, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	if !actor.IsProvider {
		return nil, ErrNotProvider
	}
	b, err := e.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Service == nil || !b.Service.OwnedBy(actor) {
		return nil, ErrNotOwner
	}
	return b, nil
}

func (e *Engine) findBooking(ctx context.Context, id uint) (*models.Booking, error) {
	b, err := e.repo.FindBooking(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return b, nil
}

func (e *Engine) findService(ctx context.Context, id uint) (*models.Service, error) {
	s, err := e.repo.FindService(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s, nil
}

func requireAdmin(u *models.User) error {
	if u == nil {
		return ErrNotAuthenticated
	}
	if !u.IsAdmin {
		return ErrNotAdmin
	}
	return nil
}

func parseClock(s string) (time.Time, error) {
	if t, err := time.Parse("15:04", s); err == nil {
		return t, nil
	}
	return time.Parse("15:04:05", s)
}
