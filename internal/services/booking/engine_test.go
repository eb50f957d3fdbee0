package booking_test

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/platform_jasa/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/models"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/repository/repositorytest"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/booking"
	"github.com/Windi-Fikriyansyah/platform_jasa/internal/services/esewa"
)

type recordedEvent struct {
	BookingID uint
	Event     string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *fakeNotifier) BookingUpdated(_ context.Context, b *models.Booking, event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{b.ID, event})
}

type fixture struct {
	ctx      context.Context
	store    *repositorytest.Store
	engine   *booking.Engine
	notifier *fakeNotifier
	gateway  *esewa.EsewaService

	customer *models.User
	provider *models.User
	stranger *models.User
	admin    *models.User
	service  *models.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repositorytest.New()
	gw := &esewa.EsewaService{
		SecretKey:        "8gBm/:&EnhH.1/q",
		ProductCode:      "EPAYTEST",
		FormURL:          "https://rc-epay.esewa.com.np/api/epay/main/v2/form",
		NewTransactionID: uuid.NewString,
	}
	n := &fakeNotifier{}
	f := &fixture{
		ctx:      ctx,
		store:    store,
		engine:   booking.NewEngine(store, gw, n),
		notifier: n,
		gateway:  gw,
		customer: &models.User{Username: "ram", Email: "ram@example.com", IsCustomer: true},
		provider: &models.User{Username: "hari", Email: "hari@example.com", IsProvider: true},
		stranger: &models.User{Username: "shyam", Email: "shyam@example.com", IsProvider: true},
		admin:    &models.User{Username: "admin", Email: "admin@example.com", IsAdmin: true},
	}
	for _, u := range []*models.User{f.customer, f.provider, f.stranger, f.admin} {
		require.NoError(t, store.CreateUser(ctx, u))
	}
	f.service = &models.Service{Name: "Leak repair", Category: models.CategoryPlumbing, Price: 1000, ProviderID: f.provider.ID, IsAvailable: true}
	require.NoError(t, store.CreateService(ctx, f.service))
	return f
}

func (f *fixture) book(t *testing.T, method models.PaymentMethod) *models.Booking {
	t.Helper()
	b, err := f.engine.CreateBooking(f.ctx, f.customer, f.service.ID, booking.CreateInput{
		Date:          "2025-03-14",
		Time:          "10:30",
		Address:       "Baneshwor, Kathmandu",
		PhoneNumber:   "9800000000",
		PaymentMethod: string(method),
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) reload(t *testing.T, id uint) *models.Booking {
	t.Helper()
	b, err := f.store.FindBooking(f.ctx, id)
	require.NoError(t, err)
	return b
}

// pay starts a gateway attempt for b and returns its transaction id.
func (f *fixture) pay(t *testing.T, b *models.Booking) string {
	t.Helper()
	out, err := f.engine.InitiatePayment(f.ctx, f.customer, b.ID, "http://api")
	require.NoError(t, err)
	require.NotNil(t, out.Request)
	return out.Request.TransactionUUID
}

func callbackData(txn, status, amount string) string {
	return base64.StdEncoding.EncodeToString([]byte(`{"status":"` + status + `","transaction_uuid":"` + txn +
		`","total_amount":"` + amount + `","transaction_code":"000AB"}`))
}

func TestCreateBookingDefaults(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "")

	got := f.reload(t, b.ID)
	assert.Equal(t, models.BookingPending, got.Status)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
	assert.Equal(t, models.PaymentCash, got.PaymentMethod)
	assert.False(t, got.PaymentReceived)
	assert.Equal(t, f.customer.ID, got.CustomerID)
	assert.Empty(t, f.notifier.events)
}

func TestCreateBookingOnUnavailableService(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SetServiceAvailability(f.ctx, f.service.ID, false))
	b := f.book(t, models.PaymentEsewa)
	assert.Equal(t, models.BookingPending, b.Status)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateBooking(f.ctx, nil, f.service.ID, booking.CreateInput{})
	assert.ErrorIs(t, err, booking.ErrNotAuthenticated)

	_, err = f.engine.CreateBooking(f.ctx, f.customer, 999, booking.CreateInput{})
	assert.ErrorIs(t, err, booking.ErrServiceNotFound)

	_, err = f.engine.CreateBooking(f.ctx, f.customer, f.service.ID, booking.CreateInput{
		Date: "14/03/2025", Time: " ", Address: "", PhoneNumber: "98", PaymentMethod: "Card",
	})
	require.Error(t, err)
	ae := apperr.As(err)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Contains(t, ae.Fields, "date")
	assert.Contains(t, ae.Fields, "time")
	assert.Contains(t, ae.Fields, "address")
	assert.Contains(t, ae.Fields, "payment_method")
	assert.NotContains(t, ae.Fields, "phone_number")

	list, err := f.engine.ListForCustomer(f.ctx, f.customer)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAdvanceStatusTable(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, models.PaymentCash)

	got, err := f.engine.AdvanceStatus(f.ctx, f.provider, b.ID, models.BookingAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.BookingAccepted, got.Status)

	_, err = f.engine.AdvanceStatus(f.ctx, f.provider, b.ID, models.BookingPending)
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)

	got, err = f.engine.AdvanceStatus(f.ctx, f.provider, b.ID, models.BookingAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.BookingAccepted, got.Status)

	got, err = f.engine.AdvanceStatus(f.ctx, f.provider, b.ID, models.BookingCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, got.Status)

	_, err = f.engine.AdvanceStatus(f.ctx, f.provider, b.ID, models.BookingStatus("Done"))
	assert.ErrorIs(t, err, booking.ErrInvalidStatus)

	require.Len(t, f.notifier.events, 2)
	assert.Equal(t, booking.EventStatusChanged, f.notifier.events[0].Event)
}

func TestNotAvailableIsTerminal(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, models.PaymentCash)

	_, err := f.engine.InitiatePayment(f.ctx, f.customer, b.ID, "http://api")
	require.NoError(t, err)
	require.Equal(t, models.PaymentPaid, f.reload(t, b.ID).PaymentStatus)

	got, err := f.engine.AdvanceStatus(f.ctx, f.provider, b.ID, models.BookingNotAvailable)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCancelled, got.PaymentStatus)
	assert.False(t, got.PaymentReceived)

	for _, s := range models.BookingStatuses {
		_, err := f.engine.AdvanceStatus(f.ctx, f.provider, b.ID, s)
		assert.ErrorIs(t, err, booking.ErrBookingLocked, "to %s", s)
	}
	_, err = f.engine.MarkPaymentReceived(f.ctx, f.provider, b.ID)
	assert.ErrorIs(t, err, booking.ErrPaymentNotPaid)
	_, err = f.engine.InitiatePayment(f.ctx, f.customer, b.ID, "http://api")
	assert.ErrorIs(t, err, booking.ErrPaymentUnavailable)
	_, err = f.engine.ApplyGatewayResult(f.ctx, b.ID, true)
	assert.ErrorIs(t, err, booking.ErrPaymentClosed)

	final := f.reload(t, b.ID)
	assert.Equal(t, models.BookingNotAvailable, final.Status)
	assert.Equal(t, models.PaymentCancelled, final.PaymentStatus)
	assert.False(t, final.PaymentReceived)
}

func TestAdvanceStatusRejectsNonOwner(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, models.PaymentCash)
	before := f.reload(t, b.ID)

	_, err := f.engine.AdvanceStatus(f.ctx, f.stranger, b.ID, models.BookingAccepted)
	assert.ErrorIs(t, err, booking.ErrNotOwner)

	_, err = f.engine.AdvanceStatus(f.ctx, f.customer, b.ID, models.BookingAccepted)
	assert.ErrorIs(t, err, booking.ErrNotProvider)

	_, err = f.engine.AdvanceStatus(f.ctx, nil, b.ID, models.BookingAccepted)
	assert.ErrorIs(t, err, booking.ErrNotAuthenticated)

	after := f.reload(t, b.ID)
	assert.Equal(t, before.State(), after.State())
	assert.Equal(t, before.Version, after.Version)
}

func TestCashPaymentIsImmediate(t *testing.T) {
	for _, method := range []models.PaymentMethod{models.PaymentCash, models.PaymentKhalti} {
		f := newFixture(t)
		b := f.book(t, method)

		out, err := f.engine.InitiatePayment(f.ctx, f.customer, b.ID, "http://api")
		require.NoError(t, err)
		assert.Nil(t, out.Request, method)
		assert.Equal(t, models.PaymentPaid, f.reload(t, b.ID).PaymentStatus, method)
		assert.Empty(t, f.store.Attempts(b.ID), method)
	}
}

func TestInitiatePaymentRequiresCustomer(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, models.PaymentCash)

	_, err := f.engine.InitiatePayment(f.ctx, f.provider, b.ID, "http://api")
	assert.ErrorIs(t, err, booking.ErrNotCustomer)
	assert.Equal(t, models.PaymentPending, f.reload(t, b.ID).PaymentStatus)

	_, err = f.engine.InitiatePayment(f.ctx, f.customer, 404, "http://api")
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
}

func TestMarkPaymentReceivedRequiresPaid(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, models.PaymentCash)

	_, err := f.engine.MarkPaymentReceived(f.ctx, f.provider, b.ID)
	assert.ErrorIs(t, err, booking.ErrPaymentNotPaid)
	assert.Equal(t, models.PaymentPending, f.reload(t, b.ID).PaymentStatus)

	_, err = f.engine.InitiatePayment(f.ctx, f.customer, b.ID, "http://api")
	require.NoError(t, err)

	_, err = f.engine.MarkPaymentReceived(f.ctx, f.stranger, b.ID)
	assert.ErrorIs(t, err, booking.ErrNotOwner)

	got, err := f.engine.MarkPaymentReceived(f.ctx, f.provider, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentReceived, got.PaymentStatus)
	assert.True(t, got.PaymentReceived)

	_, err = f.engine.MarkPaymentReceived(f.ctx, f.provider, b.ID)
	assert.ErrorIs(t, err, booking.ErrPaymentNotPaid)
	_, err = f.engine.ApplyGatewayResult(f.ctx, b.ID, false)
	assert.ErrorIs(t, err, booking.ErrPaymentClosed)
	assert.Equal(t, models.PaymentReceived, f.reload(t, b.ID).PaymentStatus)
}

func TestEsewaInitiateDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, models.PaymentEsewa)

	first, err := f.engine.InitiatePayment(f.ctx, f.customer, b.ID, "http://api")
	require.NoError(t, err)
	require.NotNil(t, first.Request)
	second, err := f.engine.InitiatePayment(f.ctx, f.customer, b.ID, "http://api")
	require.NoError(t, err)

	assert.NotEqual(t, first.Request.TransactionUUID, second.Request.TransactionUUID)
	assert.Equal(t, int64(1000), first.Request.TotalAmount)
	assert.Equal(t, models.PaymentPending, f.reload(t, b.ID).PaymentStatus)
	assert.Len(t, f.store.Attempts(b.ID), 2)
	assert.Empty(t, f.notifier.events)
}

func TestGatewayCallback(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, models.PaymentEsewa)
	txn := f.pay(t, b)

	got, res, err := f.engine.ConfirmGatewayPayment(f.ctx, b.ID, callbackData(txn, "failed", "1000.0"))
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Equal(t, models.PaymentFailed, got.PaymentStatus)

	got, res, err = f.engine.ConfirmGatewayPayment(f.ctx, b.ID, callbackData(txn, "COMPLETE", "1,000.0"))
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)

	got, _, err = f.engine.ConfirmGatewayPayment(f.ctx, b.ID, callbackData(txn, "Complete", "1000"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
}

func TestGatewayCallbackBoundToAttempt(t *testing.T) {
	f := newFixture(t)
	paid := f.book(t, models.PaymentEsewa)
	txn := f.pay(t, paid)
	cash := f.book(t, models.PaymentCash)
	other := f.book(t, models.PaymentEsewa)
	f.pay(t, other)

	unknown := uuid.NewString()
	cases := []struct {
		name      string
		bookingID uint
		data      string
	}{
		{"replayed on cash booking", cash.ID, callbackData(txn, "COMPLETE", "1000.0")},
		{"replayed on another gateway booking", other.ID, callbackData(txn, "COMPLETE", "1000.0")},
		{"unknown transaction", paid.ID, callbackData(unknown, "COMPLETE", "1000.0")},
		{"missing transaction", paid.ID, callbackData("", "COMPLETE", "1000.0")},
		{"amount differs", paid.ID, callbackData(txn, "COMPLETE", "10.0")},
		{"amount missing", paid.ID, callbackData(txn, "COMPLETE", "")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := f.reload(t, tc.bookingID)
			_, _, err := f.engine.ConfirmGatewayPayment(f.ctx, tc.bookingID, tc.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, booking.ErrInvalidCallback)
			assert.Equal(t, apperr.KindGateway, apperr.KindOf(err))

			after := f.reload(t, tc.bookingID)
			assert.Equal(t, before.State(), after.State())
			assert.Equal(t, before.Version, after.Version)
		})
	}
	assert.Empty(t, f.notifier.events)
	for _, a := range f.store.Attempts(paid.ID) {
		assert.Equal(t, models.AttemptInitiated, a.Status)
	}

	got, _, err := f.engine.ConfirmGatewayPayment(f.ctx, paid.ID, callbackData(txn, "COMPLETE", "1000.0"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, models.PaymentPending, f.reload(t, cash.ID).PaymentStatus)
	assert.Equal(t, models.PaymentPending, f.reload(t, other.ID).PaymentStatus)
}

func TestGatewayCallbackMalformedLeavesBooking(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, models.PaymentEsewa)
	before := f.reload(t, b.ID)

	for _, data := range []string{"%%%", base64.StdEncoding.EncodeToString([]byte("<html>"))} {
		_, _, err := f.engine.ConfirmGatewayPayment(f.ctx, b.ID, data)
		require.Error(t, err)
		assert.ErrorIs(t, err, booking.ErrInvalidCallback)
		assert.ErrorIs(t, err, esewa.ErrInvalidPayload)
		assert.Equal(t, apperr.KindGateway, apperr.KindOf(err))
	}
	after := f.reload(t, b.ID)
	assert.Equal(t, before.State(), after.State())
	assert.Equal(t, before.Version, after.Version)
}

func TestGatewayCallbackRecordsAttempt(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, models.PaymentEsewa)
	txn := f.pay(t, b)

	payload := `{"status":"COMPLETE","transaction_uuid":"` + txn + `","total_amount":"1000.0","transaction_code":"0007XYZ"}`
	_, _, err := f.engine.ConfirmGatewayPayment(f.ctx, b.ID, base64.StdEncoding.EncodeToString([]byte(payload)))
	require.NoError(t, err)

	attempts := f.store.Attempts(b.ID)
	require.Len(t, attempts, 1)
	assert.Equal(t, models.AttemptComplete, attempts[0].Status)
	assert.Equal(t, "0007XYZ", attempts[0].RefID)
	assert.JSONEq(t, payload, string(attempts[0].CallbackPayload))
}

func TestConcurrentUpdateIsRejected(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, models.PaymentCash)

	f.store.BeforeUpdate = func(id uint) {
		f.store.BeforeUpdate = nil
		f.store.SetBookingState(id, models.BookingState{
			Status:        models.BookingNotAvailable,
			PaymentStatus: models.PaymentCancelled,
		})
	}

	_, err := f.engine.InitiatePayment(f.ctx, f.customer, b.ID, "http://api")
	assert.ErrorIs(t, err, booking.ErrConcurrentUpdate)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	got := f.reload(t, b.ID)
	assert.Equal(t, models.BookingNotAvailable, got.Status)
	assert.Equal(t, models.PaymentCancelled, got.PaymentStatus)
}

func TestAdminEscapeHatch(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, models.PaymentCash)
	_, err := f.engine.AdvanceStatus(f.ctx, f.provider, b.ID, models.BookingNotAvailable)
	require.NoError(t, err)

	_, err = f.engine.ForceStatus(f.ctx, f.provider, b.ID, models.BookingPending)
	assert.ErrorIs(t, err, booking.ErrNotAdmin)

	got, err := f.engine.ForceStatus(f.ctx, f.admin, b.ID, models.BookingPending)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, got.Status)
	assert.Equal(t, models.PaymentCancelled, got.PaymentStatus)

	_, err = f.engine.ForceStatus(f.ctx, f.admin, b.ID, models.BookingStatus("Lost"))
	assert.ErrorIs(t, err, booking.ErrInvalidStatus)

	assert.ErrorIs(t, f.engine.Delete(f.ctx, f.customer, b.ID), booking.ErrNotAdmin)
	require.NoError(t, f.engine.Delete(f.ctx, f.admin, b.ID))
	assert.ErrorIs(t, f.engine.Delete(f.ctx, f.admin, b.ID), booking.ErrBookingNotFound)
}

func TestProviderOverview(t *testing.T) {
	f := newFixture(t)
	paid := f.book(t, models.PaymentCash)
	open := f.book(t, models.PaymentCash)
	f.book(t, models.PaymentEsewa)

	_, err := f.engine.AdvanceStatus(f.ctx, f.provider, paid.ID, models.BookingCompleted)
	require.NoError(t, err)
	_, err = f.engine.InitiatePayment(f.ctx, f.customer, paid.ID, "http://api")
	require.NoError(t, err)
	_, err = f.engine.MarkPaymentReceived(f.ctx, f.provider, paid.ID)
	require.NoError(t, err)
	_, err = f.engine.AdvanceStatus(f.ctx, f.provider, open.ID, models.BookingCompleted)
	require.NoError(t, err)

	ov, err := f.engine.ProviderOverview(f.ctx, f.provider, "")
	require.NoError(t, err)
	assert.Len(t, ov.Bookings, 3)
	assert.Equal(t, int64(3), ov.Stats.Total)
	assert.Equal(t, int64(1), ov.Stats.Pending)
	assert.Equal(t, int64(2), ov.Stats.Completed)
	assert.Equal(t, int64(1000), ov.Stats.Earnings)
	assert.Equal(t, int64(2000), ov.Stats.CompletedValue)
	assert.Equal(t, int64(1), ov.Stats.Paid)
	assert.Equal(t, int64(1), ov.Stats.Unpaid)

	ov, err = f.engine.ProviderOverview(f.ctx, f.provider, models.BookingCompleted)
	require.NoError(t, err)
	assert.Len(t, ov.Bookings, 2)
	assert.Equal(t, int64(3), ov.Stats.Total)

	ov, err = f.engine.ProviderOverview(f.ctx, f.stranger, "")
	require.NoError(t, err)
	assert.Empty(t, ov.Bookings)

	_, err = f.engine.ProviderOverview(f.ctx, f.customer, "")
	assert.ErrorIs(t, err, booking.ErrNotProvider)
}
