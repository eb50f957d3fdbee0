package booking

import "github.com/Windi-Fikriyansyah/platform_jasa/internal/apperr"

var (
	ErrNotAuthenticated = apperr.New(apperr.KindUnauthorized, "login required")
	ErrServiceNotFound  = apperr.New(apperr.KindNotFound, "service not found")
	ErrBookingNotFound  = apperr.New(apperr.KindNotFound, "booking not found")

	ErrNotProvider = apperr.New(apperr.KindForbidden, "you must be a service provider")
	ErrNotOwner    = apperr.New(apperr.KindForbidden, "you do not have permission to update this booking")
	ErrNotCustomer = apperr.New(apperr.KindForbidden, "you do not have permission to access this booking")
	ErrNotAdmin    = apperr.New(apperr.KindForbidden, "administrator access required")

	ErrInvalidStatus = apperr.New(apperr.KindValidation, "invalid status selected")

	ErrBookingLocked      = apperr.New(apperr.KindConflict, "status updates are disabled for bookings marked as Not Available")
	ErrInvalidTransition  = apperr.New(apperr.KindConflict, "booking cannot move to the requested status")
	ErrPaymentNotPaid     = apperr.New(apperr.KindConflict, "customer must mark payment as Paid before it can be marked as received")
	ErrPaymentClosed      = apperr.New(apperr.KindConflict, "payment for this booking can no longer be changed")
	ErrPaymentUnavailable = apperr.New(apperr.KindConflict, "payment cannot be initiated for this booking")
	ErrConcurrentUpdate   = apperr.New(apperr.KindConflict, "booking was modified by another request, reload and try again")

	ErrInvalidCallback = apperr.New(apperr.KindGateway, "invalid payment callback")
)
