package booking

import "errors"

var (
	ErrInvalidStatusTransition  = errors.New("invalid status transition")
	ErrUnauthorizedVerification = errors.New("provider may not verify a first engagement, admin verification required")
	ErrActorNotAllowed          = errors.New("actor role not allowed to perform this transition")
	ErrMissingProofRef          = errors.New("payment proof reference is required")
)

// forwardStep is the linear payment lifecycle. Terminal escapes
// (cancelled, no_show) are handled separately in ValidateTransition.
var forwardStep = map[AppointmentStatus]AppointmentStatus{
	StatusPendingPayment:  StatusPaymentUploaded,
	StatusPaymentUploaded: StatusPaymentVerified,
	StatusPaymentVerified: StatusConfirmed,
	StatusConfirmed:       StatusCompleted,
}

func (s AppointmentStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// PaymentIncomplete reports whether the appointment still counts against
// the client's pending-payment quota.
func (s AppointmentStatus) PaymentIncomplete() bool {
	return s == StatusPendingPayment || s == StatusPaymentUploaded
}

// ValidateTransition checks the status graph only. Role and
// first-engagement guards are applied by the service on top of this.
func ValidateTransition(from, to AppointmentStatus) error {
	if from.Terminal() {
		return ErrInvalidStatusTransition
	}
	if to == StatusCancelled || to == StatusNoShow {
		return nil
	}
	if forwardStep[from] == to {
		return nil
	}
	return ErrInvalidStatusTransition
}

// ValidateActor checks which roles may request a given target status.
// The provider-side first-engagement guard for payment_verified is a
// separate check that needs persisted history, so it lives in the service.
func ValidateActor(actor ActorRole, to AppointmentStatus) error {
	switch to {
	case StatusPaymentUploaded:
		if actor != RoleClient {
			return ErrActorNotAllowed
		}
	case StatusPaymentVerified, StatusConfirmed, StatusCompleted, StatusNoShow:
		if actor != RoleProvider && actor != RoleAdmin {
			return ErrActorNotAllowed
		}
	case StatusCancelled:
		// any authenticated role may cancel
	default:
		return ErrInvalidStatusTransition
	}
	return nil
}
