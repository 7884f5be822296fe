package booking

import (
	"errors"
	"testing"
)

var allStatuses = []AppointmentStatus{
	StatusPendingPayment,
	StatusPaymentUploaded,
	StatusPaymentVerified,
	StatusConfirmed,
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
}

func TestValidateTransition_ForwardChain(t *testing.T) {
	chain := []AppointmentStatus{
		StatusPendingPayment,
		StatusPaymentUploaded,
		StatusPaymentVerified,
		StatusConfirmed,
		StatusCompleted,
	}

	for i := 0; i < len(chain)-1; i++ {
		if err := ValidateTransition(chain[i], chain[i+1]); err != nil {
			t.Fatalf("%s -> %s should be allowed, got %v", chain[i], chain[i+1], err)
		}
	}
}

// Every pair outside the table must fail, including skips ahead and any
// move out of a terminal state.
func TestValidateTransition_GraphClosure(t *testing.T) {
	allowed := map[[2]AppointmentStatus]bool{
		{StatusPendingPayment, StatusPaymentUploaded}:  true,
		{StatusPaymentUploaded, StatusPaymentVerified}: true,
		{StatusPaymentVerified, StatusConfirmed}:       true,
		{StatusConfirmed, StatusCompleted}:             true,
	}
	for _, from := range allStatuses {
		if from.Terminal() {
			continue
		}
		allowed[[2]AppointmentStatus{from, StatusCancelled}] = true
		allowed[[2]AppointmentStatus{from, StatusNoShow}] = true
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			err := ValidateTransition(from, to)
			if allowed[[2]AppointmentStatus{from, to}] {
				if err != nil {
					t.Errorf("%s -> %s should be allowed, got %v", from, to, err)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidStatusTransition) {
				t.Errorf("%s -> %s should be rejected, got %v", from, to, err)
			}
		}
	}
}

func TestValidateTransition_SkipAheadRejected(t *testing.T) {
	if err := ValidateTransition(StatusPendingPayment, StatusConfirmed); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("pending_payment -> confirmed must be rejected, got %v", err)
	}
}

func TestValidateTransition_OutOfCancelledRejected(t *testing.T) {
	for _, to := range allStatuses {
		if err := ValidateTransition(StatusCancelled, to); !errors.Is(err, ErrInvalidStatusTransition) {
			t.Fatalf("cancelled -> %s must be rejected, got %v", to, err)
		}
	}
}

func TestTerminal(t *testing.T) {
	terminal := map[AppointmentStatus]bool{
		StatusCompleted: true,
		StatusCancelled: true,
		StatusNoShow:    true,
	}
	for _, s := range allStatuses {
		if s.Terminal() != terminal[s] {
			t.Errorf("Terminal(%s) = %v, want %v", s, s.Terminal(), terminal[s])
		}
	}
}

func TestPaymentIncomplete(t *testing.T) {
	incomplete := map[AppointmentStatus]bool{
		StatusPendingPayment:  true,
		StatusPaymentUploaded: true,
	}
	for _, s := range allStatuses {
		if s.PaymentIncomplete() != incomplete[s] {
			t.Errorf("PaymentIncomplete(%s) = %v, want %v", s, s.PaymentIncomplete(), incomplete[s])
		}
	}
}

func TestValidateActor(t *testing.T) {
	cases := []struct {
		actor ActorRole
		to    AppointmentStatus
		ok    bool
	}{
		{RoleClient, StatusPaymentUploaded, true},
		{RoleProvider, StatusPaymentUploaded, false},
		{RoleAdmin, StatusPaymentUploaded, false},

		{RoleClient, StatusPaymentVerified, false},
		{RoleProvider, StatusPaymentVerified, true},
		{RoleAdmin, StatusPaymentVerified, true},

		{RoleClient, StatusConfirmed, false},
		{RoleProvider, StatusConfirmed, true},
		{RoleAdmin, StatusConfirmed, true},

		{RoleClient, StatusCompleted, false},
		{RoleProvider, StatusCompleted, true},

		{RoleClient, StatusNoShow, false},
		{RoleProvider, StatusNoShow, true},

		{RoleClient, StatusCancelled, true},
		{RoleProvider, StatusCancelled, true},
		{RoleAdmin, StatusCancelled, true},
	}

	for _, tc := range cases {
		err := ValidateActor(tc.actor, tc.to)
		if tc.ok && err != nil {
			t.Errorf("ValidateActor(%s, %s): expected allowed, got %v", tc.actor, tc.to, err)
		}
		if !tc.ok && !errors.Is(err, ErrActorNotAllowed) {
			t.Errorf("ValidateActor(%s, %s): expected ErrActorNotAllowed, got %v", tc.actor, tc.to, err)
		}
	}
}
