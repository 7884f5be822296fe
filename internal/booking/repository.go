package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClientNotFound      = errors.New("client not found")
	ErrProviderNotFound    = errors.New("provider not found")
	ErrScheduleNotFound    = errors.New("schedule template not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrDuplicateBooking is the commit-time loser of a booking race:
	// the partial unique index on (provider_id, date, start_time)
	// rejected the insert.
	ErrDuplicateBooking = errors.New("slot already booked")

	// ErrQuotaExceeded means the client already holds the maximum number
	// of payment-incomplete appointments.
	ErrQuotaExceeded = errors.New("pending payment quota exceeded")
)

// NewAppointment carries the validated inputs of a booking request into
// the repository.
type NewAppointment struct {
	ClientID           uuid.UUID
	ProviderID         uuid.UUID
	Date               time.Time
	Start              string
	End                string
	PaymentAmountCents int64
	PaymentMethod      string
	ClientNotes        string
}

// StatusUpdate holds the optional fields a transition stamps alongside
// the status itself. Nil fields are left untouched.
type StatusUpdate struct {
	PaymentProofRef *string
	VerifiedBy      *uuid.UUID
	ClientNotes     *string
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetClientByID(ctx context.Context, id uuid.UUID) (*Client, error)
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)

	// Schedule template store
	GetScheduleTemplate(ctx context.Context, providerID uuid.UUID) (*ScheduleTemplate, error)
	UpsertScheduleTemplate(ctx context.Context, tpl *ScheduleTemplate) error

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointmentsByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]Appointment, error)

	// Non-cancelled appointments for conflict checks, dates in [from, to)
	ListProviderAppointments(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// CreateAppointment atomically re-validates the pending-payment quota
	// and inserts. Returns ErrQuotaExceeded or ErrDuplicateBooking on the
	// respective commit-time failures.
	CreateAppointment(ctx context.Context, appt NewAppointment, maxPending int) (*Appointment, error)

	CountPaymentIncomplete(ctx context.Context, clientID uuid.UUID) (int, error)

	// HasConfirmedEngagement reports whether any appointment between the
	// pair has ever reached confirmed. Queried fresh per authorization
	// check; this is a trust boundary.
	HasConfirmedEngagement(ctx context.Context, clientID, providerID uuid.UUID) (bool, error)

	// UpdateAppointmentStatus applies a conditional transition: the row is
	// only updated if its status still equals from.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, set StatusUpdate) (*Appointment, error)

	// Expiry worker
	FindStalePendingPayment(ctx context.Context, cutoff time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
