package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/calmline/therapy-booking/internal/booking"
)

type CreateAppointmentRequest struct {
	ClientID      string `json:"client_id"`
	ProviderID    string `json:"provider_id"`
	Date          string `json:"date"`  // YYYY-MM-DD
	Start         string `json:"start"` // HH:MM
	End           string `json:"end"`   // HH:MM
	PaymentMethod string `json:"payment_method"`
	Notes         string `json:"notes,omitempty"`
}

type UploadPaymentProofRequest struct {
	ProofRef string `json:"proof_ref"`
}

type UpdatePaymentStatusRequest struct {
	Status    string `json:"status"`
	ActorRole string `json:"actor_role"`
	ActorID   string `json:"actor_id"`
	Notes     string `json:"notes,omitempty"`
}

type CancelAppointmentRequest struct {
	ActorRole string `json:"actor_role"`
	ActorID   string `json:"actor_id"`
	Reason    string `json:"reason,omitempty"`
}

type ScheduleDayPayload struct {
	Enabled bool                `json:"enabled"`
	Blocks  []booking.TimeBlock `json:"time_blocks"`
}

// ScheduleTemplatePayload keys days by lowercase weekday name
// ("monday" ... "sunday"). Absent days are disabled.
type ScheduleTemplatePayload struct {
	Days map[string]ScheduleDayPayload `json:"days"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	ClientID           uuid.UUID  `json:"client_id"`
	ProviderID         uuid.UUID  `json:"provider_id"`
	Date               string     `json:"date"`
	Start              string     `json:"start"`
	End                string     `json:"end"`
	Status             string     `json:"status"`
	PaymentAmountCents int64      `json:"payment_amount_cents"`
	PaymentMethod      string     `json:"payment_method,omitempty"`
	PaymentProofRef    *string    `json:"payment_proof_ref,omitempty"`
	ClientNotes        string     `json:"client_notes,omitempty"`
	VerifiedBy         *uuid.UUID `json:"verified_by,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type AvailabilityResponse struct {
	ProviderID uuid.UUID                 `json:"provider_id"`
	Days       []booking.DayAvailability `json:"days"`
}

type FirstAppointmentResponse struct {
	FirstAppointment bool `json:"first_appointment"`
}

type PendingCountResponse struct {
	Count int `json:"count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		ClientID:           a.ClientID,
		ProviderID:         a.ProviderID,
		Date:               a.Date.Format("2006-01-02"),
		Start:              a.Start,
		End:                a.End,
		Status:             string(a.Status),
		PaymentAmountCents: a.PaymentAmountCents,
		PaymentMethod:      a.PaymentMethod,
		PaymentProofRef:    a.PaymentProofRef,
		ClientNotes:        a.ClientNotes,
		VerifiedBy:         a.VerifiedBy,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}
