package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPendingPayment  AppointmentStatus = "pending_payment"
	StatusPaymentUploaded AppointmentStatus = "payment_uploaded"
	StatusPaymentVerified AppointmentStatus = "payment_verified"
	StatusConfirmed       AppointmentStatus = "confirmed"
	StatusCompleted       AppointmentStatus = "completed"
	StatusCancelled       AppointmentStatus = "cancelled"
	StatusNoShow          AppointmentStatus = "no_show"
)

type ActorRole string

const (
	RoleClient   ActorRole = "client"
	RoleProvider ActorRole = "provider"
	RoleAdmin    ActorRole = "admin"
)

type Client struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Provider struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	// Current price of one session, in cents. Copied onto the
	// appointment at booking time.
	SessionPriceCents int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TimeBlock is a contiguous enabled interval within one weekday of a
// provider's recurring schedule. Times of day are "HH:MM" 24h strings.
type TimeBlock struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type DayTemplate struct {
	Enabled bool        `json:"enabled"`
	Blocks  []TimeBlock `json:"time_blocks"`
}

// ScheduleTemplate is a provider's recurring weekly availability.
// Days absent from the map behave as disabled.
type ScheduleTemplate struct {
	ProviderID uuid.UUID
	Days       map[time.Weekday]DayTemplate
	UpdatedAt  time.Time
}

// Slot is a derived bookable interval. Never persisted; recomputed on
// demand from the template and the current appointment set.
type Slot struct {
	Date  time.Time // midnight, date component only
	Start string    // "HH:MM"
	End   string    // "HH:MM"
}

type SlotTime struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DayAvailability groups a date's free slots for the API. Dates with no
// free slots are never emitted.
type DayAvailability struct {
	Date  string     `json:"date"`
	Slots []SlotTime `json:"slots"`
}

type Appointment struct {
	ID                 uuid.UUID
	ClientID           uuid.UUID
	ProviderID         uuid.UUID
	Date               time.Time // midnight, date component only
	Start              string    // "HH:MM"
	End                string    // "HH:MM"
	Status             AppointmentStatus
	PaymentAmountCents int64
	PaymentMethod      string
	PaymentProofRef    *string
	ClientNotes        string
	VerifiedBy         *uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
