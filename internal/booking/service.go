package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/calmline/therapy-booking/internal/config"
	redisclient "github.com/calmline/therapy-booking/internal/redis"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventPaymentUploaded      = "PAYMENT_UPLOADED"
	EventPaymentVerified      = "PAYMENT_VERIFIED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentNoShow    = "APPOINTMENT_NO_SHOW"
	EventAppointmentExpired   = "APPOINTMENT_EXPIRED"
)

var (
	// ErrSlotUnavailable means the requested slot is not in the provider's
	// current availability. Recoverable by re-fetching availability.
	ErrSlotUnavailable = errors.New("slot is not available")

	ErrBookingInProgress    = errors.New("slot is currently being booked, please retry")
	ErrTransitionInProgress = errors.New("appointment update already in flight, please retry")
	ErrInvalidTemplate      = errors.New("invalid schedule template")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
	}
}

// AvailableSlots expands the provider's weekly template over the next
// `days` days and prunes slots that conflict with existing appointments
// or have already started today. A provider without a published template
// simply has no availability.
func (s *Service) AvailableSlots(ctx context.Context, providerID uuid.UUID, days int) ([]DayAvailability, error) {
	if days <= 0 || days > s.cfg.LookaheadDays {
		days = s.cfg.LookaheadDays
	}

	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	tpl, err := s.repo.GetScheduleTemplate(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrScheduleNotFound) {
			return []DayAvailability{}, nil
		}
		return nil, fmt.Errorf("load schedule template: %w", err)
	}

	now := time.Now()
	today := dateOf(now)

	candidates := ExpandTemplate(tpl, today, days, s.cfg.SessionLength, s.cfg.MinTailLength)

	booked, err := s.repo.ListProviderAppointments(ctx, providerID, today, today.AddDate(0, 0, days))
	if err != nil {
		return nil, fmt.Errorf("load provider appointments: %w", err)
	}

	free := ResolveConflicts(candidates, booked, now)
	return GroupByDate(free), nil
}

type CreateAppointmentParams struct {
	ClientID      uuid.UUID
	ProviderID    uuid.UUID
	Date          time.Time
	Start         string
	End           string
	PaymentMethod string
	Notes         string
}

// CreateAppointment books a slot for a client. The requested slot is
// re-derived server-side rather than trusted from the caller, the
// pending-payment quota is re-validated at commit time, and the partial
// unique index makes one of two racing bookings lose with
// ErrDuplicateBooking.
func (s *Service) CreateAppointment(ctx context.Context, p CreateAppointmentParams) (*Appointment, error) {
	if _, err := s.repo.GetClientByID(ctx, p.ClientID); err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load client: %w", err)
	}

	provider, err := s.repo.GetProviderByID(ctx, p.ProviderID)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	if err := s.validateRequestedSlot(ctx, p); err != nil {
		return nil, err
	}

	// Advisory fast path; the authoritative count runs inside the booking
	// transaction.
	pending, err := s.repo.CountPaymentIncomplete(ctx, p.ClientID)
	if err != nil {
		return nil, fmt.Errorf("count pending bookings: %w", err)
	}
	if pending >= s.cfg.MaxPending {
		return nil, ErrQuotaExceeded
	}

	var created *Appointment

	lockKey := fmt.Sprintf("lock:booking:%s:%s:%s", p.ProviderID, p.Date.Format(dateLayout), p.Start)
	err = s.locker.WithLock(ctx, lockKey, func(lockCtx context.Context) error {
		appt, err := s.repo.CreateAppointment(lockCtx, NewAppointment{
			ClientID:           p.ClientID,
			ProviderID:         p.ProviderID,
			Date:               p.Date,
			Start:              p.Start,
			End:                p.End,
			PaymentAmountCents: provider.SessionPriceCents,
			PaymentMethod:      p.PaymentMethod,
			ClientNotes:        p.Notes,
		}, s.cfg.MaxPending)
		if err != nil {
			return err
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentCreated, map[string]any{
			"client_id":   p.ClientID.String(),
			"provider_id": p.ProviderID.String(),
			"date":        p.Date.Format(dateLayout),
			"start":       p.Start,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingInProgress
		}
		return nil, err
	}

	return created, nil
}

// validateRequestedSlot re-derives availability for the requested date and
// requires the slot to appear in it exactly.
func (s *Service) validateRequestedSlot(ctx context.Context, p CreateAppointmentParams) error {
	startMin, err := parseClock(p.Start)
	if err != nil {
		return ErrSlotUnavailable
	}
	endMin, err := parseClock(p.End)
	if err != nil || endMin <= startMin {
		return ErrSlotUnavailable
	}

	now := time.Now()
	today := dateOf(now)
	date := dateOf(p.Date)

	if date.Before(today) {
		return ErrSlotUnavailable
	}
	if date.After(today.AddDate(0, 0, s.cfg.LookaheadDays-1)) {
		return ErrSlotUnavailable
	}

	tpl, err := s.repo.GetScheduleTemplate(ctx, p.ProviderID)
	if err != nil {
		if errors.Is(err, ErrScheduleNotFound) {
			return ErrSlotUnavailable
		}
		return fmt.Errorf("load schedule template: %w", err)
	}

	candidates := ExpandTemplate(tpl, date, 1, s.cfg.SessionLength, s.cfg.MinTailLength)

	booked, err := s.repo.ListProviderAppointments(ctx, p.ProviderID, date, date.AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("load provider appointments: %w", err)
	}

	for _, slot := range ResolveConflicts(candidates, booked, now) {
		if slot.Start == p.Start && slot.End == p.End {
			return nil
		}
	}

	return ErrSlotUnavailable
}

// UploadPaymentProof moves a pending appointment to payment_uploaded once
// the client has attached a proof-of-payment reference.
func (s *Service) UploadPaymentProof(ctx context.Context, id uuid.UUID, proofRef string) (*Appointment, error) {
	if proofRef == "" {
		return nil, ErrMissingProofRef
	}

	var updated *Appointment

	err := s.withAppointmentGuard(ctx, id, func(lockCtx context.Context) error {
		appt, err := s.repo.GetAppointmentByID(lockCtx, id)
		if err != nil {
			return err
		}

		if err := ValidateTransition(appt.Status, StatusPaymentUploaded); err != nil {
			return err
		}

		updated, err = s.repo.UpdateAppointmentStatus(lockCtx, id, StatusPendingPayment, StatusPaymentUploaded, StatusUpdate{
			PaymentProofRef: &proofRef,
		})
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				// Status moved between the read and the conditional update.
				return ErrInvalidStatusTransition
			}
			return fmt.Errorf("upload payment proof: %w", err)
		}

		s.logEvent(lockCtx, id, EventPaymentUploaded, map[string]any{
			"proof_ref": proofRef,
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// UpdatePaymentStatus drives the guarded payment state machine. The actor
// role is passed explicitly; the first-engagement fact is re-derived from
// persisted history on every provider verification, never trusted from
// the caller.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, target AppointmentStatus, actor ActorRole, actorID uuid.UUID, notes string) (*Appointment, error) {
	switch target {
	case StatusPaymentVerified, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
	default:
		return nil, ErrInvalidStatusTransition
	}

	if err := ValidateActor(actor, target); err != nil {
		return nil, err
	}

	var updated *Appointment

	err := s.withAppointmentGuard(ctx, id, func(lockCtx context.Context) error {
		appt, err := s.repo.GetAppointmentByID(lockCtx, id)
		if err != nil {
			return err
		}

		if err := ValidateTransition(appt.Status, target); err != nil {
			return err
		}

		set := StatusUpdate{}
		if notes != "" {
			set.ClientNotes = &notes
		}

		if target == StatusPaymentVerified {
			if actor == RoleProvider {
				engaged, err := s.repo.HasConfirmedEngagement(lockCtx, appt.ClientID, appt.ProviderID)
				if err != nil {
					return fmt.Errorf("check first engagement: %w", err)
				}
				if !engaged {
					return ErrUnauthorizedVerification
				}
			}
			verifier := actorID
			set.VerifiedBy = &verifier
		}

		updated, err = s.repo.UpdateAppointmentStatus(lockCtx, id, appt.Status, target, set)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				// Lost a race with another transition; stale state.
				return ErrInvalidStatusTransition
			}
			return fmt.Errorf("update payment status: %w", err)
		}

		s.logEvent(lockCtx, id, eventForStatus(target), map[string]any{
			"actor_role": string(actor),
			"actor_id":   actorID.String(),
			"from":       string(appt.Status),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Cancel is the explicit escape hatch out of any non-terminal state.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor ActorRole, actorID uuid.UUID, reason string) (*Appointment, error) {
	return s.UpdatePaymentStatus(ctx, id, StatusCancelled, actor, actorID, reason)
}

func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID, actor ActorRole, actorID uuid.UUID) (*Appointment, error) {
	return s.UpdatePaymentStatus(ctx, id, StatusNoShow, actor, actorID, "")
}

// IsFirstAppointment reports whether no appointment between the pair has
// ever reached confirmed.
func (s *Service) IsFirstAppointment(ctx context.Context, clientID, providerID uuid.UUID) (bool, error) {
	engaged, err := s.repo.HasConfirmedEngagement(ctx, clientID, providerID)
	if err != nil {
		return false, fmt.Errorf("check first engagement: %w", err)
	}
	return !engaged, nil
}

func (s *Service) PendingPaymentCount(ctx context.Context, clientID uuid.UUID) (int, error) {
	count, err := s.repo.CountPaymentIncomplete(ctx, clientID)
	if err != nil {
		return 0, fmt.Errorf("count pending bookings: %w", err)
	}
	return count, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) ListAppointmentsByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appointments, err := s.repo.ListAppointmentsByClient(ctx, clientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by client: %w", err)
	}
	return appointments, nil
}

func (s *Service) GetScheduleTemplate(ctx context.Context, providerID uuid.UUID) (*ScheduleTemplate, error) {
	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		return nil, err
	}
	return s.repo.GetScheduleTemplate(ctx, providerID)
}

func (s *Service) PutScheduleTemplate(ctx context.Context, tpl *ScheduleTemplate) error {
	if _, err := s.repo.GetProviderByID(ctx, tpl.ProviderID); err != nil {
		return err
	}
	if err := validateTemplate(tpl); err != nil {
		return err
	}
	return s.repo.UpsertScheduleTemplate(ctx, tpl)
}

func validateTemplate(tpl *ScheduleTemplate) error {
	for weekday, day := range tpl.Days {
		blocks := sortedBlocks(day.Blocks)
		prevEnd := -1
		for _, b := range blocks {
			start, err := parseClock(b.Start)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, weekday, err)
			}
			end, err := parseClock(b.End)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, weekday, err)
			}
			if end <= start {
				return fmt.Errorf("%w: %s: block %s-%s is empty or inverted", ErrInvalidTemplate, weekday, b.Start, b.End)
			}
			if start < prevEnd {
				return fmt.Errorf("%w: %s: block %s-%s overlaps the previous block", ErrInvalidTemplate, weekday, b.Start, b.End)
			}
			prevEnd = end
		}
	}
	return nil
}

// ExpireStalePendingPayments is intended to be called by the worker
// periodically. Bookings left unpaid past the TTL are cancelled, freeing
// the slot and the client's quota.
func (s *Service) ExpireStalePendingPayments(ctx context.Context) error {
	cutoff := time.Now().Add(-s.cfg.PendingTTL)
	stale, err := s.repo.FindStalePendingPayment(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find stale pending bookings: %w", err)
	}

	for _, appt := range stale {
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusPendingPayment, StatusCancelled, StatusUpdate{})
		if err != nil {
			// The booking transitioned between the scan and the
			// conditional update; it was not expired, so no event.
			if !errors.Is(err, ErrAppointmentNotFound) {
				log.Printf("failed to expire appointment %s: %v", appt.ID, err)
			}
			continue
		}
		s.logEvent(ctx, appt.ID, EventAppointmentExpired, map[string]any{
			"reason": "unpaid_past_ttl",
		})
	}

	return nil
}

// withAppointmentGuard serializes transitions per appointment so a
// duplicate in-flight request cannot double-apply. The lock is released
// on both success and failure paths.
func (s *Service) withAppointmentGuard(ctx context.Context, id uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:appointment:%s", id)
	err := s.locker.WithLock(ctx, key, fn)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrTransitionInProgress
	}
	return err
}

func eventForStatus(status AppointmentStatus) string {
	switch status {
	case StatusPaymentVerified:
		return EventPaymentVerified
	case StatusConfirmed:
		return EventAppointmentConfirmed
	case StatusCompleted:
		return EventAppointmentCompleted
	case StatusCancelled:
		return EventAppointmentCancelled
	case StatusNoShow:
		return EventAppointmentNoShow
	default:
		return "APPOINTMENT_STATUS_CHANGED"
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appointmentID, err)
	}
}
