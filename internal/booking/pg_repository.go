package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	var email *string

	err := row.Scan(
		&c.ID,
		&c.Name,
		&email,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	c.Email = email
	return &c, nil
}

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	var specialty *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&specialty,
		&p.SessionPriceCents,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}

	p.Specialty = specialty
	return &p, nil
}

const appointmentColumns = `id, client_id, provider_id, date, start_time, end_time, status,
		payment_amount_cents, payment_method, payment_proof_ref, client_notes, verified_by,
		created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.ClientID,
		&a.ProviderID,
		&a.Date,
		&a.Start,
		&a.End,
		&a.Status,
		&a.PaymentAmountCents,
		&a.PaymentMethod,
		&a.PaymentProofRef,
		&a.ClientNotes,
		&a.VerifiedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

// Interface methods

func (r *PgRepository) GetClientByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM clients
		WHERE id = $1
	`, id)
	return scanClient(row)
}

func (r *PgRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, session_price_cents, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) GetScheduleTemplate(ctx context.Context, providerID uuid.UUID) (*ScheduleTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, enabled, time_blocks, updated_at
		FROM schedule_days
		WHERE provider_id = $1
		ORDER BY weekday
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tpl := &ScheduleTemplate{
		ProviderID: providerID,
		Days:       make(map[time.Weekday]DayTemplate),
	}

	found := false
	for rows.Next() {
		var weekday int16
		var enabled bool
		var blocksJSON []byte
		var updatedAt time.Time

		if err := rows.Scan(&weekday, &enabled, &blocksJSON, &updatedAt); err != nil {
			return nil, err
		}

		var blocks []TimeBlock
		if len(blocksJSON) > 0 {
			if err := json.Unmarshal(blocksJSON, &blocks); err != nil {
				return nil, fmt.Errorf("decode time blocks for weekday %d: %w", weekday, err)
			}
		}

		tpl.Days[time.Weekday(weekday)] = DayTemplate{Enabled: enabled, Blocks: blocks}
		if updatedAt.After(tpl.UpdatedAt) {
			tpl.UpdatedAt = updatedAt
		}
		found = true
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrScheduleNotFound
	}

	return tpl, nil
}

func (r *PgRepository) UpsertScheduleTemplate(ctx context.Context, tpl *ScheduleTemplate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin schedule upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM schedule_days WHERE provider_id = $1
	`, tpl.ProviderID); err != nil {
		return fmt.Errorf("clear schedule days: %w", err)
	}

	for weekday, day := range tpl.Days {
		blocksJSON, err := json.Marshal(day.Blocks)
		if err != nil {
			return fmt.Errorf("encode time blocks for weekday %d: %w", weekday, err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO schedule_days (provider_id, weekday, enabled, time_blocks, updated_at)
			VALUES ($1, $2, $3, $4, now())
		`, tpl.ProviderID, int16(weekday), day.Enabled, blocksJSON); err != nil {
			return fmt.Errorf("insert schedule day: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE client_id = $1
		ORDER BY date DESC, start_time DESC
		LIMIT $2 OFFSET $3
	`, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListProviderAppointments(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
		  AND status <> 'cancelled'
		  AND date >= $2
		  AND date < $3
		ORDER BY date, start_time
	`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

// CreateAppointment re-validates the pending-payment quota and inserts in
// one transaction. An advisory lock on the client id serializes concurrent
// bookings by the same client so the quota count cannot be raced; the
// partial unique index on (provider_id, date, start_time) is the
// authoritative backstop for the slot itself.
func (r *PgRepository) CreateAppointment(ctx context.Context, appt NewAppointment, maxPending int) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		SELECT pg_advisory_xact_lock(hashtextextended($1, 0))
	`, appt.ClientID.String()); err != nil {
		return nil, fmt.Errorf("acquire client booking lock: %w", err)
	}

	var pending int
	err = tx.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE client_id = $1
		  AND status IN ('pending_payment', 'payment_uploaded')
	`, appt.ClientID).Scan(&pending)
	if err != nil {
		return nil, fmt.Errorf("count pending bookings: %w", err)
	}
	if pending >= maxPending {
		return nil, ErrQuotaExceeded
	}

	id := uuid.New()

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, client_id, provider_id, date, start_time, end_time, status,
			 payment_amount_cents, payment_method, client_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending_payment', $7, $8, $9, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, appt.ClientID, appt.ProviderID, appt.Date, appt.Start, appt.End,
		appt.PaymentAmountCents, appt.PaymentMethod, appt.ClientNotes)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateBooking
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateBooking
		}
		return nil, fmt.Errorf("commit booking: %w", err)
	}

	return created, nil
}

func (r *PgRepository) CountPaymentIncomplete(ctx context.Context, clientID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE client_id = $1
		  AND status IN ('pending_payment', 'payment_uploaded')
	`, clientID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// HasConfirmedEngagement checks current status and, through the event
// log, appointments that reached confirmed before moving to a later
// terminal state.
func (r *PgRepository) HasConfirmedEngagement(ctx context.Context, clientID, providerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments a
			LEFT JOIN event_logs e
			  ON e.appointment_id = a.id AND e.event_type = 'APPOINTMENT_CONFIRMED'
			WHERE a.client_id = $1
			  AND a.provider_id = $2
			  AND (a.status IN ('confirmed', 'completed') OR e.id IS NOT NULL)
		)
	`, clientID, providerID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, set StatusUpdate) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    payment_proof_ref = COALESCE($4, payment_proof_ref),
		    verified_by = COALESCE($5, verified_by),
		    client_notes = COALESCE($6, client_notes),
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from, set.PaymentProofRef, set.VerifiedBy, set.ClientNotes)

	return scanAppointment(row)
}

func (r *PgRepository) FindStalePendingPayment(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'pending_payment'
		  AND created_at < $1
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
