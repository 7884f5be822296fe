package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calmline/therapy-booking/internal/booking"
)

const dateLayout = "2006-01-02"

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func availabilityHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID")
		if !ok {
			return
		}

		days := 0
		if v := r.URL.Query().Get("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_days", "days must be a positive integer")
				return
			}
			days = n
		}

		availability, err := svc.AvailableSlots(r.Context(), providerID, days)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			ProviderID: providerID,
			Days:       availability,
		})
	}
}

func getScheduleHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID")
		if !ok {
			return
		}

		tpl, err := svc.GetScheduleTemplate(r.Context(), providerID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		payload := ScheduleTemplatePayload{Days: make(map[string]ScheduleDayPayload)}
		for name, weekday := range weekdayNames {
			if day, ok := tpl.Days[weekday]; ok {
				payload.Days[name] = ScheduleDayPayload{Enabled: day.Enabled, Blocks: day.Blocks}
			}
		}

		writeJSON(w, http.StatusOK, payload)
	}
}

func putScheduleHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID")
		if !ok {
			return
		}

		var req ScheduleTemplatePayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		tpl := &booking.ScheduleTemplate{
			ProviderID: providerID,
			Days:       make(map[time.Weekday]booking.DayTemplate),
		}
		for name, day := range req.Days {
			weekday, ok := weekdayNames[strings.ToLower(name)]
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_weekday", "unknown weekday "+name)
				return
			}
			tpl.Days[weekday] = booking.DayTemplate{Enabled: day.Enabled, Blocks: day.Blocks}
		}

		if err := svc.PutScheduleTemplate(r.Context(), tpl); err != nil {
			handleServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func createAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_client_id", "client_id must be a valid UUID")
			return
		}

		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), booking.CreateAppointmentParams{
			ClientID:      clientID,
			ProviderID:    providerID,
			Date:          date,
			Start:         req.Start,
			End:           req.End,
			PaymentMethod: req.PaymentMethod,
			Notes:         req.Notes,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listClientAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, ok := parseUUIDParam(w, r, "clientID")
		if !ok {
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		appointments, err := svc.ListAppointmentsByClient(r.Context(), clientID, limit, offset)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		out := make([]AppointmentResponse, 0, len(appointments))
		for i := range appointments {
			out = append(out, toAppointmentResponse(&appointments[i]))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func uploadPaymentProofHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id")
		if !ok {
			return
		}

		var req UploadPaymentProofRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.UploadPaymentProof(r.Context(), id, req.ProofRef)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updatePaymentStatusHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id")
		if !ok {
			return
		}

		var req UpdatePaymentStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		actor, ok := parseActorRole(w, req.ActorRole)
		if !ok {
			return
		}

		actorID, err := uuid.Parse(req.ActorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
			return
		}

		appt, err := svc.UpdatePaymentStatus(r.Context(), id, booking.AppointmentStatus(req.Status), actor, actorID, req.Notes)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id")
		if !ok {
			return
		}

		var req CancelAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		actor, ok := parseActorRole(w, req.ActorRole)
		if !ok {
			return
		}

		actorID, err := uuid.Parse(req.ActorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
			return
		}

		appt, err := svc.Cancel(r.Context(), id, actor, actorID, req.Reason)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func noShowHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id")
		if !ok {
			return
		}

		var req CancelAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		actor, ok := parseActorRole(w, req.ActorRole)
		if !ok {
			return
		}

		actorID, err := uuid.Parse(req.ActorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
			return
		}

		appt, err := svc.MarkNoShow(r.Context(), id, actor, actorID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func firstAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, ok := parseUUIDParam(w, r, "clientID")
		if !ok {
			return
		}
		providerID, ok := parseUUIDParam(w, r, "providerID")
		if !ok {
			return
		}

		first, err := svc.IsFirstAppointment(r.Context(), clientID, providerID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, FirstAppointmentResponse{FirstAppointment: first})
	}
}

func pendingCountHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, ok := parseUUIDParam(w, r, "clientID")
		if !ok {
			return
		}

		count, err := svc.PendingPaymentCount(r.Context(), clientID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, PendingCountResponse{Count: count})
	}
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseActorRole(w http.ResponseWriter, raw string) (booking.ActorRole, bool) {
	switch booking.ActorRole(raw) {
	case booking.RoleClient, booking.RoleProvider, booking.RoleAdmin:
		return booking.ActorRole(raw), true
	}
	writeError(w, http.StatusBadRequest, "invalid_actor_role", "actor_role must be client, provider, or admin")
	return "", false
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrClientNotFound):
		writeError(w, http.StatusNotFound, "client_not_found", err.Error())
	case errors.Is(err, booking.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrScheduleNotFound):
		writeError(w, http.StatusNotFound, "schedule_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "slot is no longer available, re-fetch availability")
	case errors.Is(err, booking.ErrDuplicateBooking):
		writeError(w, http.StatusConflict, "duplicate_booking", "slot was booked concurrently, re-fetch availability")
	case errors.Is(err, booking.ErrBookingInProgress):
		writeError(w, http.StatusConflict, "booking_in_progress", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrTransitionInProgress):
		writeError(w, http.StatusConflict, "update_in_progress", "appointment update already in flight, please retry shortly")
	case errors.Is(err, booking.ErrQuotaExceeded):
		writeError(w, http.StatusConflict, "quota_exceeded", "too many unpaid bookings, resolve existing bookings first")
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrUnauthorizedVerification):
		writeError(w, http.StatusForbidden, "unauthorized_verification", "first engagement must be verified by an admin")
	case errors.Is(err, booking.ErrActorNotAllowed):
		writeError(w, http.StatusForbidden, "actor_not_allowed", err.Error())
	case errors.Is(err, booking.ErrMissingProofRef):
		writeError(w, http.StatusBadRequest, "missing_proof_ref", err.Error())
	case errors.Is(err, booking.ErrInvalidTemplate):
		writeError(w, http.StatusBadRequest, "invalid_schedule_template", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
