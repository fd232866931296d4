package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"sunolegal/internal/auth"
	"sunolegal/internal/domain"
	"sunolegal/internal/export"
	"sunolegal/internal/models"
)

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func bookingQuery(r *http.Request) models.BookingQuery {
	q := r.URL.Query()
	return models.BookingQuery{
		UserID:   q.Get("user_id"),
		LawyerID: q.Get("lawyer_id"),
		Status:   q.Get("status"),
	}
}

// bookingOwner returns the user a booking request is limited to. Clients holding
// PermAdminBookings get "" and reach every booking; anyone else must be signed in.
func (s *HTTPServer) bookingOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	if bookingAdmin(r.Context()) {
		return "", true
	}
	return s.requireUser(w, r)
}

// ownedBooking loads the booking named in the path. Other users' bookings
// answer 404 so ids cannot be guessed.
func (s *HTTPServer) ownedBooking(w http.ResponseWriter, r *http.Request) (*models.Booking, bool) {
	owner, ok := s.bookingOwner(w, r)
	if !ok {
		return nil, false
	}
	booking, err := s.deps.Bookings.GetBookingByID(r.Context(), r.PathValue("id"))
	if err == nil && owner != "" && booking.UserID != owner {
		err = domain.ErrBookingNotFound
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return nil, false
	}
	return booking, true
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.bookingOwner(w, r)
	if !ok {
		return
	}
	var spec models.BookingSpec
	if !decodeBody(w, r, &spec) {
		return
	}
	switch {
	case owner != "":
		spec.UserID = owner
	case spec.UserID == "":
		spec.UserID = auth.UserID(r.Context())
	}

	booking, err := s.deps.Bookings.CreateBooking(r.Context(), spec)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.bookingOwner(w, r)
	if !ok {
		return
	}
	q := bookingQuery(r)
	if owner != "" {
		q.UserID = owner
	}

	bookings, err := s.deps.Bookings.ListBookings(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, ok := s.ownedBooking(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	current, ok := s.ownedBooking(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	booking, err := s.deps.Bookings.UpdateBookingStatus(r.Context(), current.ID, body.Status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	current, ok := s.ownedBooking(w, r)
	if !ok {
		return
	}
	var body struct {
		PaymentRef string `json:"payment_ref"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	booking, err := s.deps.Bookings.ConfirmPayment(r.Context(), current.ID, body.PaymentRef)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.bookingOwner(w, r)
	if !ok {
		return
	}
	q := bookingQuery(r)
	if owner != "" {
		q.UserID = owner
	}

	bookings, err := s.deps.Bookings.ListBookings(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteBookings(&buf, bookings); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(s.now())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
