package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sunolegal/internal/domain"
	"sunolegal/internal/events"
	"sunolegal/internal/metrics"
	"sunolegal/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxMutationAttempts = 3

// transitions lists the forward moves allowed from each status.
// Completed and cancelled are terminal.
var transitions = map[string][]string{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusCompleted, models.StatusCancelled},
}

// CanTransition reports whether a booking may move from one status to another.
// A same-status move is not a transition.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type BookingService struct {
	repo       domain.BookingRepository
	catalog    domain.CatalogService
	eventBus   domain.EventPublisher
	syncWorker domain.SyncWorker
	verifier   domain.PaymentVerifier
	logger     *zerolog.Logger
	now        func() time.Time
	newID      func() string
}

func NewBookingService(
	repo domain.BookingRepository,
	catalog domain.CatalogService,
	eventBus domain.EventPublisher,
	syncWorker domain.SyncWorker,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		repo:       repo,
		catalog:    catalog,
		eventBus:   eventBus,
		syncWorker: syncWorker,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SetPaymentVerifier makes ConfirmPayment check payments with v first.
func (s *BookingService) SetPaymentVerifier(v domain.PaymentVerifier) {
	s.verifier = v
}

func (s *BookingService) CreateBooking(ctx context.Context, spec models.BookingSpec) (*models.Booking, error) {
	if err := s.resolvePackage(&spec); err != nil {
		return nil, err
	}
	if err := validateSpec(&spec); err != nil {
		return nil, err
	}

	now := s.now()
	booking := &models.Booking{
		ID:                s.newID(),
		LawyerID:          spec.LawyerID,
		LawyerName:        spec.LawyerName,
		UserID:            spec.UserID,
		PackageType:       spec.PackageType,
		PackageName:       spec.PackageName,
		Price:             spec.Price,
		Duration:          spec.Duration,
		Status:            spec.Status,
		PaymentStatus:     spec.PaymentStatus,
		ScheduledDateTime: spec.ScheduledDateTime,
		CreatedAt:         now,
		UpdatedAt:         now,
		Version:           1,
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("lawyer_id", booking.LawyerID).
		Str("status", booking.Status).
		Msg("booking created")
	metrics.IncBookingTransition("", booking.Status)

	s.publishEvent(events.EventBookingCreated, booking, "")
	s.enqueueSync(ctx, booking, models.TaskTypeUpsert)

	out := *booking
	return &out, nil
}

// resolvePackage fills the lawyer and package snapshot from the catalog when a package id is given.
func (s *BookingService) resolvePackage(spec *models.BookingSpec) error {
	if spec.PackageID == "" || s.catalog == nil {
		return nil
	}
	lawyer, pkg, ok := s.catalog.GetLawyerPackage(spec.LawyerID, spec.PackageID)
	if !ok {
		return fmt.Errorf("%w: unknown package %s for lawyer %s", domain.ErrValidation, spec.PackageID, spec.LawyerID)
	}
	spec.LawyerName = lawyer.Name
	spec.PackageType = pkg.Type
	spec.PackageName = pkg.Name
	spec.Price = pkg.Price
	spec.Duration = pkg.Duration
	return nil
}

func validateSpec(spec *models.BookingSpec) error {
	spec.LawyerID = strings.TrimSpace(spec.LawyerID)
	if spec.Status == "" {
		spec.Status = models.StatusConfirmed
	}
	if spec.PaymentStatus == "" {
		spec.PaymentStatus = models.PaymentPending
	}

	switch {
	case spec.LawyerID == "":
		return fmt.Errorf("%w: lawyer id is required", domain.ErrValidation)
	case !models.IsValidPackageType(spec.PackageType):
		return fmt.Errorf("%w: unknown package type %q", domain.ErrValidation, spec.PackageType)
	case spec.Price < 0:
		return fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	case spec.Duration <= 0:
		return fmt.Errorf("%w: duration must be positive", domain.ErrValidation)
	case spec.Status != models.StatusPending && spec.Status != models.StatusConfirmed:
		return fmt.Errorf("%w: initial status must be pending or confirmed, got %q", domain.ErrValidation, spec.Status)
	case !models.IsValidPaymentStatus(spec.PaymentStatus):
		return fmt.Errorf("%w: unknown payment status %q", domain.ErrValidation, spec.PaymentStatus)
	}

	if spec.ScheduledDateTime != "" {
		if _, err := time.Parse(time.RFC3339, spec.ScheduledDateTime); err != nil {
			return fmt.Errorf("%w: scheduled date time must be RFC 3339: %v", domain.ErrValidation, err)
		}
	}
	return nil
}

// UpdateBookingStatus moves a booking along the status machine.
// Repeating the current status is a no-op and publishes nothing.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, id, status string) (*models.Booking, error) {
	if !models.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}

	var previous string
	booking, err := s.mutate(ctx, id, func(b *models.Booking) (bool, error) {
		previous = b.Status
		if b.Status == status {
			return false, nil
		}
		if !CanTransition(b.Status, status) {
			return false, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, b.Status, status)
		}
		b.Status = status
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if previous == status {
		return booking, nil
	}

	s.logger.Info().
		Str("booking_id", id).
		Str("from", previous).
		Str("to", status).
		Msg("booking status changed")
	metrics.IncBookingTransition(previous, status)

	s.publishEvent(events.EventBookingStatusChanged, booking, previous)
	if status == models.StatusCompleted {
		s.publishEvent(events.EventBookingCompleted, booking, previous)
	}
	s.enqueueSync(ctx, booking, models.TaskTypeUpdateStatus)

	return booking, nil
}

// CompleteConsultation marks a booking completed when its session ends.
func (s *BookingService) CompleteConsultation(ctx context.Context, id string) (*models.Booking, error) {
	return s.UpdateBookingStatus(ctx, id, models.StatusCompleted)
}

func (s *BookingService) CancelBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.UpdateBookingStatus(ctx, id, models.StatusCancelled)
}

// ConfirmPayment marks the booking paid and confirms it if still pending.
// Cancelled bookings cannot be paid.
func (s *BookingService) ConfirmPayment(ctx context.Context, id, paymentRef string) (*models.Booking, error) {
	paymentRef = strings.TrimSpace(paymentRef)
	if paymentRef == "" {
		return nil, fmt.Errorf("%w: payment reference is required", domain.ErrValidation)
	}

	current, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.PaymentStatus == models.PaymentPaid {
		return current, nil
	}

	if s.verifier != nil {
		if err := s.verifier.VerifyPayment(ctx, id, paymentRef); err != nil {
			s.logger.Warn().Err(err).Str("booking_id", id).Msg("payment verification failed")
			return nil, fmt.Errorf("%w: %v", domain.ErrPaymentNotVerified, err)
		}
	}

	var previous string
	var paid bool
	booking, err := s.mutate(ctx, id, func(b *models.Booking) (bool, error) {
		previous, paid = b.Status, false
		if b.Status == models.StatusCancelled {
			return false, fmt.Errorf("%w: booking is cancelled", domain.ErrInvalidTransition)
		}
		if b.PaymentStatus == models.PaymentPaid {
			return false, nil
		}
		b.PaymentStatus = models.PaymentPaid
		b.PaymentRef = paymentRef
		paid = true
		if b.Status == models.StatusPending {
			b.Status = models.StatusConfirmed
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !paid {
		return booking, nil
	}

	s.logger.Info().Str("booking_id", id).Str("payment_ref", paymentRef).Msg("payment confirmed")
	s.publishEvent(events.EventBookingPaymentConfirmed, booking, previous)
	if booking.Status != previous {
		metrics.IncBookingTransition(previous, booking.Status)
		s.publishEvent(events.EventBookingStatusChanged, booking, previous)
	}
	s.enqueueSync(ctx, booking, models.TaskTypeUpsert)

	return booking, nil
}

func (s *BookingService) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) ListBookings(ctx context.Context, q models.BookingQuery) ([]*models.Booking, error) {
	return s.repo.ListBookings(ctx, q)
}

// mutate retries fn when a versioned repository reports a concurrent write.
func (s *BookingService) mutate(ctx context.Context, id string, fn domain.MutateFunc) (*models.Booking, error) {
	var err error
	for attempt := 0; attempt < maxMutationAttempts; attempt++ {
		var b *models.Booking
		b, err = s.repo.UpdateBooking(ctx, id, fn)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, domain.ErrConcurrentModification) {
			return nil, err
		}
		s.logger.Debug().Str("booking_id", id).Int("attempt", attempt+1).Msg("concurrent booking update, retrying")
	}
	return nil, err
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, previousStatus string) {
	if s.eventBus == nil {
		return
	}

	if err := s.eventBus.PublishJSON(eventType, events.NewBookingPayload(booking, previousStatus)); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking, taskType string) {
	if s.syncWorker == nil {
		return
	}

	if err := s.syncWorker.EnqueueTask(ctx, taskType, booking); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Str("task", taskType).Msg("sync enqueue error")
	}
}
