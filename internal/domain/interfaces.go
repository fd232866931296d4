package domain

import (
	"context"
	"time"

	"sunolegal/internal/models"
)

// MutateFunc edits a booking in place and reports whether anything changed.
// Returning false leaves the stored booking untouched.
type MutateFunc func(b *models.Booking) (bool, error)

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	UpdateBooking(ctx context.Context, id string, fn MutateFunc) (*models.Booking, error)
	ListBookings(ctx context.Context, q models.BookingQuery) ([]*models.Booking, error)
}

type FlagStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type StateStore interface {
	FlagStore
	RateLimiter
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, booking *models.Booking) error
}

// BookingSink receives booking changes that must be mirrored outside the process.
type BookingSink interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID, status string) error
}

type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, bookingID, paymentRef string) error
}

type AssistantBackend interface {
	SendMessage(ctx context.Context, message, sessionID string) (string, error)
	GetChatHistory(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	GetUserChats(ctx context.Context) ([]models.ChatSession, error)
}

type Responder interface {
	Reply(message string) string
}

type CatalogService interface {
	ListLawSchemes(category, search string) []models.LawScheme
	GetLawSchemeByID(id string) (*models.LawScheme, bool)
	GetRelatedLawSchemes(item *models.LawScheme, limit int) []models.LawScheme
	Categories() []models.CategoryCount
	GetLawyerByID(id string) (*models.Lawyer, bool)
	GetLawyerPackage(lawyerID, packageID string) (*models.Lawyer, *models.LawyerPackage, bool)
	ListLawyers(filter models.LawyerFilter) []models.Lawyer
}

type BookingService interface {
	CreateBooking(ctx context.Context, spec models.BookingSpec) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id, status string) (*models.Booking, error)
	CompleteConsultation(ctx context.Context, id string) (*models.Booking, error)
	CancelBooking(ctx context.Context, id string) (*models.Booking, error)
	ConfirmPayment(ctx context.Context, id, paymentRef string) (*models.Booking, error)
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context, q models.BookingQuery) ([]*models.Booking, error)
}

type ChatService interface {
	Send(ctx context.Context, sessionID, message string) (*models.ChatReply, error)
	History(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	Sessions(ctx context.Context) ([]models.ChatSession, error)
}

type ProfileService interface {
	OnboardingCompleted(ctx context.Context, userID string) (bool, error)
	CompleteOnboarding(ctx context.Context, userID string) error
	ResetOnboarding(ctx context.Context, userID string) error
	StartDemo(ctx context.Context, deviceID string) (string, error)
	DemoUser(ctx context.Context, deviceID string) (string, bool, error)
	EndDemo(ctx context.Context, deviceID string) error
}
