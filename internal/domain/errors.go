package domain

import "errors"

var (
	ErrBookingNotFound        = errors.New("booking not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrValidation             = errors.New("validation failed")
	ErrConcurrentModification = errors.New("booking was modified concurrently")
	ErrRateLimited            = errors.New("rate limit exceeded")
	ErrPaymentNotVerified     = errors.New("payment not verified")
	ErrAssistantUnavailable   = errors.New("assistant is temporarily unavailable, please try again")
)
