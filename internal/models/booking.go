package models

import "time"

type Booking struct {
	ID                string    `json:"id"`
	LawyerID          string    `json:"lawyer_id"`
	LawyerName        string    `json:"lawyer_name"`
	UserID            string    `json:"user_id"`
	PackageType       string    `json:"package_type"`
	PackageName       string    `json:"package_name"`
	Price             int64     `json:"price"`
	Duration          int       `json:"duration"`
	Status            string    `json:"status"` // pending, confirmed, completed, cancelled
	PaymentStatus     string    `json:"payment_status"`
	PaymentRef        string    `json:"payment_ref,omitempty"`
	ScheduledDateTime string    `json:"scheduled_date_time"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	Version           int64     `json:"version"`
}

// BookingSpec is the caller-supplied part of a new booking.
type BookingSpec struct {
	LawyerID          string `json:"lawyer_id"`
	LawyerName        string `json:"lawyer_name"`
	PackageID         string `json:"package_id,omitempty"`
	UserID            string `json:"user_id"`
	PackageType       string `json:"package_type"`
	PackageName       string `json:"package_name"`
	Price             int64  `json:"price"`
	Duration          int    `json:"duration"`
	Status            string `json:"status"`
	PaymentStatus     string `json:"payment_status"`
	ScheduledDateTime string `json:"scheduled_date_time"`
}

// BookingQuery filters ListBookings. Empty fields match everything.
type BookingQuery struct {
	UserID   string
	LawyerID string
	Status   string
}

func (q BookingQuery) Matches(b *Booking) bool {
	if q.UserID != "" && b.UserID != q.UserID {
		return false
	}
	if q.LawyerID != "" && b.LawyerID != q.LawyerID {
		return false
	}
	if q.Status != "" && b.Status != q.Status {
		return false
	}
	return true
}

// IsImmediate reports whether the consultation starts right away.
func (b *Booking) IsImmediate() bool {
	return b.ScheduledDateTime == ""
}
