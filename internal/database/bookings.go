package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sunolegal/internal/domain"
	"sunolegal/internal/models"
)

const bookingColumns = `id, lawyer_id, lawyer_name, user_id, package_type, package_name, price, duration,
	status, payment_status, payment_ref, scheduled_date_time, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.LawyerID, &b.LawyerName, &b.UserID, &b.PackageType, &b.PackageName, &b.Price, &b.Duration,
		&b.Status, &b.PaymentStatus, &b.PaymentRef, &b.ScheduledDateTime, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.Version == 0 {
		booking.Version = 1
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now()
		booking.UpdatedAt = booking.CreatedAt
	}

	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		booking.ID,
		booking.LawyerID,
		booking.LawyerName,
		booking.UserID,
		booking.PackageType,
		booking.PackageName,
		booking.Price,
		booking.Duration,
		booking.Status,
		booking.PaymentStatus,
		booking.PaymentRef,
		booking.ScheduledDateTime,
		booking.CreatedAt,
		booking.UpdatedAt,
		booking.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// UpdateBooking applies fn and writes the result only if the stored version is
// unchanged. A lost race returns domain.ErrConcurrentModification.
func (db *DB) UpdateBooking(ctx context.Context, id string, fn domain.MutateFunc) (*models.Booking, error) {
	current, err := db.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	work := *current
	changed, err := fn(&work)
	if err != nil {
		return nil, err
	}
	if !changed {
		return current, nil
	}

	work.Version = current.Version + 1
	work.UpdatedAt = time.Now()

	query := `UPDATE bookings SET status = ?, payment_status = ?, payment_ref = ?, scheduled_date_time = ?,
		updated_at = ?, version = ? WHERE id = ? AND version = ?`
	res, err := db.ExecContext(ctx, query,
		work.Status, work.PaymentStatus, work.PaymentRef, work.ScheduledDateTime,
		work.UpdatedAt, work.Version, id, current.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrConcurrentModification
	}
	return &work, nil
}

func (db *DB) ListBookings(ctx context.Context, q models.BookingQuery) ([]*models.Booking, error) {
	var where []string
	var args []any
	if q.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, q.UserID)
	}
	if q.LawyerID != "" {
		where = append(where, "lawyer_id = ?")
		args = append(args, q.LawyerID)
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
