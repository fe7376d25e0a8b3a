package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/zimid/booking-server-go/internal/database"
	"github.com/zimid/booking-server-go/internal/model"
)

type BookingRepository interface {
	FindByReference(ctx context.Context, reference string) (*model.Booking, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	FindByPhone(ctx context.Context, phone string) ([]model.Booking, error)
	FindByEmail(ctx context.Context, email string) ([]model.Booking, error)
	Search(ctx context.Context, term string, limit, offset int) ([]model.Booking, error)
	// CountForSlot counts bookings occupying one slot (not cancelled, not no-show).
	CountForSlot(ctx context.Context, provinceID int64, date model.Date, at model.Clock) (int, error)
	// CountForDay counts bookings occupying any slot of the province on date.
	CountForDay(ctx context.Context, provinceID int64, date model.Date) (int, error)
	// LockDay takes a transaction-scoped advisory lock on (province, date).
	// It only serializes when called on a repository bound with WithTx.
	LockDay(ctx context.Context, provinceID int64, date model.Date) error
	Create(ctx context.Context, params model.CreateBookingParams) (*model.Booking, error)
	// UpdateStatus moves a booking from params.From to params.To. It returns
	// nil without error when the booking is not in params.From anymore.
	UpdateStatus(ctx context.Context, params model.UpdateBookingStatusParams) (*model.Booking, error)
	MarkNoShowBefore(ctx context.Context, date model.Date) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) BookingRepository
}

const bookingReferenceConstraint = "bookings_booking_reference_key"

const selectBooking = `
	SELECT b.*, p.name AS province_name, p.office_name, s.name AS service_name
	FROM bookings b
	JOIN provinces p ON p.id = b.province_id
	JOIN services s ON s.id = b.service_id
`

// joinReturned wraps a data-modifying statement returning bookings rows so
// the result carries the same joined columns as selectBooking.
func joinReturned(statement string) string {
	return `
	WITH b AS (` + statement + `)
	SELECT b.*, p.name AS province_name, p.office_name, s.name AS service_name
	FROM b
	JOIN provinces p ON p.id = b.province_id
	JOIN services s ON s.id = b.service_id
	`
}

type bookingRepo struct {
	db database.DBTX
}

func NewBookingRepository(db *sqlx.DB) BookingRepository {
	return &bookingRepo{db: db}
}

func (r *bookingRepo) WithTx(tx *sqlx.Tx) BookingRepository {
	return &bookingRepo{db: tx}
}

func (r *bookingRepo) FindByReference(ctx context.Context, reference string) (*model.Booking, error) {
	var b model.Booking
	err := r.db.GetContext(ctx, &b, selectBooking+`WHERE b.booking_reference = $1`, reference)
	return HandleNotFound(&b, err)
}

func (r *bookingRepo) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM bookings WHERE booking_reference = $1)
	`, reference)
	return exists, err
}

func (r *bookingRepo) FindByPhone(ctx context.Context, phone string) ([]model.Booking, error) {
	bookings := []model.Booking{}
	err := r.db.SelectContext(ctx, &bookings, selectBooking+`
		WHERE b.phone_number = $1
		ORDER BY b.appointment_date DESC, b.appointment_time DESC
	`, phone)
	return bookings, err
}

func (r *bookingRepo) FindByEmail(ctx context.Context, email string) ([]model.Booking, error) {
	bookings := []model.Booking{}
	err := r.db.SelectContext(ctx, &bookings, selectBooking+`
		WHERE LOWER(b.email) = LOWER($1)
		ORDER BY b.appointment_date DESC, b.appointment_time DESC
	`, email)
	return bookings, err
}

func (r *bookingRepo) Search(ctx context.Context, term string, limit, offset int) ([]model.Booking, error) {
	bookings := []model.Booking{}
	pattern := "%" + escapeLike(term) + "%"
	err := r.db.SelectContext(ctx, &bookings, selectBooking+`
		WHERE LOWER(b.full_name) LIKE LOWER($1)
		OR b.phone_number LIKE $1
		OR LOWER(b.email) LIKE LOWER($1)
		OR b.booking_reference LIKE UPPER($1)
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3
	`, pattern, limit, offset)
	return bookings, err
}

func (r *bookingRepo) CountForSlot(ctx context.Context, provinceID int64, date model.Date, at model.Clock) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM bookings
		WHERE province_id = $1
		AND appointment_date = $2
		AND appointment_time = $3
		AND status NOT IN ('CANCELLED', 'NO_SHOW')
	`, provinceID, date, at)
	return count, err
}

func (r *bookingRepo) CountForDay(ctx context.Context, provinceID int64, date model.Date) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM bookings
		WHERE province_id = $1
		AND appointment_date = $2
		AND status NOT IN ('CANCELLED', 'NO_SHOW')
	`, provinceID, date)
	return count, err
}

func (r *bookingRepo) LockDay(ctx context.Context, provinceID int64, date model.Date) error {
	key := fmt.Sprintf("booking:%d:%s", provinceID, date)
	_, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key)
	return err
}

func (r *bookingRepo) Create(ctx context.Context, params model.CreateBookingParams) (*model.Booking, error) {
	var b model.Booking
	err := r.db.GetContext(ctx, &b, joinReturned(`
		INSERT INTO bookings
			(booking_reference, full_name, date_of_birth, phone_number, email,
			 province_id, service_id, appointment_date, appointment_time,
			 status, channel, notes, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING *
	`), params.Reference, params.FullName, params.DateOfBirth, params.PhoneNumber, params.Email,
		params.ProvinceID, params.ServiceID, params.AppointmentDate, params.AppointmentTime,
		params.Status, params.Channel, params.Notes, params.ConfirmedAt)
	if isUniqueViolation(err, bookingReferenceConstraint) {
		return nil, ErrDuplicateReference
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepo) UpdateStatus(ctx context.Context, params model.UpdateBookingStatusParams) (*model.Booking, error) {
	var b model.Booking
	err := r.db.GetContext(ctx, &b, joinReturned(`
		UPDATE bookings SET
			status = $3::varchar,
			confirmed_at = CASE WHEN $3::varchar = 'CONFIRMED' THEN $4::timestamptz ELSE confirmed_at END,
			completed_at = CASE WHEN $3::varchar = 'COMPLETED' THEN $4::timestamptz ELSE completed_at END,
			cancelled_at = CASE WHEN $3::varchar = 'CANCELLED' THEN $4::timestamptz ELSE cancelled_at END,
			cancellation_reason = COALESCE($5::varchar, cancellation_reason),
			updated_at = $4::timestamptz
		WHERE booking_reference = $1 AND status = $2
		RETURNING *
	`), params.Reference, params.From, params.To, params.At, params.CancellationReason)
	return HandleNotFound(&b, err)
}

func (r *bookingRepo) MarkNoShowBefore(ctx context.Context, date model.Date) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET
			status = 'NO_SHOW',
			updated_at = NOW()
		WHERE status = 'CONFIRMED' AND appointment_date < $1
	`, date)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
