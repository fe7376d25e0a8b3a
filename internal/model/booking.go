package model

import (
	"time"
)

type Booking struct {
	ID                 int64          `db:"id" json:"id"`
	Reference          string         `db:"booking_reference" json:"bookingReference"`
	FullName           string         `db:"full_name" json:"fullName"`
	DateOfBirth        Date           `db:"date_of_birth" json:"dateOfBirth"`
	PhoneNumber        string         `db:"phone_number" json:"phoneNumber"`
	Email              string         `db:"email" json:"email"`
	ProvinceID         int64          `db:"province_id" json:"provinceId"`
	ProvinceName       string         `db:"province_name" json:"provinceName"`
	OfficeName         string         `db:"office_name" json:"officeName"`
	ServiceID          int64          `db:"service_id" json:"serviceId"`
	ServiceName        string         `db:"service_name" json:"serviceName"`
	AppointmentDate    Date           `db:"appointment_date" json:"appointmentDate"`
	AppointmentTime    Clock          `db:"appointment_time" json:"appointmentTime"`
	Status             BookingStatus  `db:"status" json:"status"`
	Channel            BookingChannel `db:"channel" json:"channel"`
	Notes              *string        `db:"notes" json:"notes,omitempty"`
	CancellationReason *string        `db:"cancellation_reason" json:"cancellationReason,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updatedAt"`
	ConfirmedAt        *time.Time     `db:"confirmed_at" json:"confirmedAt,omitempty"`
	CompletedAt        *time.Time     `db:"completed_at" json:"completedAt,omitempty"`
	CancelledAt        *time.Time     `db:"cancelled_at" json:"cancelledAt,omitempty"`
}

// BookingDraft is a complete booking request as submitted by any channel.
type BookingDraft struct {
	FullName        string         `json:"fullName"`
	DateOfBirth     Date           `json:"dateOfBirth"`
	PhoneNumber     string         `json:"phoneNumber"`
	Email           string         `json:"email"`
	ProvinceID      int64          `json:"provinceId"`
	ServiceID       int64          `json:"serviceId"`
	AppointmentDate Date           `json:"appointmentDate"`
	AppointmentTime *Clock         `json:"appointmentTime"`
	Channel         BookingChannel `json:"channel"`
	Notes           string         `json:"notes,omitempty"`
}

type CreateBookingParams struct {
	Reference       string
	FullName        string
	DateOfBirth     Date
	PhoneNumber     string
	Email           string
	ProvinceID      int64
	ServiceID       int64
	AppointmentDate Date
	AppointmentTime Clock
	Status          BookingStatus
	Channel         BookingChannel
	Notes           *string
	ConfirmedAt     *time.Time
}

type UpdateBookingStatusParams struct {
	Reference          string
	From               BookingStatus
	To                 BookingStatus
	At                 time.Time
	CancellationReason *string
}

// SlotGrid is the fixed daily grid of half-hour appointment slots.
var SlotGrid = []Clock{
	NewClock(8, 0), NewClock(8, 30), NewClock(9, 0), NewClock(9, 30),
	NewClock(10, 0), NewClock(10, 30), NewClock(11, 0), NewClock(11, 30),
	NewClock(12, 0), NewClock(12, 30),
	NewClock(14, 0), NewClock(14, 30), NewClock(15, 0), NewClock(15, 30), NewClock(16, 0),
}

// IsGridSlot reports whether c is one of the bookable slot start times.
func IsGridSlot(c Clock) bool {
	for _, slot := range SlotGrid {
		if slot == c {
			return true
		}
	}
	return false
}
