package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/zimid/booking-server-go/internal/errors"
	"github.com/zimid/booking-server-go/internal/model"
	"github.com/zimid/booking-server-go/internal/repository"
)

type AllocatorConfig struct {
	SlotCapacity int
	MaxDaysAhead int
	Location     *time.Location
}

type AdmissionRequest struct {
	ProvinceID int64
	ServiceID  int64
	Date       model.Date
	Time       model.Clock
}

// Admission is the allocator's permission to record one confirmed booking.
type Admission struct {
	Province    *model.Province
	Service     *model.ServiceType
	ConfirmedAt time.Time
}

// SlotAllocator decides whether an office can take one more booking for a
// date and time. Counts are always read from the ledger.
type SlotAllocator struct {
	provinces    repository.ProvinceRepository
	services     repository.ServiceTypeRepository
	bookings     repository.BookingRepository
	slotCapacity int
	maxDaysAhead int
	loc          *time.Location
	now          func() time.Time
}

func NewSlotAllocator(
	provinces repository.ProvinceRepository,
	services repository.ServiceTypeRepository,
	bookings repository.BookingRepository,
	cfg AllocatorConfig,
) *SlotAllocator {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &SlotAllocator{
		provinces:    provinces,
		services:     services,
		bookings:     bookings,
		slotCapacity: cfg.SlotCapacity,
		maxDaysAhead: cfg.MaxDaysAhead,
		loc:          loc,
		now:          time.Now,
	}
}

// Today is the current calendar date in the allocator's timezone.
func (a *SlotAllocator) Today() model.Date {
	return model.DateOf(a.now().In(a.loc))
}

func (a *SlotAllocator) MaxDaysAhead() int {
	return a.maxDaysAhead
}

func (a *SlotAllocator) IsSlotAvailable(ctx context.Context, provinceID int64, date model.Date, at model.Clock) (bool, error) {
	return a.slotOpen(ctx, a.bookings, provinceID, date, at)
}

// ListAvailableSlots filters the slot grid by availability, keeping grid order.
func (a *SlotAllocator) ListAvailableSlots(ctx context.Context, provinceID int64, date model.Date) ([]model.Clock, error) {
	available := make([]model.Clock, 0, len(model.SlotGrid))
	for _, slot := range model.SlotGrid {
		open, err := a.slotOpen(ctx, a.bookings, provinceID, date, slot)
		if err != nil {
			return nil, err
		}
		if open {
			available = append(available, slot)
		}
	}
	return available, nil
}

func (a *SlotAllocator) slotOpen(ctx context.Context, bookings repository.BookingRepository, provinceID int64, date model.Date, at model.Clock) (bool, error) {
	if !model.IsGridSlot(at) {
		return false, nil
	}
	count, err := bookings.CountForSlot(ctx, provinceID, date, at)
	if err != nil {
		return false, fmt.Errorf("count slot bookings: %w", err)
	}
	return count < a.slotCapacity, nil
}

// Admit runs the admission checks in order and stops at the first failure.
// bookings must be bound to the transaction that will insert the booking so
// the day lock is held until commit.
func (a *SlotAllocator) Admit(ctx context.Context, bookings repository.BookingRepository, req AdmissionRequest) (*Admission, error) {
	province, err := a.provinces.FindByID(ctx, req.ProvinceID)
	if err != nil {
		return nil, fmt.Errorf("find province: %w", err)
	}
	if province == nil || !province.Active {
		return nil, a.reject(req, apperrors.InvalidOffice("office not found or inactive"))
	}

	svc, err := a.services.FindByID(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("find service: %w", err)
	}
	if svc == nil || !svc.Active {
		return nil, a.reject(req, apperrors.InvalidService("service not found or inactive"))
	}

	today := a.Today()
	if req.Date.Before(today) {
		return nil, a.reject(req, apperrors.DateInPast())
	}
	if req.Date.After(today.AddDays(a.maxDaysAhead)) {
		return nil, a.reject(req, apperrors.DateTooFarAhead(a.maxDaysAhead))
	}

	if err := bookings.LockDay(ctx, req.ProvinceID, req.Date); err != nil {
		return nil, fmt.Errorf("lock office day: %w", err)
	}

	open, err := a.slotOpen(ctx, bookings, req.ProvinceID, req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, a.reject(req, apperrors.SlotUnavailable())
	}

	daily, err := bookings.CountForDay(ctx, req.ProvinceID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("count day bookings: %w", err)
	}
	if daily >= province.DailyCapacity {
		return nil, a.reject(req, apperrors.CapacityExceeded())
	}

	return &Admission{
		Province:    province,
		Service:     svc,
		ConfirmedAt: a.now(),
	}, nil
}

func (a *SlotAllocator) reject(req AdmissionRequest, err *apperrors.AppError) error {
	log.Debug().
		Int64("officeId", req.ProvinceID).
		Int64("serviceId", req.ServiceID).
		Str("date", req.Date.String()).
		Str("time", req.Time.String()).
		Str("code", string(err.Code)).
		Msg("admission rejected")
	return err
}
