package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/zimid/booking-server-go/internal/audit"
	"github.com/zimid/booking-server-go/internal/database"
	apperrors "github.com/zimid/booking-server-go/internal/errors"
	"github.com/zimid/booking-server-go/internal/model"
	"github.com/zimid/booking-server-go/internal/notify"
	"github.com/zimid/booking-server-go/internal/repository"
	"github.com/zimid/booking-server-go/internal/util"
)

const (
	maxReferenceAttempts = 10
	maxInsertAttempts    = 3
	maxNotesLength       = 1000
	maxReasonLength      = 500
	minNameLength        = 2
	maxNameLength        = 200
)

// EventPublisher accepts booking events for asynchronous delivery.
// Publish must not block.
type EventPublisher interface {
	Publish(e notify.Event)
}

type BookingService struct {
	db        database.Transactor
	bookings  repository.BookingRepository
	allocator *SlotAllocator
	publisher EventPublisher
	randomInt func(min, max int64) (int64, error)
}

func NewBookingService(
	db database.Transactor,
	bookings repository.BookingRepository,
	allocator *SlotAllocator,
	publisher EventPublisher,
) *BookingService {
	return &BookingService{
		db:        db,
		bookings:  bookings,
		allocator: allocator,
		publisher: publisher,
		randomInt: util.RandomInt,
	}
}

// Create validates the draft, admits it and records a confirmed booking.
// Admission and insert share one transaction that holds the office-day lock.
func (s *BookingService) Create(ctx context.Context, draft model.BookingDraft) (*model.Booking, error) {
	if draft.Channel == "" {
		draft.Channel = model.BookingChannelWeb
	}
	if err := s.validateDraft(draft); err != nil {
		return nil, err
	}

	req := AdmissionRequest{
		ProvinceID: draft.ProvinceID,
		ServiceID:  draft.ServiceID,
		Date:       draft.AppointmentDate,
		Time:       *draft.AppointmentTime,
	}

	var booking *model.Booking
	var err error
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		booking, err = s.createOnce(ctx, draft, req)
		if !errors.Is(err, repository.ErrDuplicateReference) {
			break
		}
		log.Warn().Int("attempt", attempt).Msg("booking reference collided on insert, retrying")
	}
	if errors.Is(err, repository.ErrDuplicateReference) {
		return nil, apperrors.ReferenceExhausted()
	}
	if err != nil {
		if apperrors.IsAdmissionRejection(err) {
			audit.Log(ctx, audit.Event{
				Type:     audit.EventAdmissionRejected,
				OfficeID: draft.ProvinceID,
				Channel:  string(draft.Channel),
				Details:  map[string]interface{}{"code": string(apperrors.GetCode(err))},
			})
		}
		return nil, err
	}

	audit.Log(ctx, audit.Event{
		Type:      audit.EventBookingCreated,
		Reference: booking.Reference,
		OfficeID:  booking.ProvinceID,
		Channel:   string(booking.Channel),
		Details: map[string]interface{}{
			"date": booking.AppointmentDate.String(),
			"time": booking.AppointmentTime.String(),
		},
	})
	s.publisher.Publish(notify.NewEvent(notify.EventCreated, booking))

	return booking, nil
}

func (s *BookingService) createOnce(ctx context.Context, draft model.BookingDraft, req AdmissionRequest) (*model.Booking, error) {
	var booking *model.Booking
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.bookings.WithTx(tx)

		admission, err := s.allocator.Admit(ctx, repo, req)
		if err != nil {
			return err
		}

		reference, err := s.generateReference(ctx, repo, admission.ConfirmedAt.In(s.allocator.loc).Year())
		if err != nil {
			return err
		}

		var notes *string
		if n := strings.TrimSpace(draft.Notes); n != "" {
			notes = &n
		}
		confirmedAt := admission.ConfirmedAt

		booking, err = repo.Create(ctx, model.CreateBookingParams{
			Reference:       reference,
			FullName:        strings.TrimSpace(draft.FullName),
			DateOfBirth:     draft.DateOfBirth,
			PhoneNumber:     draft.PhoneNumber,
			Email:           draft.Email,
			ProvinceID:      admission.Province.ID,
			ServiceID:       admission.Service.ID,
			AppointmentDate: draft.AppointmentDate,
			AppointmentTime: *draft.AppointmentTime,
			Status:          model.BookingStatusConfirmed,
			Channel:         draft.Channel,
			Notes:           notes,
			ConfirmedAt:     &confirmedAt,
		})
		if errors.Is(err, repository.ErrDuplicateReference) {
			return err
		}
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
	return booking, err
}

// generateReference draws ZW-<year>-NNNN references until one is unused.
func (s *BookingService) generateReference(ctx context.Context, repo repository.BookingRepository, year int) (string, error) {
	for i := 0; i < maxReferenceAttempts; i++ {
		n, err := s.randomInt(1000, 9999)
		if err != nil {
			return "", fmt.Errorf("generate reference: %w", err)
		}
		reference := fmt.Sprintf("ZW-%d-%04d", year, n)

		exists, err := repo.ReferenceExists(ctx, reference)
		if err != nil {
			return "", fmt.Errorf("check reference: %w", err)
		}
		if !exists {
			return reference, nil
		}
	}
	return "", apperrors.ReferenceExhausted()
}

func (s *BookingService) validateDraft(d model.BookingDraft) error {
	if n := util.NameLength(d.FullName); n < minNameLength || n > maxNameLength {
		return apperrors.InvalidInput("fullName", fmt.Sprintf("must be between %d and %d characters", minNameLength, maxNameLength))
	}
	if d.DateOfBirth.IsZero() {
		return apperrors.MissingRequired("dateOfBirth")
	}
	if !d.DateOfBirth.Before(s.allocator.Today()) {
		return apperrors.InvalidInput("dateOfBirth", "must be in the past")
	}
	if !d.Channel.IsValid() {
		return apperrors.InvalidInput("channel", "must be one of WEB, MOBILE, USSD, ADMIN")
	}
	switch d.Channel {
	case model.BookingChannelWeb, model.BookingChannelMobile:
		if !util.IsZimbabweanPhone(d.PhoneNumber) {
			return apperrors.InvalidInput("phoneNumber", "must be in the format +263XXXXXXXXX")
		}
	default:
		if !util.IsValidPhone(d.PhoneNumber) {
			return apperrors.InvalidInput("phoneNumber", "must be an international number starting with +")
		}
	}
	if !util.IsValidEmail(d.Email) {
		return apperrors.InvalidInput("email", "must be a valid email address")
	}
	if d.AppointmentDate.IsZero() {
		return apperrors.MissingRequired("appointmentDate")
	}
	if d.AppointmentTime == nil {
		return apperrors.MissingRequired("appointmentTime")
	}
	if utf8.RuneCountInString(d.Notes) > maxNotesLength {
		return apperrors.InvalidInput("notes", fmt.Sprintf("must be at most %d characters", maxNotesLength))
	}
	return nil
}

func (s *BookingService) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
	b, err := s.bookings.FindByReference(ctx, normalizeReference(reference))
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if b == nil {
		return nil, apperrors.NotFound("booking")
	}
	return b, nil
}

func (s *BookingService) FindByPhone(ctx context.Context, phone string) ([]model.Booking, error) {
	bookings, err := s.bookings.FindByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return nil, fmt.Errorf("find bookings by phone: %w", err)
	}
	return bookings, nil
}

func (s *BookingService) FindByEmail(ctx context.Context, email string) ([]model.Booking, error) {
	bookings, err := s.bookings.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("find bookings by email: %w", err)
	}
	return bookings, nil
}

func (s *BookingService) Search(ctx context.Context, term string, limit, offset int) ([]model.Booking, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperrors.MissingRequired("query")
	}
	bookings, err := s.bookings.Search(ctx, term, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search bookings: %w", err)
	}
	return bookings, nil
}

// UpdateStatus moves a booking along the legal transition table.
func (s *BookingService) UpdateStatus(ctx context.Context, reference string, to model.BookingStatus) (*model.Booking, error) {
	if !to.IsValid() {
		return nil, apperrors.InvalidInput("status", "unknown booking status")
	}
	updated, from, err := s.transition(ctx, reference, to, nil)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{
		Type:      audit.EventBookingStatusChanged,
		Reference: updated.Reference,
		OfficeID:  updated.ProvinceID,
		Details:   map[string]interface{}{"from": string(from), "to": string(to)},
	})
	s.publisher.Publish(notify.NewEvent(notify.EventUpdated, updated))

	return updated, nil
}

func (s *BookingService) Cancel(ctx context.Context, reference, reason string) (*model.Booking, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, apperrors.InvalidInput("reason", fmt.Sprintf("must be at most %d characters", maxReasonLength))
	}
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	cancelled, from, err := s.transition(ctx, reference, model.BookingStatusCancelled, reasonPtr)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{
		Type:      audit.EventBookingCancelled,
		Reference: cancelled.Reference,
		OfficeID:  cancelled.ProvinceID,
		Details:   map[string]interface{}{"from": string(from), "reason": reason},
	})
	s.publisher.Publish(notify.NewEvent(notify.EventCancelled, cancelled))

	return cancelled, nil
}

func (s *BookingService) transition(ctx context.Context, reference string, to model.BookingStatus, reason *string) (*model.Booking, model.BookingStatus, error) {
	current, err := s.GetByReference(ctx, reference)
	if err != nil {
		return nil, "", err
	}
	if !model.CanTransition(current.Status, to) {
		return nil, "", apperrors.InvalidTransition(string(current.Status), string(to))
	}

	updated, err := s.bookings.UpdateStatus(ctx, model.UpdateBookingStatusParams{
		Reference:          current.Reference,
		From:               current.Status,
		To:                 to,
		At:                 time.Now().UTC(),
		CancellationReason: reason,
	})
	if err != nil {
		return nil, "", fmt.Errorf("update booking status: %w", err)
	}
	if updated == nil {
		return nil, "", apperrors.Conflict("booking status changed concurrently, please retry")
	}
	return updated, current.Status, nil
}

func (s *BookingService) IsSlotAvailable(ctx context.Context, provinceID int64, date model.Date, at model.Clock) (bool, error) {
	return s.allocator.IsSlotAvailable(ctx, provinceID, date, at)
}

func (s *BookingService) ListAvailableSlots(ctx context.Context, provinceID int64, date model.Date) ([]model.Clock, error) {
	return s.allocator.ListAvailableSlots(ctx, provinceID, date)
}

func normalizeReference(reference string) string {
	return strings.ToUpper(strings.TrimSpace(reference))
}
