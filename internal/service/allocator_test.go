package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zimid/booking-server-go/internal/errors"
	"github.com/zimid/booking-server-go/internal/model"
)

func seedSlot(f *fixture, provinceID int64, date model.Date, at model.Clock, n int, status model.BookingStatus) {
	for i := 0; i < n; i++ {
		f.ledger.seed(model.Booking{ProvinceID: provinceID, AppointmentDate: date, AppointmentTime: at, Status: status})
	}
}

func TestSlotAllocator_IsSlotAvailable(t *testing.T) {
	ctx := context.Background()
	nine := model.NewClock(9, 0)

	t.Run("empty slot is available", func(t *testing.T) {
		f := newFixture()
		ok, err := f.allocator.IsSlotAvailable(ctx, 1, tomorrow, nine)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("slot with three active bookings is full", func(t *testing.T) {
		f := newFixture()
		seedSlot(f, 1, tomorrow, nine, 3, model.BookingStatusConfirmed)
		ok, err := f.allocator.IsSlotAvailable(ctx, 1, tomorrow, nine)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("cancelled and no-show bookings free the slot", func(t *testing.T) {
		f := newFixture()
		seedSlot(f, 1, tomorrow, nine, 2, model.BookingStatusConfirmed)
		seedSlot(f, 1, tomorrow, nine, 1, model.BookingStatusCancelled)
		seedSlot(f, 1, tomorrow, nine, 1, model.BookingStatusNoShow)
		ok, err := f.allocator.IsSlotAvailable(ctx, 1, tomorrow, nine)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("other offices do not count", func(t *testing.T) {
		f := newFixture()
		seedSlot(f, 2, tomorrow, nine, 3, model.BookingStatusConfirmed)
		ok, err := f.allocator.IsSlotAvailable(ctx, 1, tomorrow, nine)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("time outside the grid is never available", func(t *testing.T) {
		f := newFixture()
		ok, err := f.allocator.IsSlotAvailable(ctx, 1, tomorrow, model.NewClock(13, 0))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ledger failure is returned", func(t *testing.T) {
		f := newFixture()
		f.ledger.failCount = errStoreDown
		_, err := f.allocator.IsSlotAvailable(ctx, 1, tomorrow, nine)
		require.ErrorIs(t, err, errStoreDown)
	})
}

func TestSlotAllocator_ListAvailableSlots(t *testing.T) {
	ctx := context.Background()

	t.Run("empty day lists the whole grid", func(t *testing.T) {
		f := newFixture()
		slots, err := f.allocator.ListAvailableSlots(ctx, 1, tomorrow)
		require.NoError(t, err)
		assert.Equal(t, model.SlotGrid, slots)
		assert.Len(t, slots, 15)
	})

	t.Run("full slots are removed and grid order kept", func(t *testing.T) {
		f := newFixture()
		seedSlot(f, 1, tomorrow, model.NewClock(8, 0), 3, model.BookingStatusConfirmed)
		seedSlot(f, 1, tomorrow, model.NewClock(14, 0), 3, model.BookingStatusPending)
		seedSlot(f, 1, tomorrow, model.NewClock(9, 0), 2, model.BookingStatusConfirmed)

		slots, err := f.allocator.ListAvailableSlots(ctx, 1, tomorrow)
		require.NoError(t, err)
		assert.Len(t, slots, 13)
		assert.NotContains(t, slots, model.NewClock(8, 0))
		assert.NotContains(t, slots, model.NewClock(14, 0))
		assert.Contains(t, slots, model.NewClock(9, 0))

		for i := 1; i < len(slots); i++ {
			assert.Less(t, int(slots[i-1]), int(slots[i]))
		}
		for _, s := range slots {
			ok, err := f.allocator.IsSlotAvailable(ctx, 1, tomorrow, s)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.True(t, model.IsGridSlot(s))
		}
	})

	t.Run("recomputed on every call", func(t *testing.T) {
		f := newFixture()
		first, err := f.allocator.ListAvailableSlots(ctx, 1, tomorrow)
		require.NoError(t, err)

		seedSlot(f, 1, tomorrow, model.NewClock(10, 0), 3, model.BookingStatusConfirmed)
		second, err := f.allocator.ListAvailableSlots(ctx, 1, tomorrow)
		require.NoError(t, err)

		assert.Len(t, first, 15)
		assert.Len(t, second, 14)
	})
}

func TestSlotAllocator_Admit(t *testing.T) {
	ctx := context.Background()
	nine := model.NewClock(9, 0)

	tests := []struct {
		name     string
		setup    func(f *fixture)
		req      AdmissionRequest
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "unknown office",
			req:      AdmissionRequest{ProvinceID: 99, ServiceID: 1, Date: tomorrow, Time: nine},
			wantCode: apperrors.ErrCodeInvalidOffice,
		},
		{
			name:     "inactive office",
			req:      AdmissionRequest{ProvinceID: 3, ServiceID: 1, Date: tomorrow, Time: nine},
			wantCode: apperrors.ErrCodeInvalidOffice,
		},
		{
			name:     "office is checked before service and date",
			req:      AdmissionRequest{ProvinceID: 3, ServiceID: 3, Date: today.AddDays(-5), Time: nine},
			wantCode: apperrors.ErrCodeInvalidOffice,
		},
		{
			name:     "inactive service",
			req:      AdmissionRequest{ProvinceID: 1, ServiceID: 3, Date: tomorrow, Time: nine},
			wantCode: apperrors.ErrCodeInvalidService,
		},
		{
			name:     "service is checked before date",
			req:      AdmissionRequest{ProvinceID: 1, ServiceID: 42, Date: today.AddDays(-1), Time: nine},
			wantCode: apperrors.ErrCodeInvalidService,
		},
		{
			name:     "date in the past",
			req:      AdmissionRequest{ProvinceID: 1, ServiceID: 1, Date: today.AddDays(-1), Time: nine},
			wantCode: apperrors.ErrCodeDateInPast,
		},
		{
			name:     "date beyond the booking horizon",
			req:      AdmissionRequest{ProvinceID: 1, ServiceID: 1, Date: today.AddDays(91), Time: nine},
			wantCode: apperrors.ErrCodeDateTooFarAhead,
		},
		{
			name: "full slot",
			setup: func(f *fixture) {
				seedSlot(f, 1, tomorrow, nine, 3, model.BookingStatusConfirmed)
			},
			req:      AdmissionRequest{ProvinceID: 1, ServiceID: 1, Date: tomorrow, Time: nine},
			wantCode: apperrors.ErrCodeSlotUnavailable,
		},
		{
			name: "slot is checked before daily capacity",
			setup: func(f *fixture) {
				f.ledger.provinces[1].DailyCapacity = 3
				seedSlot(f, 1, tomorrow, nine, 3, model.BookingStatusConfirmed)
			},
			req:      AdmissionRequest{ProvinceID: 1, ServiceID: 1, Date: tomorrow, Time: nine},
			wantCode: apperrors.ErrCodeSlotUnavailable,
		},
		{
			name: "daily capacity reached",
			setup: func(f *fixture) {
				f.ledger.provinces[1].DailyCapacity = 2
				seedSlot(f, 1, tomorrow, model.NewClock(8, 0), 1, model.BookingStatusConfirmed)
				seedSlot(f, 1, tomorrow, model.NewClock(15, 0), 1, model.BookingStatusInProgress)
			},
			req:      AdmissionRequest{ProvinceID: 1, ServiceID: 1, Date: tomorrow, Time: nine},
			wantCode: apperrors.ErrCodeCapacityExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f)
			}
			admission, err := f.allocator.Admit(ctx, f.bookings, tt.req)
			require.Error(t, err)
			assert.Nil(t, admission)
			assert.Equal(t, tt.wantCode, apperrors.GetCode(err))
			assert.True(t, apperrors.IsAdmissionRejection(err))
		})
	}

	t.Run("today and the last day of the horizon are admitted", func(t *testing.T) {
		f := newFixture()
		for _, d := range []model.Date{today, today.AddDays(90)} {
			admission, err := f.allocator.Admit(ctx, f.bookings, AdmissionRequest{ProvinceID: 1, ServiceID: 1, Date: d, Time: nine})
			require.NoError(t, err)
			assert.Equal(t, int64(1), admission.Province.ID)
			assert.Equal(t, int64(1), admission.Service.ID)
			assert.Equal(t, fixedNow, admission.ConfirmedAt)
		}
	})

	t.Run("catalog failure is not a rejection", func(t *testing.T) {
		f := newFixture()
		f.allocator.provinces = &fakeProvinceRepo{ledger: f.ledger, err: errStoreDown}
		_, err := f.allocator.Admit(ctx, f.bookings, AdmissionRequest{ProvinceID: 1, ServiceID: 1, Date: tomorrow, Time: nine})
		require.ErrorIs(t, err, errStoreDown)
		assert.False(t, apperrors.IsAdmissionRejection(err))
	})
}
