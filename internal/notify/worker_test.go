package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMessenger struct {
	mock.Mock
}

func (m *mockMessenger) Send(ctx context.Context, to, message string) error {
	args := m.Called(ctx, to, message)
	return args.Error(0)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

func TestHandler_ProcessTask(t *testing.T) {
	t.Run("sends sms and email for created booking", func(t *testing.T) {
		sms := new(mockMessenger)
		mail := new(mockMailer)
		h := NewHandler(sms, mail)

		sms.On("Send", mock.Anything, "+263771234567", mock.MatchedBy(func(msg string) bool {
			return strings.HasPrefix(msg, "ZimID BOOKING CONFIRMED") && strings.Contains(msg, "Ref: ZW-2026-1234")
		})).Return(nil)
		mail.On("Send", mock.Anything, "john@example.com", "ZimID Booking Confirmation - ZW-2026-1234", mock.Anything).Return(nil)

		task, err := NewTask(NewEvent(EventCreated, sampleBooking()), "notifications")
		require.NoError(t, err)

		require.NoError(t, h.ProcessTask(context.Background(), task))
		sms.AssertExpectations(t)
		mail.AssertExpectations(t)
	})

	t.Run("skips email for ussd placeholder address", func(t *testing.T) {
		sms := new(mockMessenger)
		mail := new(mockMailer)
		h := NewHandler(sms, mail)

		b := sampleBooking()
		b.Email = "+263771234567@" + SyntheticEmailDomain
		sms.On("Send", mock.Anything, "+263771234567", mock.Anything).Return(nil)

		task, err := NewTask(NewEvent(EventCancelled, b), "notifications")
		require.NoError(t, err)

		require.NoError(t, h.ProcessTask(context.Background(), task))
		mail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("returns delivery errors for retry", func(t *testing.T) {
		sms := new(mockMessenger)
		mail := new(mockMailer)
		h := NewHandler(sms, mail)

		sms.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("gateway down"))
		mail.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		task, err := NewTask(NewEvent(EventUpdated, sampleBooking()), "notifications")
		require.NoError(t, err)

		err = h.ProcessTask(context.Background(), task)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gateway down")
		assert.False(t, errors.Is(err, asynq.SkipRetry))
	})

	t.Run("malformed payload skips retry", func(t *testing.T) {
		h := NewHandler(new(mockMessenger), new(mockMailer))

		err := h.ProcessTask(context.Background(), asynq.NewTask(TypeBookingCreated, []byte("{not json")))
		require.Error(t, err)
		assert.True(t, errors.Is(err, asynq.SkipRetry))
	})
}
