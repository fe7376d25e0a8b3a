package notify

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/zimid/booking-server-go/internal/model"
)

type EventType string

const (
	EventCreated   EventType = "CREATED"
	EventUpdated   EventType = "UPDATED"
	EventCancelled EventType = "CANCELLED"
)

const taskPrefix = "booking:"

const maxTaskRetry = 5

var (
	TypeBookingCreated   = TaskType(EventCreated)
	TypeBookingUpdated   = TaskType(EventUpdated)
	TypeBookingCancelled = TaskType(EventCancelled)
)

// TaskType is the asynq task type carrying events of type t.
func TaskType(t EventType) string {
	return taskPrefix + strings.ToLower(string(t))
}

// Event is a booking lifecycle notification. It is a snapshot of the
// booking at publish time.
type Event struct {
	ID          string              `json:"id"`
	Type        EventType           `json:"type"`
	Reference   string              `json:"reference"`
	FullName    string              `json:"fullName"`
	Phone       string              `json:"phone"`
	Email       string              `json:"email"`
	OfficeName  string              `json:"officeName"`
	ServiceName string              `json:"serviceName"`
	Date        model.Date          `json:"date"`
	Time        model.Clock         `json:"time"`
	Status      model.BookingStatus `json:"status"`
	Timestamp   time.Time           `json:"timestamp"`
}

func NewEvent(t EventType, b *model.Booking) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        t,
		Reference:   b.Reference,
		FullName:    b.FullName,
		Phone:       b.PhoneNumber,
		Email:       b.Email,
		OfficeName:  b.OfficeName,
		ServiceName: b.ServiceName,
		Date:        b.AppointmentDate,
		Time:        b.AppointmentTime,
		Status:      b.Status,
		Timestamp:   time.Now().UTC(),
	}
}

// NewTask wraps the event in an asynq task. The task id is the event id so a
// re-enqueued event is rejected as a duplicate.
func NewTask(e Event, queue string) (*asynq.Task, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskType(e.Type), payload,
		asynq.TaskID(e.ID),
		asynq.Queue(queue),
		asynq.MaxRetry(maxTaskRetry),
	), nil
}

func decodeEvent(t *asynq.Task) (Event, error) {
	var e Event
	err := json.Unmarshal(t.Payload(), &e)
	return e, err
}
