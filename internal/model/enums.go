package model

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "PENDING"
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"
	BookingStatusInProgress BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted  BookingStatus = "COMPLETED"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
	BookingStatusNoShow     BookingStatus = "NO_SHOW"
)

// bookingTransitions lists the statuses reachable from each non-terminal status.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusInProgress, BookingStatusNoShow, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
}

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s BookingStatus) IsTerminal() bool {
	return s.IsValid() && len(bookingTransitions[s]) == 0
}

// CountsTowardCapacity reports whether a booking in status s occupies a slot.
func (s BookingStatus) CountsTowardCapacity() bool {
	return s != BookingStatusCancelled && s != BookingStatusNoShow
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type BookingChannel string

const (
	BookingChannelWeb    BookingChannel = "WEB"
	BookingChannelMobile BookingChannel = "MOBILE"
	BookingChannelUSSD   BookingChannel = "USSD"
	BookingChannelAdmin  BookingChannel = "ADMIN"
)

func (c BookingChannel) IsValid() bool {
	switch c {
	case BookingChannelWeb, BookingChannelMobile, BookingChannelUSSD, BookingChannelAdmin:
		return true
	}
	return false
}
