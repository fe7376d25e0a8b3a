package model

import (
	"fmt"
	"time"
)

// MenuState is the position of a USSD conversation in the booking menu.
type MenuState string

const (
	MenuMainMenu       MenuState = "MAIN_MENU"
	MenuSelectProvince MenuState = "SELECT_PROVINCE"
	MenuSelectService  MenuState = "SELECT_SERVICE"
	MenuSelectDate     MenuState = "SELECT_DATE"
	MenuEnterDate      MenuState = "ENTER_DATE"
	MenuSelectTime     MenuState = "SELECT_TIME"
	MenuEnterName      MenuState = "ENTER_NAME"
	MenuEnterDOB       MenuState = "ENTER_DOB"
	MenuConfirmBooking MenuState = "CONFIRM_BOOKING"
	MenuLookupBooking  MenuState = "LOOKUP_BOOKING"
)

// SessionDraft holds the booking fields collected so far.
type SessionDraft struct {
	ProvinceID   int64  `json:"provinceId,omitempty"`
	ProvinceName string `json:"provinceName,omitempty"`
	ServiceID    int64  `json:"serviceId,omitempty"`
	ServiceName  string `json:"serviceName,omitempty"`
	Date         Date   `json:"date"`
	Time         *Clock `json:"time,omitempty"`
	FullName     string `json:"fullName,omitempty"`
	DateOfBirth  string `json:"dateOfBirth,omitempty"`
}

// UssdSession is the stored state of one in-progress USSD conversation.
type UssdSession struct {
	SessionID   string       `json:"sessionId"`
	PhoneNumber string       `json:"phoneNumber"`
	State       MenuState    `json:"state"`
	Draft       SessionDraft `json:"draft"`
	StartedAt   time.Time    `json:"startedAt"`
}

type draftField int

const (
	fieldProvince draftField = iota
	fieldService
	fieldDate
	fieldTime
	fieldName
	fieldDOB
)

var draftFieldNames = map[draftField]string{
	fieldProvince: "province",
	fieldService:  "service",
	fieldDate:     "date",
	fieldTime:     "time",
	fieldName:     "full name",
	fieldDOB:      "date of birth",
}

// requiredFields maps each state to the draft fields that must already be set.
var requiredFields = map[MenuState][]draftField{
	MenuMainMenu:       nil,
	MenuLookupBooking:  nil,
	MenuSelectProvince: nil,
	MenuSelectService:  {fieldProvince},
	MenuSelectDate:     {fieldProvince, fieldService},
	MenuEnterDate:      {fieldProvince, fieldService},
	MenuSelectTime:     {fieldProvince, fieldService, fieldDate},
	MenuEnterName:      {fieldProvince, fieldService, fieldDate, fieldTime},
	MenuEnterDOB:       {fieldProvince, fieldService, fieldDate, fieldTime, fieldName},
	MenuConfirmBooking: {fieldProvince, fieldService, fieldDate, fieldTime, fieldName, fieldDOB},
}

func (d SessionDraft) has(f draftField) bool {
	switch f {
	case fieldProvince:
		return d.ProvinceID != 0
	case fieldService:
		return d.ServiceID != 0
	case fieldDate:
		return !d.Date.IsZero()
	case fieldTime:
		return d.Time != nil
	case fieldName:
		return d.FullName != ""
	case fieldDOB:
		return d.DateOfBirth != ""
	}
	return false
}

// Validate checks that the session's state is known and that every draft
// field the state depends on is present.
func (s *UssdSession) Validate() error {
	fields, ok := requiredFields[s.State]
	if !ok {
		return fmt.Errorf("unknown menu state %q", s.State)
	}
	for _, f := range fields {
		if !s.Draft.has(f) {
			return fmt.Errorf("state %s requires %s", s.State, draftFieldNames[f])
		}
	}
	return nil
}
