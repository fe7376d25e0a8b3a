package ussd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zimid/booking-server-go/internal/model"
)

const (
	maxOfficeItems = 10
	maxTimeItems   = 8
	dateMenuDays   = 7
	laterDates     = "8"
	back           = "0"

	dobLayout     = "02/01/2006"
	summaryLayout = "02 Jan 2006"
	menuDate      = "Mon, 02 Jan"
)

const (
	msgMainMenu        = "Welcome to ZimID Booking\n1. Book Appointment\n2. Check My Booking\n3. Help"
	msgEnterReference  = "Enter your booking reference:"
	msgEnterDate       = "Enter date (DD/MM/YYYY):\n0. Back"
	msgEnterName       = "Enter your full name:"
	msgEnterDOB        = "Enter date of birth (DD/MM/YYYY):"
	msgUnavailable     = "Service temporarily unavailable. Please try again later."
	msgInvalidOption   = "Invalid option. Please try again."
	msgInvalidChoice   = "Invalid selection. Please try again."
	msgInvalidState    = "Invalid menu state. Please try again."
	msgInvalidConfirm  = "Invalid option."
	msgNoSlots         = "No slots available for this date. Please try another date."
	msgInvalidDate     = "Invalid date. Enter a date from today within the next %d days as DD/MM/YYYY."
	msgNameTooShort    = "Name too short. Please try again."
	msgNameTooLong     = "Name too long. Please try again."
	msgInvalidDOB      = "Invalid date of birth. Please try again."
	msgInvalidDOBFmt   = "Invalid date format. Use DD/MM/YYYY."
	msgBookingCanceled = "Booking cancelled."
	msgBookingFailed   = "Booking failed. Please try again or call %s."
	msgSlotTaken       = "Sorry, that time slot is now full. Please start again and choose another time."
	msgOfficeFull      = "Sorry, the office is fully booked for that date. Please choose another date."
	msgDateGone        = "The selected date can no longer be booked. Please start again."
	msgCatalogGone     = "The selected office or service is no longer available. Please start again."
	msgNotFound        = "Booking not found. Please check the reference number."
	msgHelp            = "Call %s for assistance or visit %s"
)

func officeMenu(offices []model.Province) string {
	var b strings.Builder
	b.WriteString("Select Province:\n")
	for i, o := range capList(offices, maxOfficeItems) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, o.Name)
	}
	b.WriteString("0. Back")
	return b.String()
}

func serviceMenu(services []model.ServiceType) string {
	var b strings.Builder
	b.WriteString("Select Service:\n")
	for i, s := range services {
		fmt.Fprintf(&b, "%d. %s ($%s)\n", i+1, s.Name, s.Fee)
	}
	b.WriteString("0. Back")
	return b.String()
}

func dateMenu(today model.Date) string {
	var b strings.Builder
	b.WriteString("Select Date:\n")
	for i := 1; i <= dateMenuDays; i++ {
		fmt.Fprintf(&b, "%d. %s\n", i, today.AddDays(i).Format(menuDate))
	}
	b.WriteString("8. Later dates\n")
	b.WriteString("0. Back")
	return b.String()
}

func timeMenu(slots []model.Clock) string {
	var b strings.Builder
	b.WriteString("Select Time:\n")
	for i, s := range capList(slots, maxTimeItems) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.Kitchen())
	}
	b.WriteString("0. Back")
	return b.String()
}

func confirmSummary(d model.SessionDraft) string {
	return "Confirm Booking:\n" +
		"Name: " + d.FullName + "\n" +
		"Office: " + d.ProvinceName + "\n" +
		"Service: " + d.ServiceName + "\n" +
		"Date: " + d.Date.Format(summaryLayout) + "\n" +
		"Time: " + d.Time.Kitchen() + "\n\n" +
		"1. Confirm\n" +
		"2. Cancel"
}

func confirmedMessage(b *model.Booking, d model.SessionDraft) string {
	return "Booking Confirmed!\n" +
		"Ref: " + b.Reference + "\n" +
		"Office: " + d.ProvinceName + "\n" +
		"Date: " + d.Date.Format(summaryLayout) + "\n" +
		"Time: " + d.Time.Kitchen() + "\n" +
		"SMS confirmation sent."
}

func foundMessage(b *model.Booking) string {
	return "Booking Found:\n" +
		"Ref: " + b.Reference + "\n" +
		"Name: " + b.FullName + "\n" +
		"Office: " + b.ProvinceName + "\n" +
		"Date: " + b.AppointmentDate.Format(summaryLayout) + "\n" +
		"Time: " + b.AppointmentTime.Kitchen() + "\n" +
		"Status: " + string(b.Status)
}

// choice parses a 1-based menu selection within [1, count].
func choice(input string, count int) (int, bool) {
	if input == "" || strings.TrimLeft(input, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > count {
		return 0, false
	}
	return n, true
}

func capList[T any](items []T, max int) []T {
	if len(items) > max {
		return items[:max]
	}
	return items
}
