package notify

import (
	"fmt"
	"strings"
)

const (
	signature = "Registrar General Zimbabwe"
	dateShort = "02 Jan 2006"
	dateLong  = "02 January 2006"
)

// SyntheticEmailDomain is the domain of placeholder addresses given to
// bookings made over USSD. Mail is never sent to it.
const SyntheticEmailDomain = "ussd.zimid.gov.zw"

func smsText(e Event) string {
	switch e.Type {
	case EventCreated:
		return strings.Join([]string{
			"ZimID BOOKING CONFIRMED",
			"Ref: " + e.Reference,
			"Office: " + e.OfficeName,
			fmt.Sprintf("Date: %s at %s", e.Date.Format(dateShort), e.Time.Kitchen()),
			"Service: " + e.ServiceName,
			"Bring all required documents.",
			signature,
		}, "\n")
	case EventUpdated:
		return strings.Join([]string{
			"ZimID BOOKING UPDATED",
			"Ref: " + e.Reference,
			"Status: " + string(e.Status),
			"Office: " + e.OfficeName,
			"Check your email for details.",
			signature,
		}, "\n")
	case EventCancelled:
		return strings.Join([]string{
			"ZimID BOOKING CANCELLED",
			"Ref: " + e.Reference,
			"Your appointment has been cancelled.",
			"You can book a new appointment anytime.",
			signature,
		}, "\n")
	}
	return ""
}

func emailSubject(e Event) string {
	switch e.Type {
	case EventCreated:
		return "ZimID Booking Confirmation - " + e.Reference
	case EventUpdated:
		return "ZimID Booking Update - " + e.Reference
	case EventCancelled:
		return "ZimID Booking Cancelled - " + e.Reference
	}
	return "ZimID Booking - " + e.Reference
}

func emailBody(e Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", e.FullName)
	switch e.Type {
	case EventCreated:
		b.WriteString("Your appointment has been booked.\n\n")
		fmt.Fprintf(&b, "Reference: %s\n", e.Reference)
		fmt.Fprintf(&b, "Office: %s\n", e.OfficeName)
		fmt.Fprintf(&b, "Service: %s\n", e.ServiceName)
		fmt.Fprintf(&b, "Date: %s\n", e.Date.Format(dateLong))
		fmt.Fprintf(&b, "Time: %s\n\n", e.Time.Kitchen())
		b.WriteString("Please arrive 15 minutes early and bring all required documents.\n")
	case EventUpdated:
		b.WriteString("Your appointment has been updated.\n\n")
		fmt.Fprintf(&b, "Reference: %s\n", e.Reference)
		fmt.Fprintf(&b, "Status: %s\n", e.Status)
		fmt.Fprintf(&b, "Office: %s\n", e.OfficeName)
		fmt.Fprintf(&b, "Date: %s\n", e.Date.Format(dateLong))
		fmt.Fprintf(&b, "Time: %s\n", e.Time.Kitchen())
	case EventCancelled:
		b.WriteString("Your appointment has been cancelled.\n\n")
		fmt.Fprintf(&b, "Reference: %s\n", e.Reference)
		fmt.Fprintf(&b, "Office: %s\n", e.OfficeName)
		fmt.Fprintf(&b, "Date: %s\n\n", e.Date.Format(dateLong))
		b.WriteString("You can book a new appointment anytime.\n")
	}
	b.WriteString("\n" + signature + "\n")
	return b.String()
}
