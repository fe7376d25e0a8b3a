package ussd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	apperrors "github.com/zimid/booking-server-go/internal/errors"
	"github.com/zimid/booking-server-go/internal/model"
	"github.com/zimid/booking-server-go/internal/notify"
	"github.com/zimid/booking-server-go/internal/session"
	"github.com/zimid/booking-server-go/internal/util"
)

type Catalog interface {
	ListActiveOffices(ctx context.Context) ([]model.Province, error)
	ListActiveServices(ctx context.Context) ([]model.ServiceType, error)
}

type Slots interface {
	ListAvailableSlots(ctx context.Context, provinceID int64, date model.Date) ([]model.Clock, error)
}

type Bookings interface {
	Create(ctx context.Context, draft model.BookingDraft) (*model.Booking, error)
	GetByReference(ctx context.Context, reference string) (*model.Booking, error)
}

// Request is one callback from the USSD gateway. Text accumulates every
// input of the conversation joined with '*'.
type Request struct {
	SessionID   string
	ServiceCode string
	PhoneNumber string
	Text        string
}

type Reply struct {
	Text string
	End  bool
}

func (r Reply) String() string {
	if r.End {
		return "END " + r.Text
	}
	return "CON " + r.Text
}

func cont(text string) Reply { return Reply{Text: text} }
func end(text string) Reply  { return Reply{Text: text, End: true} }

type Config struct {
	HelpLine     string
	HelpURL      string
	MaxDaysAhead int
	Location     *time.Location
}

// Engine drives the booking menu. All conversation state lives in the
// session store; the engine itself holds none between requests.
type Engine struct {
	store    session.Store
	catalog  Catalog
	slots    Slots
	bookings Bookings
	cfg      Config
	now      func() time.Time
}

func NewEngine(store session.Store, catalog Catalog, slots Slots, bookings Bookings, cfg Config) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Engine{
		store:    store,
		catalog:  catalog,
		slots:    slots,
		bookings: bookings,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (e *Engine) today() model.Date {
	return model.DateOf(e.now().In(e.cfg.Location))
}

// Handle answers one gateway request. It never fails: faults become a
// terminal reply and are logged.
func (e *Engine) Handle(ctx context.Context, req Request) Reply {
	logger := log.With().
		Str("sessionId", req.SessionID).
		Str("serviceCode", req.ServiceCode).
		Str("phone", util.MaskPhone(req.PhoneNumber)).
		Logger()

	sess, err := e.store.Get(ctx, req.SessionID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load ussd session")
		return end(msgUnavailable)
	}

	input, first := lastInput(req.Text)
	if sess == nil || first {
		sess = &model.UssdSession{
			SessionID:   req.SessionID,
			PhoneNumber: req.PhoneNumber,
			State:       model.MenuMainMenu,
			StartedAt:   e.now().UTC(),
		}
		logger.Info().Msg("ussd session started")
		return e.persist(ctx, logger, sess, cont(msgMainMenu))
	}

	if err := sess.Validate(); err != nil {
		logger.Warn().Err(err).Msg("discarding inconsistent ussd session")
		e.discard(ctx, logger, req.SessionID)
		return end(msgInvalidState)
	}

	next, reply := e.step(ctx, logger, *sess, input)
	logger.Debug().
		Str("from", string(sess.State)).
		Str("to", string(next.State)).
		Bool("end", reply.End).
		Msg("ussd transition")

	if reply.End {
		e.discard(ctx, logger, req.SessionID)
		return reply
	}
	return e.persist(ctx, logger, &next, reply)
}

func (e *Engine) persist(ctx context.Context, logger zerolog.Logger, sess *model.UssdSession, reply Reply) Reply {
	if err := e.store.Set(ctx, sess); err != nil {
		logger.Error().Err(err).Msg("failed to save ussd session")
		return end(msgUnavailable)
	}
	return reply
}

func (e *Engine) discard(ctx context.Context, logger zerolog.Logger, id string) {
	if err := e.store.Delete(ctx, id); err != nil {
		logger.Warn().Err(err).Msg("failed to delete ussd session")
	}
}

// lastInput returns the newest '*'-separated token. first is true when the
// request carries no input at all.
func lastInput(text string) (input string, first bool) {
	if text == "" {
		return "", true
	}
	if i := strings.LastIndexByte(text, '*'); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimSpace(text), false
}

// step computes the next session and reply for one input. sess is a copy;
// on a terminal reply the returned session is discarded.
func (e *Engine) step(ctx context.Context, logger zerolog.Logger, sess model.UssdSession, input string) (model.UssdSession, Reply) {
	switch sess.State {
	case model.MenuMainMenu:
		return e.mainMenu(ctx, logger, sess, input)
	case model.MenuSelectProvince:
		return e.selectProvince(ctx, logger, sess, input)
	case model.MenuSelectService:
		return e.selectService(ctx, logger, sess, input)
	case model.MenuSelectDate:
		return e.selectDate(ctx, logger, sess, input)
	case model.MenuEnterDate:
		return e.enterDate(ctx, logger, sess, input)
	case model.MenuSelectTime:
		return e.selectTime(ctx, logger, sess, input)
	case model.MenuEnterName:
		return e.enterName(sess, input)
	case model.MenuEnterDOB:
		return e.enterDOB(sess, input)
	case model.MenuConfirmBooking:
		return e.confirm(ctx, logger, sess, input)
	case model.MenuLookupBooking:
		return e.lookup(ctx, logger, sess, input)
	}
	return sess, end(msgInvalidState)
}

func (e *Engine) mainMenu(ctx context.Context, logger zerolog.Logger, sess model.UssdSession, input string) (model.UssdSession, Reply) {
	switch input {
	case "1":
		return e.showOffices(ctx, logger, sess)
	case "2":
		sess.State = model.MenuLookupBooking
		return sess, cont(msgEnterReference)
	case "3":
		return sess, end(fmt.Sprintf(msgHelp, e.cfg.HelpLine, e.cfg.HelpURL))
	}
	return sess, end(msgInvalidOption)
}

func (e *Engine) showOffices(ctx context.Context, logger zerolog.Logger, sess model.UssdSession) (model.UssdSession, Reply) {
	offices, err := e.catalog.ListActiveOffices(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list offices")
		return sess, end(msgUnavailable)
	}
	sess.State = model.MenuSelectProvince
	return sess, cont(officeMenu(offices))
}

func (e *Engine) showServices(ctx context.Context, logger zerolog.Logger, sess model.UssdSession) (model.UssdSession, Reply) {
	services, err := e.catalog.ListActiveServices(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list services")
		return sess, end(msgUnavailable)
	}
	sess.State = model.MenuSelectService
	return sess, cont(serviceMenu(services))
}

func (e *Engine) showDates(sess model.UssdSession) (model.UssdSession, Reply) {
	sess.State = model.MenuSelectDate
	return sess, cont(dateMenu(e.today()))
}

// showTimes lists open slots for date and records it only when some exist.
func (e *Engine) showTimes(ctx context.Context, logger zerolog.Logger, sess model.UssdSession, date model.Date) (model.UssdSession, Reply) {
	slots, err := e.slots.ListAvailableSlots(ctx, sess.Draft.ProvinceID, date)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list available slots")
		return sess, end(msgUnavailable)
	}
	if len(slots) == 0 {
		return sess, end(msgNoSlots)
	}
	sess.Draft.Date = date
	sess.State = model.MenuSelectTime
	return sess, cont(timeMenu(slots))
}

func (e *Engine) selectProvince(ctx context.Context, logger zerolog.Logger, sess model.UssdSession, input string) (model.UssdSession, Reply) {
	if input == back {
		sess.State = model.MenuMainMenu
		return sess, cont(msgMainMenu)
	}

	offices, err := e.catalog.ListActiveOffices(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list offices")
		return sess, end(msgUnavailable)
	}
	offices = capList(offices, maxOfficeItems)
	n, ok := choice(input, len(offices))
	if !ok {
		return sess, end(msgInvalidChoice)
	}

	picked := offices[n-1]
	sess.Draft.ProvinceID = picked.ID
	sess.Draft.ProvinceName = picked.Name
	return e.showServices(ctx, logger, sess)
}

func (e *Engine) selectService(ctx context.Context, logger zerolog.Logger, sess model.UssdSession, input string) (model.UssdSession, Reply) {
	if input == back {
		return e.showOffices(ctx, logger, sess)
	}

	services, err := e.catalog.ListActiveServices(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list services")
		return sess, end(msgUnavailable)
	}
	n, ok := choice(input, len(services))
	if !ok {
		return sess, end(msgInvalidChoice)
	}

	picked := services[n-1]
	sess.Draft.ServiceID = picked.ID
	sess.Draft.ServiceName = picked.Name
	return e.showDates(sess)
}

func (e *Engine) selectDate(ctx context.Context, logger zerolog.Logger, sess model.UssdSession, input string) (model.UssdSession, Reply) {
	switch input {
	case back:
		return e.showServices(ctx, logger, sess)
	case laterDates:
		sess.State = model.MenuEnterDate
		return sess, cont(msgEnterDate)
	}

	n, ok := choice(input, dateMenuDays)
	if !ok {
		return sess, end(msgInvalidChoice)
	}
	return e.showTimes(ctx, logger, sess, e.today().AddDays(n))
}

func (e *Engine) enterDate(ctx context.Context, logger zerolog.Logger, sess model.UssdSession, input string) (model.UssdSession, Reply) {
	if input == back {
		return e.showDates(sess)
	}

	invalid := end(fmt.Sprintf(msgInvalidDate, e.cfg.MaxDaysAhead))
	date, err := model.ParseDate(dobLayout, input)
	if err != nil {
		return sess, invalid
	}
	today := e.today()
	if date.Before(today) || date.After(today.AddDays(e.cfg.MaxDaysAhead)) {
		return sess, invalid
	}
	return e.showTimes(ctx, logger, sess, date)
}

func (e *Engine) selectTime(ctx context.Context, logger zerolog.Logger, sess model.UssdSession, input string) (model.UssdSession, Reply) {
	if input == back {
		return e.showDates(sess)
	}

	slots, err := e.slots.ListAvailableSlots(ctx, sess.Draft.ProvinceID, sess.Draft.Date)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list available slots")
		return sess, end(msgUnavailable)
	}
	slots = capList(slots, maxTimeItems)
	n, ok := choice(input, len(slots))
	if !ok {
		return sess, end(msgInvalidChoice)
	}

	picked := slots[n-1]
	sess.Draft.Time = &picked
	sess.State = model.MenuEnterName
	return sess, cont(msgEnterName)
}

func (e *Engine) enterName(sess model.UssdSession, input string) (model.UssdSession, Reply) {
	switch n := util.NameLength(input); {
	case n < 2:
		return sess, end(msgNameTooShort)
	case n > 200:
		return sess, end(msgNameTooLong)
	}
	sess.Draft.FullName = strings.TrimSpace(input)
	sess.State = model.MenuEnterDOB
	return sess, cont(msgEnterDOB)
}

func (e *Engine) enterDOB(sess model.UssdSession, input string) (model.UssdSession, Reply) {
	dob, err := model.ParseDate(dobLayout, input)
	if err != nil {
		return sess, end(msgInvalidDOBFmt)
	}
	if !dob.Before(e.today()) {
		return sess, end(msgInvalidDOB)
	}
	sess.Draft.DateOfBirth = input
	sess.State = model.MenuConfirmBooking
	return sess, cont(confirmSummary(sess.Draft))
}

func (e *Engine) confirm(ctx context.Context, logger zerolog.Logger, sess model.UssdSession, input string) (model.UssdSession, Reply) {
	switch input {
	case "2":
		logger.Info().Msg("ussd booking cancelled by caller")
		return sess, end(msgBookingCanceled)
	case "1":
	default:
		return sess, end(msgInvalidConfirm)
	}

	dob, err := model.ParseDate(dobLayout, sess.Draft.DateOfBirth)
	if err != nil {
		return sess, end(msgInvalidDOBFmt)
	}

	booking, err := e.bookings.Create(ctx, model.BookingDraft{
		FullName:        sess.Draft.FullName,
		DateOfBirth:     dob,
		PhoneNumber:     sess.PhoneNumber,
		Email:           sess.PhoneNumber + "@" + notify.SyntheticEmailDomain,
		ProvinceID:      sess.Draft.ProvinceID,
		ServiceID:       sess.Draft.ServiceID,
		AppointmentDate: sess.Draft.Date,
		AppointmentTime: sess.Draft.Time,
		Channel:         model.BookingChannelUSSD,
		Notes:           "Created via USSD",
	})
	if err != nil {
		return sess, e.creationFailure(logger, err)
	}

	logger.Info().Str("reference", booking.Reference).Msg("ussd booking created")
	return sess, end(confirmedMessage(booking, sess.Draft))
}

func (e *Engine) creationFailure(logger zerolog.Logger, err error) Reply {
	code := apperrors.GetCode(err)
	logger.Warn().Err(err).Str("code", string(code)).Msg("ussd booking not created")

	switch code {
	case apperrors.ErrCodeSlotUnavailable:
		return end(msgSlotTaken)
	case apperrors.ErrCodeCapacityExceeded:
		return end(msgOfficeFull)
	case apperrors.ErrCodeDateInPast, apperrors.ErrCodeDateTooFarAhead:
		return end(msgDateGone)
	case apperrors.ErrCodeInvalidOffice, apperrors.ErrCodeInvalidService:
		return end(msgCatalogGone)
	}
	return end(fmt.Sprintf(msgBookingFailed, e.cfg.HelpLine))
}

func (e *Engine) lookup(ctx context.Context, logger zerolog.Logger, sess model.UssdSession, input string) (model.UssdSession, Reply) {
	reference := strings.ToUpper(strings.TrimSpace(input))
	if !util.IsValidReference(reference) {
		return sess, end(msgNotFound)
	}

	booking, err := e.bookings.GetByReference(ctx, reference)
	if apperrors.GetCode(err) == apperrors.ErrCodeNotFound {
		return sess, end(msgNotFound)
	}
	if err != nil {
		logger.Error().Err(err).Str("reference", reference).Msg("booking lookup failed")
		return sess, end(msgUnavailable)
	}
	return sess, end(foundMessage(booking))
}
