package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/zimid/booking-server-go/internal/database"
	"github.com/zimid/booking-server-go/internal/model"
	"github.com/zimid/booking-server-go/internal/notify"
	"github.com/zimid/booking-server-go/internal/repository"
)

var fixedNow = time.Date(2026, time.October, 18, 10, 0, 0, 0, time.UTC)

var (
	today    = model.DateOf(fixedNow)
	tomorrow = today.AddDays(1)
)

// ledger is an in-memory stand-in for the bookings table with per-transaction
// pending rows and advisory day locks held until the transaction ends.
type ledger struct {
	mu        sync.Mutex
	committed []model.Booking
	pending   map[*sqlx.Tx][]model.Booking
	dayLocks  map[string]*sync.Mutex
	held      map[*sqlx.Tx][]*sync.Mutex
	nextID    int64
	taken     map[string]bool
	provinces map[int64]*model.Province
	services  map[int64]*model.ServiceType
	failCount error
}

func newLedger() *ledger {
	return &ledger{
		pending:  map[*sqlx.Tx][]model.Booking{},
		dayLocks: map[string]*sync.Mutex{},
		held:     map[*sqlx.Tx][]*sync.Mutex{},
		taken:    map[string]bool{},
		provinces: map[int64]*model.Province{
			1: {ID: 1, Code: "HRE", Name: "Harare", OfficeName: "Harare Central Registry", DailyCapacity: 100, Active: true},
			2: {ID: 2, Code: "BYO", Name: "Bulawayo", OfficeName: "Bulawayo Registry", DailyCapacity: 100, Active: true},
			3: {ID: 3, Code: "MAS", Name: "Masvingo", OfficeName: "Masvingo Registry", DailyCapacity: 100, Active: false},
		},
		services: map[int64]*model.ServiceType{
			1: {ID: 1, Code: "NID", Name: "National ID", Fee: "10.00", Currency: "USD", Active: true},
			2: {ID: 2, Code: "PPT", Name: "Passport", Fee: "120.00", Currency: "USD", Active: true},
			3: {ID: 3, Code: "OLD", Name: "Retired Service", Fee: "0.00", Currency: "USD", Active: false},
		},
	}
}

func (l *ledger) seed(b model.Booking) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	b.ID = l.nextID
	if b.Reference == "" {
		b.Reference = fmt.Sprintf("ZW-2026-%04d", 1000+b.ID)
	}
	l.committed = append(l.committed, b)
}

func (l *ledger) finish(tx *sqlx.Tx, commit bool) {
	l.mu.Lock()
	if commit {
		l.committed = append(l.committed, l.pending[tx]...)
	}
	delete(l.pending, tx)
	locks := l.held[tx]
	delete(l.held, tx)
	l.mu.Unlock()

	for _, m := range locks {
		m.Unlock()
	}
}

// visible returns committed rows plus the rows pending in tx.
func (l *ledger) visible(tx *sqlx.Tx) []model.Booking {
	rows := append([]model.Booking{}, l.committed...)
	if tx != nil {
		rows = append(rows, l.pending[tx]...)
	}
	return rows
}

func (l *ledger) committedCount(provinceID int64, date model.Date, at *model.Clock) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, b := range l.committed {
		if b.ProvinceID == provinceID && b.AppointmentDate == date && b.Status.CountsTowardCapacity() &&
			(at == nil || b.AppointmentTime == *at) {
			n++
		}
	}
	return n
}

type fakeTransactor struct {
	ledger *ledger
}

var _ database.Transactor = (*fakeTransactor)(nil)

func (f *fakeTransactor) WithTx(ctx context.Context, fn database.TxFunc) error {
	tx := new(sqlx.Tx)
	err := fn(tx)
	f.ledger.finish(tx, err == nil)
	return err
}

type fakeBookingRepo struct {
	ledger *ledger
	tx     *sqlx.Tx
}

var _ repository.BookingRepository = (*fakeBookingRepo)(nil)

func (r *fakeBookingRepo) WithTx(tx *sqlx.Tx) repository.BookingRepository {
	return &fakeBookingRepo{ledger: r.ledger, tx: tx}
}

func (r *fakeBookingRepo) FindByReference(ctx context.Context, reference string) (*model.Booking, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	for _, b := range r.ledger.visible(r.tx) {
		if b.Reference == reference {
			found := b
			return &found, nil
		}
	}
	return nil, nil
}

func (r *fakeBookingRepo) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	if r.ledger.taken[reference] {
		return true, nil
	}
	for _, b := range r.ledger.visible(r.tx) {
		if b.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBookingRepo) filter(match func(model.Booking) bool) []model.Booking {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	out := []model.Booking{}
	for _, b := range r.ledger.visible(r.tx) {
		if match(b) {
			out = append(out, b)
		}
	}
	return out
}

func (r *fakeBookingRepo) FindByPhone(ctx context.Context, phone string) ([]model.Booking, error) {
	return r.filter(func(b model.Booking) bool { return b.PhoneNumber == phone }), nil
}

func (r *fakeBookingRepo) FindByEmail(ctx context.Context, email string) ([]model.Booking, error) {
	return r.filter(func(b model.Booking) bool { return b.Email == email }), nil
}

func (r *fakeBookingRepo) Search(ctx context.Context, term string, limit, offset int) ([]model.Booking, error) {
	rows := r.filter(func(b model.Booking) bool { return b.FullName == term || b.Reference == term })
	if offset >= len(rows) {
		return []model.Booking{}, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *fakeBookingRepo) count(provinceID int64, date model.Date, at *model.Clock) (int, error) {
	r.ledger.mu.Lock()
	if err := r.ledger.failCount; err != nil {
		r.ledger.mu.Unlock()
		return 0, err
	}
	n := 0
	for _, b := range r.ledger.visible(r.tx) {
		if b.ProvinceID == provinceID && b.AppointmentDate == date && b.Status.CountsTowardCapacity() &&
			(at == nil || b.AppointmentTime == *at) {
			n++
		}
	}
	r.ledger.mu.Unlock()
	// widen the window between count and insert
	runtime.Gosched()
	return n, nil
}

func (r *fakeBookingRepo) CountForSlot(ctx context.Context, provinceID int64, date model.Date, at model.Clock) (int, error) {
	return r.count(provinceID, date, &at)
}

func (r *fakeBookingRepo) CountForDay(ctx context.Context, provinceID int64, date model.Date) (int, error) {
	return r.count(provinceID, date, nil)
}

func (r *fakeBookingRepo) LockDay(ctx context.Context, provinceID int64, date model.Date) error {
	if r.tx == nil {
		return nil
	}
	key := fmt.Sprintf("booking:%d:%s", provinceID, date)

	r.ledger.mu.Lock()
	m, ok := r.ledger.dayLocks[key]
	if !ok {
		m = &sync.Mutex{}
		r.ledger.dayLocks[key] = m
	}
	r.ledger.mu.Unlock()

	m.Lock()

	r.ledger.mu.Lock()
	r.ledger.held[r.tx] = append(r.ledger.held[r.tx], m)
	r.ledger.mu.Unlock()
	return nil
}

func (r *fakeBookingRepo) Create(ctx context.Context, p model.CreateBookingParams) (*model.Booking, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	for _, b := range r.ledger.committed {
		if b.Reference == p.Reference {
			return nil, repository.ErrDuplicateReference
		}
	}
	for _, rows := range r.ledger.pending {
		for _, b := range rows {
			if b.Reference == p.Reference {
				return nil, repository.ErrDuplicateReference
			}
		}
	}

	r.ledger.nextID++
	province := r.ledger.provinces[p.ProvinceID]
	svc := r.ledger.services[p.ServiceID]
	b := model.Booking{
		ID:              r.ledger.nextID,
		Reference:       p.Reference,
		FullName:        p.FullName,
		DateOfBirth:     p.DateOfBirth,
		PhoneNumber:     p.PhoneNumber,
		Email:           p.Email,
		ProvinceID:      p.ProvinceID,
		ProvinceName:    province.Name,
		OfficeName:      province.OfficeName,
		ServiceID:       p.ServiceID,
		ServiceName:     svc.Name,
		AppointmentDate: p.AppointmentDate,
		AppointmentTime: p.AppointmentTime,
		Status:          p.Status,
		Channel:         p.Channel,
		Notes:           p.Notes,
		CreatedAt:       fixedNow,
		UpdatedAt:       fixedNow,
		ConfirmedAt:     p.ConfirmedAt,
	}
	if r.tx == nil {
		r.ledger.committed = append(r.ledger.committed, b)
	} else {
		r.ledger.pending[r.tx] = append(r.ledger.pending[r.tx], b)
	}
	return &b, nil
}

func (r *fakeBookingRepo) UpdateStatus(ctx context.Context, p model.UpdateBookingStatusParams) (*model.Booking, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	for i := range r.ledger.committed {
		b := &r.ledger.committed[i]
		if b.Reference != p.Reference || b.Status != p.From {
			continue
		}
		b.Status = p.To
		b.UpdatedAt = p.At
		at := p.At
		switch p.To {
		case model.BookingStatusConfirmed:
			b.ConfirmedAt = &at
		case model.BookingStatusCompleted:
			b.CompletedAt = &at
		case model.BookingStatusCancelled:
			b.CancelledAt = &at
		}
		if p.CancellationReason != nil {
			b.CancellationReason = p.CancellationReason
		}
		updated := *b
		return &updated, nil
	}
	return nil, nil
}

func (r *fakeBookingRepo) MarkNoShowBefore(ctx context.Context, date model.Date) (int64, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	var n int64
	for i := range r.ledger.committed {
		b := &r.ledger.committed[i]
		if b.Status == model.BookingStatusConfirmed && b.AppointmentDate.Before(date) {
			b.Status = model.BookingStatusNoShow
			n++
		}
	}
	return n, nil
}

type fakeProvinceRepo struct {
	ledger *ledger
	err    error
}

func (r *fakeProvinceRepo) FindByID(ctx context.Context, id int64) (*model.Province, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	if p, ok := r.ledger.provinces[id]; ok {
		found := *p
		return &found, nil
	}
	return nil, nil
}

func (r *fakeProvinceRepo) ListActive(ctx context.Context) ([]model.Province, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	out := []model.Province{}
	for id := int64(1); id <= int64(len(r.ledger.provinces)); id++ {
		if p, ok := r.ledger.provinces[id]; ok && p.Active {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeServiceRepo struct {
	ledger *ledger
}

func (r *fakeServiceRepo) FindByID(ctx context.Context, id int64) (*model.ServiceType, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	if s, ok := r.ledger.services[id]; ok {
		found := *s
		return &found, nil
	}
	return nil, nil
}

func (r *fakeServiceRepo) ListActive(ctx context.Context) ([]model.ServiceType, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	out := []model.ServiceType{}
	for id := int64(1); id <= int64(len(r.ledger.services)); id++ {
		if s, ok := r.ledger.services[id]; ok && s.Active {
			out = append(out, *s)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(e notify.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []notify.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notify.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	ledger    *ledger
	bookings  *fakeBookingRepo
	allocator *SlotAllocator
	service   *BookingService
	publisher *recordingPublisher
}

func newFixture() *fixture {
	l := newLedger()
	bookings := &fakeBookingRepo{ledger: l}
	allocator := NewSlotAllocator(&fakeProvinceRepo{ledger: l}, &fakeServiceRepo{ledger: l}, bookings, AllocatorConfig{
		SlotCapacity: 3,
		MaxDaysAhead: 90,
		Location:     time.UTC,
	})
	allocator.now = func() time.Time { return fixedNow }
	publisher := &recordingPublisher{}
	svc := NewBookingService(&fakeTransactor{ledger: l}, bookings, allocator, publisher)
	return &fixture{ledger: l, bookings: bookings, allocator: allocator, service: svc, publisher: publisher}
}

func validDraft() model.BookingDraft {
	return model.BookingDraft{
		FullName:        "John Doe",
		DateOfBirth:     model.Date{Year: 1990, Month: time.January, Day: 1},
		PhoneNumber:     "+263771234567",
		Email:           "john@example.com",
		ProvinceID:      1,
		ServiceID:       1,
		AppointmentDate: tomorrow,
		AppointmentTime: clockPtr(model.NewClock(9, 0)),
		Channel:         model.BookingChannelWeb,
	}
}

func clockPtr(c model.Clock) *model.Clock {
	return &c
}

var errStoreDown = errors.New("connection refused")
