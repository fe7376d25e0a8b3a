package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zimid/booking-server-go/internal/audit"
	"github.com/zimid/booking-server-go/internal/config"
	"github.com/zimid/booking-server-go/internal/model"
)

type NoShowMarker interface {
	MarkNoShowBefore(ctx context.Context, date model.Date) (int64, error)
}

// NoShowSweeper moves CONFIRMED bookings whose day has passed to NO_SHOW.
type NoShowSweeper struct {
	bookings NoShowMarker
	today    func() model.Date
	interval time.Duration
	done     chan struct{}
	stopped  chan struct{}
}

func NewNoShowSweeper(bookings NoShowMarker, today func() model.Date, interval time.Duration) *NoShowSweeper {
	return &NoShowSweeper{
		bookings: bookings,
		today:    today,
		interval: interval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (j *NoShowSweeper) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("no-show sweeper started")
}

// Stop waits for an in-flight sweep to finish.
func (j *NoShowSweeper) Stop() {
	close(j.done)
	<-j.stopped
	log.Info().Msg("no-show sweeper stopped")
}

func (j *NoShowSweeper) run() {
	defer close(j.stopped)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.Sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep runs one pass and returns the number of bookings marked.
func (j *NoShowSweeper) Sweep() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), config.NoShowSweepTimeout)
	defer cancel()

	today := j.today()
	count, err := j.bookings.MarkNoShowBefore(ctx, today)
	if err != nil {
		log.Error().Err(err).Str("before", today.String()).Msg("failed to sweep no-show bookings")
		return 0
	}
	if count > 0 {
		log.Info().Int64("count", count).Str("before", today.String()).Msg("marked bookings as no-show")
		audit.Log(ctx, audit.Event{
			Type:    audit.EventNoShowSweep,
			Details: map[string]interface{}{"count": count, "before": today.String()},
		})
	}
	return count
}
