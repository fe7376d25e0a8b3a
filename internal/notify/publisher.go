package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher hands booking events to the task queue without blocking the
// caller. Events are buffered in memory and enqueued by one goroutine; a
// full buffer drops the event.
type Dispatcher struct {
	client         Enqueuer
	queue          string
	enqueueTimeout time.Duration
	events         chan Event
	done           chan struct{}
	wg             sync.WaitGroup

	// mu orders buffer sends before the close of done.
	mu      sync.RWMutex
	stopped bool
}

func NewDispatcher(client Enqueuer, queue string, bufferSize int, enqueueTimeout time.Duration) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Dispatcher{
		client:         client,
		queue:          queue,
		enqueueTimeout: enqueueTimeout,
		events:         make(chan Event, bufferSize),
		done:           make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
	log.Info().Str("queue", d.queue).Int("buffer", cap(d.events)).Msg("notification dispatcher started")
}

// Stop drains buffered events and waits for the drain goroutine to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.done)
	}
	d.mu.Unlock()
	d.wg.Wait()
	log.Info().Msg("notification dispatcher stopped")
}

// Publish never blocks and never fails from the caller's point of view.
func (d *Dispatcher) Publish(e Event) {
	d.offer(e)
}

// offer reports whether e was buffered for the drain goroutine.
func (d *Dispatcher) offer(e Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		log.Warn().Str("eventId", e.ID).Str("reference", e.Reference).Msg("dispatcher stopped, notification dropped")
		return false
	}

	select {
	case d.events <- e:
		return true
	default:
		log.Warn().
			Str("eventId", e.ID).
			Str("type", string(e.Type)).
			Str("reference", e.Reference).
			Msg("notification buffer full, event dropped")
		return false
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case e := <-d.events:
			d.enqueue(e)
		case <-d.done:
			for {
				select {
				case e := <-d.events:
					d.enqueue(e)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) enqueue(e Event) {
	task, err := NewTask(e, d.queue)
	if err != nil {
		log.Error().Err(err).Str("eventId", e.ID).Msg("failed to build notification task")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.enqueueTimeout)
	defer cancel()

	info, err := d.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		log.Debug().Str("eventId", e.ID).Msg("notification already enqueued")
		return
	}
	if err != nil {
		log.Error().
			Err(err).
			Str("eventId", e.ID).
			Str("type", string(e.Type)).
			Str("reference", e.Reference).
			Msg("failed to enqueue notification")
		return
	}

	log.Debug().
		Str("eventId", e.ID).
		Str("taskId", info.ID).
		Str("queue", info.Queue).
		Msg("notification enqueued")
}
