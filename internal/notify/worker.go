package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type TextMessenger interface {
	Send(ctx context.Context, to, message string) error
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Handler processes booking notification tasks.
type Handler struct {
	sms   TextMessenger
	email Mailer
}

func NewHandler(sms TextMessenger, email Mailer) *Handler {
	return &Handler{sms: sms, email: email}
}

func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeBookingCreated, h.ProcessTask)
	mux.HandleFunc(TypeBookingUpdated, h.ProcessTask)
	mux.HandleFunc(TypeBookingCancelled, h.ProcessTask)
}

// ProcessTask sends the SMS and email for one event. A malformed payload is
// not retried; delivery failures are returned so asynq retries the task.
func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	e, err := decodeEvent(t)
	if err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}

	log.Info().
		Str("eventId", e.ID).
		Str("type", string(e.Type)).
		Str("reference", e.Reference).
		Msg("processing booking notification")

	var errs []error
	if e.Phone != "" {
		if err := h.sms.Send(ctx, e.Phone, smsText(e)); err != nil {
			errs = append(errs, fmt.Errorf("sms: %w", err))
		}
	}
	if e.Email != "" && !strings.HasSuffix(e.Email, "@"+SyntheticEmailDomain) {
		if err := h.email.Send(ctx, e.Email, emailSubject(e), emailBody(e)); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}
	return errors.Join(errs...)
}

type WorkerConfig struct {
	Queue       string
	Concurrency int
}

// Worker runs the asynq server consuming the notification queue.
type Worker struct {
	server  *asynq.Server
	handler *Handler
}

func NewWorker(redisOpt asynq.RedisConnOpt, cfg WorkerConfig, handler *Handler) *Worker {
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{cfg.Queue: 1},
		Logger:      asynqLogger{logger: log.With().Str("component", "asynq").Logger()},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.Error().
				Err(err).
				Str("taskType", task.Type()).
				Int("retry", retried).
				Int("maxRetry", maxRetry).
				Msg("notification task failed")
		}),
	})
	return &Worker{server: server, handler: handler}
}

func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	w.handler.Register(mux)
	if err := w.server.Start(mux); err != nil {
		return fmt.Errorf("start notification worker: %w", err)
	}
	log.Info().Msg("notification worker started")
	return nil
}

func (w *Worker) Stop() {
	w.server.Shutdown()
	log.Info().Msg("notification worker stopped")
}

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct {
	logger zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }
