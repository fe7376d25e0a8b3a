package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zimid/booking-server-go/internal/httputil"
	"github.com/zimid/booking-server-go/internal/ussd"
)

const msgBadCallback = "END Invalid request. Please try again."

type MenuEngine interface {
	Handle(ctx context.Context, req ussd.Request) ussd.Reply
}

// UssdHandler serves the gateway callback. The gateway treats any non-200
// answer as a network fault, so every outcome is written with status 200.
type UssdHandler struct {
	engine  MenuEngine
	timeout time.Duration
}

func NewUssdHandler(engine MenuEngine, timeout time.Duration) *UssdHandler {
	return &UssdHandler{engine: engine, timeout: timeout}
}

func (h *UssdHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Warn().Err(err).Msg("invalid ussd callback body")
		httputil.WriteText(w, http.StatusOK, msgBadCallback)
		return
	}

	req := ussd.Request{
		SessionID:   r.PostForm.Get("sessionId"),
		ServiceCode: r.PostForm.Get("serviceCode"),
		PhoneNumber: r.PostForm.Get("phoneNumber"),
		Text:        r.PostForm.Get("text"),
	}
	if req.SessionID == "" {
		log.Warn().Msg("ussd callback without session id")
		httputil.WriteText(w, http.StatusOK, msgBadCallback)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	reply := h.engine.Handle(ctx, req)
	httputil.WriteText(w, http.StatusOK, reply.String())
}

func (h *UssdHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteText(w, http.StatusOK, "USSD service is running")
}
