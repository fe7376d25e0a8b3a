package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	apperrors "github.com/zimid/booking-server-go/internal/errors"
	"github.com/zimid/booking-server-go/internal/util"
)

const smsHTTPTimeout = 10 * time.Second

type SMSConfig struct {
	Enabled  bool
	Username string
	APIKey   string
	SenderID string
	BaseURL  string
	RatePerS float64
}

// SMSSender delivers text messages through the Africa's Talking messaging
// API. When disabled or missing an API key it only logs the message.
type SMSSender struct {
	cfg     SMSConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewSMSSender(cfg SMSConfig) *SMSSender {
	limit := rate.Limit(cfg.RatePerS)
	if cfg.RatePerS <= 0 {
		limit = rate.Inf
	}
	return &SMSSender{
		cfg:     cfg,
		client:  &http.Client{Timeout: smsHTTPTimeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

type atResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			StatusCode int    `json:"statusCode"`
			Number     string `json:"number"`
			Status     string `json:"status"`
			MessageID  string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

func (s *SMSSender) Send(ctx context.Context, to, message string) error {
	if !s.cfg.Enabled {
		log.Info().Str("to", util.MaskPhone(to)).Str("message", message).Msg("sms disabled, message not sent")
		return nil
	}
	if s.cfg.APIKey == "" {
		log.Warn().Str("to", util.MaskPhone(to)).Str("message", message).Msg("sms api key not configured, message not sent")
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sms rate limit wait: %w", err)
	}

	form := url.Values{}
	form.Set("username", s.cfg.Username)
	form.Set("to", to)
	form.Set("message", message)
	if s.cfg.SenderID != "" {
		form.Set("from", s.cfg.SenderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("apiKey", s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return apperrors.External("sms gateway", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.External("sms gateway",
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var parsed atResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("decode sms response: %w", err)
	}
	for _, r := range parsed.SMSMessageData.Recipients {
		if r.Status != "Success" {
			return fmt.Errorf("sms to %s rejected: %s", util.MaskPhone(r.Number), r.Status)
		}
		log.Info().Str("to", util.MaskPhone(r.Number)).Str("messageId", r.MessageID).Msg("sms sent")
	}
	return nil
}
