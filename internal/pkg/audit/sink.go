package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/env"
)

// Sink mirrors events to an external logging channel. Delivery is best
// effort: failures are logged locally and never surface to callers.
type Sink interface {
	Post(event string, fields map[string]interface{})
}

// ChannelSink posts JSON events to a webhook channel URL.
type ChannelSink struct {
	URL        string
	HTTPClient *http.Client
}

// NewChannelSinkFromEnv builds the sink from AUDIT_CHANNEL_URL. An empty URL
// yields a disabled sink that drops events.
func NewChannelSinkFromEnv() *ChannelSink {
	return &ChannelSink{
		URL: strings.TrimSpace(env.GetEnv("AUDIT_CHANNEL_URL", "")),
		HTTPClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Post sends one event to the channel. Errors are swallowed after local
// logging so a slow or dead channel can never fail a carrier call.
func (s *ChannelSink) Post(event string, fields map[string]interface{}) {
	if s.URL == "" {
		return
	}

	payload := map[string]interface{}{
		"event":  event,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"fields": fields,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("[Audit] Failed to marshal event %s: %v", event, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		log.Errorf("[Audit] Failed to build request for event %s: %v", event, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		log.Errorf("[Audit] Channel unreachable for event %s: %v", event, err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		log.Errorf("[Audit] Channel rejected event %s: status %d", event, resp.StatusCode)
	}
}

// NopSink drops all events (tests, disabled environments).
type NopSink struct{}

func (NopSink) Post(string, map[string]interface{}) {}
