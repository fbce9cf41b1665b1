// Package notify delivers completion messages over WhatsApp through the
// Twilio REST API. Delivery is best-effort: an unconfigured or failing sender
// never affects job state.
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
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/usamaalam01/LabReportAI/internal/logger"
)

// maxBodyChars is the WhatsApp message body limit.
const maxBodyChars = 1600

// Notifier sends WhatsApp messages.
type Notifier interface {
	// Send delivers a text message to the recipient phone number
	// (e.g. "+923001234567").
	Send(ctx context.Context, to, body string) error

	// SendPDF delivers a message with a PDF attachment. mediaURL must be
	// publicly reachable by Twilio.
	SendPDF(ctx context.Context, to, body, mediaURL string) error

	// Enabled reports whether the sender is configured.
	Enabled() bool
}

// TwilioNotifier implements Notifier on the Twilio messages API.
type TwilioNotifier struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
	log        zerolog.Logger
}

// NewTwilioNotifier creates a notifier. Empty or "placeholder" credentials
// produce a disabled notifier whose sends are silent no-ops.
func NewTwilioNotifier(accountSID, authToken, fromNumber string) *TwilioNotifier {
	return &TwilioNotifier{
		accountSID: accountSID,
		authToken:  authToken,
		from:       fromNumber,
		baseURL:    "https://api.twilio.com",
		client:     &http.Client{Timeout: 30 * time.Second},
		log:        logger.WithComponent("notify"),
	}
}

// Enabled reports whether real Twilio credentials are configured.
func (n *TwilioNotifier) Enabled() bool {
	return n.accountSID != "" && n.accountSID != "placeholder" &&
		n.authToken != "" && n.authToken != "placeholder"
}

// Send delivers a WhatsApp text message.
func (n *TwilioNotifier) Send(ctx context.Context, to, body string) error {
	return n.send(ctx, to, body, "")
}

// SendPDF delivers a WhatsApp message with a PDF attachment.
func (n *TwilioNotifier) SendPDF(ctx context.Context, to, body, mediaURL string) error {
	return n.send(ctx, to, body, mediaURL)
}

func (n *TwilioNotifier) send(ctx context.Context, to, body, mediaURL string) error {
	if !n.Enabled() {
		n.log.Warn().Msg("WhatsApp not configured, skipping send")
		return nil
	}

	body = truncateBody(body)

	form := url.Values{}
	form.Set("From", "whatsapp:"+n.from)
	form.Set("To", "whatsapp:"+to)
	form.Set("Body", body)
	if mediaURL != "" {
		form.Set("MediaUrl", mediaURL)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", n.baseURL, n.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build Twilio request: %w", err)
	}
	req.SetBasicAuth(n.accountSID, n.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("Twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Twilio returned %d: %s", resp.StatusCode, respBody)
	}

	var created struct {
		SID string `json:"sid"`
	}
	_ = json.Unmarshal(respBody, &created)

	n.log.Info().Str("sid", created.SID).Str("to", to).Bool("media", mediaURL != "").
		Msg("WhatsApp message sent")
	return nil
}

// truncateBody caps the body at the WhatsApp limit without splitting a
// multi-byte rune (translated summaries are mostly non-ASCII).
func truncateBody(body string) string {
	if len(body) <= maxBodyChars {
		return body
	}
	cut := maxBodyChars
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}
