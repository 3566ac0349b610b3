package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/campushub/campushub/internal/event"
)

const (
	defaultTelegramAPI = "https://api.telegram.org/bot"
	telegramTimeout    = 10 * time.Second
)

// TelegramNotifier posts registrations and new events to one Telegram chat,
// typically the organizers' group.
type TelegramNotifier struct {
	botToken   string
	chatID     string
	apiBaseURL string
	httpClient *http.Client
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(botToken, chatID string) (*TelegramNotifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("chat ID is required")
	}

	return &TelegramNotifier{
		botToken:   botToken,
		chatID:     chatID,
		apiBaseURL: defaultTelegramAPI,
		httpClient: &http.Client{
			Timeout: telegramTimeout,
		},
	}, nil
}

// NotifyRegistration sends a registration message
func (t *TelegramNotifier) NotifyRegistration(ctx context.Context, evt *event.Event, attendee *event.Attendee) error {
	return t.SendMessage(ctx, FormatRegistration(evt, attendee))
}

// AnnounceEvent sends a new-event message
func (t *TelegramNotifier) AnnounceEvent(ctx context.Context, evt *event.Event) error {
	return t.SendMessage(ctx, FormatEvent(evt))
}

// SendMessage sends an HTML text message to the configured chat
func (t *TelegramNotifier) SendMessage(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("message text is required")
	}

	url := fmt.Sprintf("%s%s/sendMessage", t.apiBaseURL, t.botToken)

	payload := map[string]interface{}{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}

	return nil
}

// FormatEvent formats a new event as a Telegram HTML message
func FormatEvent(evt *event.Event) string {
	var msg strings.Builder

	msg.WriteString("🎉 <b>New campus event!</b>\n\n")
	msg.WriteString(fmt.Sprintf("📌 <b>%s</b>\n", html.EscapeString(evt.Name)))
	msg.WriteString(fmt.Sprintf("📅 %s %s\n", html.EscapeString(evt.Date), html.EscapeString(evt.Time)))

	if evt.Location != "" {
		msg.WriteString(fmt.Sprintf("📍 %s\n", html.EscapeString(evt.Location)))
	}
	if evt.Organizers != "" {
		msg.WriteString(fmt.Sprintf("👥 %s\n", html.EscapeString(evt.Organizers)))
	}

	return msg.String()
}

// FormatRegistration formats a registration as a Telegram HTML message
func FormatRegistration(evt *event.Event, attendee *event.Attendee) string {
	var msg strings.Builder

	msg.WriteString("✅ <b>New registration</b>\n\n")
	msg.WriteString(fmt.Sprintf("📌 %s (%s %s)\n",
		html.EscapeString(evt.Name), html.EscapeString(evt.Date), html.EscapeString(evt.Time)))
	msg.WriteString(fmt.Sprintf("👤 %s &lt;%s&gt;\n", html.EscapeString(attendee.Name), html.EscapeString(attendee.Email)))
	msg.WriteString(fmt.Sprintf("\n<i>%d registered</i>", len(evt.Attendees)))

	return msg.String()
}
