// Package whatsapp implements the Green API client used to deliver
// reminders and receive user replies. Only text messages are supported;
// other webhook payload types are ignored by the parser.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/remindly/go-reminder-backend/internal/config"
)

// ErrSendFailed is returned when the provider rejects an outbound message.
var ErrSendFailed = errors.New("whatsapp send failed")

const (
	webhookIncomingMessage = "incomingMessageReceived"
	typeTextMessage        = "textMessage"
	chatSuffix             = "@c.us"
)

// Client talks to the Green API REST surface for one WhatsApp instance.
// The instance token is embedded in every request path and must never be
// logged.
type Client struct {
	http       *resty.Client
	instanceID string
	token      string
	log        zerolog.Logger
}

// NewClient builds a client from cfg. The underlying HTTP client retries
// transient failures with a short backoff.
func NewClient(cfg config.GreenAPIConfig, log zerolog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	return &Client{
		http:       http,
		instanceID: cfg.InstanceID,
		token:      cfg.Token,
		log:        log,
	}, nil
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("/waInstance%s/%s/%s", c.instanceID, method, c.token)
}

// SendResult is the provider's acknowledgement of an outbound message.
type SendResult struct {
	IDMessage string `json:"idMessage"`
}

// CleanPhone strips formatting characters so the number can address a chat.
func CleanPhone(phone string) string {
	r := strings.NewReplacer("+", "", " ", "", "-", "")
	return r.Replace(phone)
}

// SendMessage delivers a text message to phone. The number is normalized
// and suffixed into the provider's chat identifier.
func (c *Client) SendMessage(ctx context.Context, phone, message string) (*SendResult, error) {
	var out SendResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chatId":  CleanPhone(phone) + chatSuffix,
			"message": message,
		}).
		SetResult(&out).
		Post(c.endpoint("SendMessage"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if resp.IsError() {
		c.log.Warn().Int("status", resp.StatusCode()).Msg("provider rejected outbound message")
		return nil, fmt.Errorf("%w: status %d", ErrSendFailed, resp.StatusCode())
	}
	return &out, nil
}

// InstanceState is the authorization state of the WhatsApp instance.
type InstanceState struct {
	StateInstance string `json:"stateInstance"`
}

// GetState fetches the instance state from the provider.
func (c *Client) GetState(ctx context.Context) (*InstanceState, error) {
	var out InstanceState
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.endpoint("getStateInstance"))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get state: status %d", resp.StatusCode())
	}
	return &out, nil
}

// IsAuthorized reports whether the instance is linked and ready to send.
func (c *Client) IsAuthorized(ctx context.Context) bool {
	st, err := c.GetState(ctx)
	return err == nil && st.StateInstance == "authorized"
}

// WebhookSettings configures where the provider delivers notifications.
type WebhookSettings struct {
	WebhookURL      string `json:"webhookUrl"`
	WebhookURLToken string `json:"webhookUrlToken,omitempty"`
}

// SetupWebhook points the instance at url, enabling incoming-message
// notifications and read receipts on delivery.
func (c *Client) SetupWebhook(ctx context.Context, url, token string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"webhookUrl":                 url,
			"webhookUrlToken":            token,
			"incomingWebhook":            "yes",
			"markIncomingMessagesReaded": "yes",
		}).
		Post(c.endpoint("SetSettings"))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("set settings: status %d", resp.StatusCode())
	}
	return nil
}

// Notification is the provider's webhook payload. Some delivery paths wrap
// the event in a "body" envelope; Event unwraps it.
type Notification struct {
	ReceiptID   int64        `json:"receiptId,omitempty"`
	TypeWebhook string       `json:"typeWebhook,omitempty"`
	IDMessage   string       `json:"idMessage,omitempty"`
	Timestamp   int64        `json:"timestamp,omitempty"`
	SenderData  *SenderData  `json:"senderData,omitempty"`
	MessageData *MessageData `json:"messageData,omitempty"`
	Body        *Notification `json:"body,omitempty"`
}

// SenderData identifies the chat and sender of an incoming message.
type SenderData struct {
	Sender     string `json:"sender"`
	ChatID     string `json:"chatId"`
	SenderName string `json:"senderName"`
}

// MessageData carries the typed message content.
type MessageData struct {
	TypeMessage     string           `json:"typeMessage"`
	TextMessageData *TextMessageData `json:"textMessageData,omitempty"`
}

// TextMessageData is the plain-text payload.
type TextMessageData struct {
	TextMessage string `json:"textMessage"`
}

// Event returns the actual notification, unwrapping the "body" envelope
// used by the polling API.
func (n *Notification) Event() *Notification {
	if n.Body != nil {
		return n.Body
	}
	return n
}

// Incoming is a parsed inbound text message.
type Incoming struct {
	Phone     string
	Text      string
	MessageID string
	Timestamp time.Time
}

// ParseIncoming extracts a text message from a webhook notification. It
// returns false for non-message webhooks and non-text message types.
func ParseIncoming(n *Notification) (*Incoming, bool) {
	ev := n.Event()
	if ev.TypeWebhook != webhookIncomingMessage {
		return nil, false
	}
	if ev.MessageData == nil || ev.MessageData.TypeMessage != typeTextMessage || ev.MessageData.TextMessageData == nil {
		return nil, false
	}
	if ev.SenderData == nil {
		return nil, false
	}
	in := &Incoming{
		Phone:     strings.TrimSuffix(ev.SenderData.Sender, chatSuffix),
		Text:      ev.MessageData.TextMessageData.TextMessage,
		MessageID: ev.IDMessage,
	}
	if ev.Timestamp > 0 {
		in.Timestamp = time.Unix(ev.Timestamp, 0).UTC()
	}
	return in, true
}
