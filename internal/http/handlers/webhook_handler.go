// Inbound WhatsApp webhook handler.
//
//   - POST /webhook
//
// Green API delivers every instance notification here. The handler keeps the
// provider happy by answering 200 for everything it deliberately ignores
// (non-text webhooks, duplicate deliveries, unknown senders); only malformed
// payloads, bad credentials, and persistence faults produce error statuses.
package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/remindly/go-reminder-backend/internal/domain"
	"github.com/remindly/go-reminder-backend/internal/http/middleware"
	"github.com/remindly/go-reminder-backend/internal/logging"
	"github.com/remindly/go-reminder-backend/internal/repo"
	"github.com/remindly/go-reminder-backend/internal/services"
	"github.com/remindly/go-reminder-backend/internal/whatsapp"
)

// webhookTokenHeader carries the shared secret registered with Green API.
// The provider also mirrors the secret into the Authorization header as a
// bearer token; both forms are accepted.
const webhookTokenHeader = "X-Webhook-Token"

// unknownSenderReply is sent to phone numbers that have no account yet.
const unknownSenderReply = "Hi! I don't have an account for this number yet. Please register first to start receiving reminders."

// WebhookAck is the body returned for every accepted webhook delivery.
type WebhookAck struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// authorizedWebhook reports whether the request carries the configured
// webhook token. An empty configured token disables the check.
func (h *Handlers) authorizedWebhook(c *gin.Context) bool {
	want := h.cfg.WebhookToken
	if want == "" {
		return true
	}
	got := c.GetHeader(webhookTokenHeader)
	if got == "" {
		got = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// Webhook godoc
// @ID          webhook
// @Summary     Receive a Green API webhook
// @Description Accepts instance notifications, replies to incoming text messages, and deduplicates redeliveries.
// @Tags        Webhook
// @Accept      json
// @Produce     json
//
// @Param       X-Webhook-Token  header  string  false  "Shared webhook secret"
// @Param       body             body    whatsapp.Notification  true  "Green API notification"
//
// @Success     200  {object}  handlers.WebhookAck
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid webhook token"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /webhook [post]
func (h *Handlers) Webhook(c *gin.Context) {
	if !h.authorizedWebhook(c) {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid webhook token")
		return
	}

	var n whatsapp.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	in, isText := whatsapp.ParseIncoming(&n)
	if !isText {
		ok(c, http.StatusOK, WebhookAck{Success: true, Message: "webhook received, not a text message"})
		return
	}

	ctx := c.Request.Context()
	lg := middleware.LoggerFrom(c)
	lg.Debug().Str("text", logging.Clip(in.Text)).Msg("incoming text message")

	// Green API redelivers on timeout; idMessage identifies the delivery.
	if in.MessageID != "" {
		var dup bool
		err := h.uow.Do(ctx, func(tx *gorm.DB) error {
			if _, err := repo.PurgeExpiredReceipts(ctx, tx, time.Now().UTC()); err != nil {
				return err
			}
			_, err := repo.CreateReceipt(ctx, tx, in.MessageID, in.Phone, h.cfg.ReceiptTTL)
			if errors.Is(err, repo.ErrDuplicate) {
				dup = true
				return nil
			}
			return err
		})
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "receipt bookkeeping failed")
			return
		}
		if dup {
			ok(c, http.StatusOK, WebhookAck{Success: true, Message: "duplicate delivery ignored"})
			return
		}
	}

	user, err := h.users.LookupByPhone(ctx, in.Phone)
	if errors.Is(err, services.ErrUserNotFound) {
		if _, sendErr := h.sender.SendMessage(ctx, in.Phone, unknownSenderReply); sendErr != nil {
			lg.Warn().Msg("could not reply to unregistered sender")
		}
		ok(c, http.StatusOK, WebhookAck{Success: true, Message: "sender not registered"})
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	if _, err := h.msgs.Record(ctx, user.ID, domain.SenderUser, in.Text, false, nil); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not record incoming message")
		return
	}

	reply := h.agent.Reply(ctx, *user, in.Text)

	if _, err := h.sender.SendMessage(ctx, in.Phone, reply); err != nil {
		// The reply is lost but the inbound message is stored; the user can
		// always ask again.
		logging.Exception(lg, err, "reply delivery failed")
		ok(c, http.StatusOK, WebhookAck{Success: false, Message: "message stored, reply delivery failed"})
		return
	}

	if _, err := h.msgs.Record(ctx, user.ID, domain.SenderAI, reply, false, nil); err != nil {
		lg.Error().Uint("user_id", user.ID).Msg("could not record outgoing reply")
	}

	ok(c, http.StatusOK, WebhookAck{Success: true, Message: "webhook received and processed"})
}
