// Message history HTTP handler.
//
//   - GET /users/{id}/messages  (recent conversation history, newest first)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/remindly/go-reminder-backend/internal/domain"
	"github.com/remindly/go-reminder-backend/internal/utils"
)

const maxHistoryLimit = 100

// ListMessagesResponse wraps a user's recent conversation history.
type ListMessagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List recent messages
// @Description Returns the user's most recent WhatsApp conversation history, newest first.
// @Tags        Messages
// @Produce     json
//
// @Param       id     path   int  true   "User ID"              example(1)
// @Param       limit  query  int  false  "Messages to return"   minimum(1) maximum(100) default(10)
//
// @Success     200  {object}  handlers.ListMessagesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	userID, valid := idParam(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a positive integer")
		return
	}

	limit := utils.ClampInt(utils.AtoiDefault(c.Query("limit"), 10), 1, maxHistoryLimit)

	msgs, err := h.msgs.History(c.Request.Context(), userID, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: msgs})
}
