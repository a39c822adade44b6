package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maraakiz/maraakiz-api/internal/service"
	appErrors "github.com/maraakiz/maraakiz-api/pkg/errors"
	"github.com/maraakiz/maraakiz-api/pkg/response"
)

// MessageHandler wires HTTP endpoints to the message service.
type MessageHandler struct {
	service *service.MessageService
}

// NewMessageHandler creates a new handler.
func NewMessageHandler(svc *service.MessageService) *MessageHandler {
	return &MessageHandler{service: svc}
}

// Conversations godoc
// @Summary List conversations
// @Description Derived threads grouped by partner, most recent first
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /messages [get]
func (h *MessageHandler) Conversations(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	conversations, err := h.service.Conversations(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, conversations, nil)
}

// Thread godoc
// @Summary Get a thread with one partner
// @Description Returns the full exchange oldest first and marks the partner's messages read
// @Tags Messages
// @Produce json
// @Param partnerId path string true "Partner user ID"
// @Success 200 {object} response.Envelope
// @Router /messages/{partnerId} [get]
func (h *MessageHandler) Thread(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	messages, err := h.service.Thread(c.Request.Context(), claims.UserID, c.Param("partnerId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, messages, nil)
}

// Send godoc
// @Summary Send a message
// @Description Posts a message, optionally with an attached file (multipart)
// @Tags Messages
// @Accept multipart/form-data
// @Produce json
// @Param receiver_id formData string true "Receiver user ID"
// @Param content formData string false "Message text"
// @Param file formData file false "Attachment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req := service.SendMessageRequest{
		ReceiverID: c.PostForm("receiver_id"),
		Content:    c.PostForm("content"),
	}

	if header, err := c.FormFile("file"); err == nil {
		src, err := header.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
			return
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
			return
		}
		req.FileName = header.Filename
		req.Data = data
	}

	message, err := h.service.Send(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, message)
}

// UnreadCount godoc
// @Summary Count unread messages
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /messages/unread [get]
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"unread": count}, nil)
}
