package delivery

import (
	"net/http"
	"strconv"

	"snapconnect-backend/internal/message/usecase"
	"snapconnect-backend/pkg/apperr"

	"github.com/gin-gonic/gin"
)

// MessageHandler handles message-related HTTP requests
type MessageHandler struct {
	messageUsecase usecase.MessageUsecase
}

func NewMessageHandler(messageUsecase usecase.MessageUsecase) *MessageHandler {
	return &MessageHandler{messageUsecase: messageUsecase}
}

// SendMessageRequest is the request body for sending a message
type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id" binding:"required"`
	Content    string `json:"content"`
	MediaURL   string `json:"media_url"`
	MediaType  string `json:"media_type"`
}

// SendMessage sends a message from the authenticated account
// POST /api/messages
func (h *MessageHandler) SendMessage(c *gin.Context) {
	accountID := c.GetString("accountID")

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messageUsecase.Send(accountID, req.ReceiverID, usecase.SendInput{
		Content:   req.Content,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// SendAsPersonaRequest is the request body for persona-originated sends.
// Used by internal tooling; persona sends normally come from the dispatcher
// and the outreach scheduler.
type SendAsPersonaRequest struct {
	PersonaID       string                 `json:"persona_id" binding:"required"`
	ReceiverID      string                 `json:"receiver_id" binding:"required"`
	Content         string                 `json:"content"`
	MediaURL        string                 `json:"media_url"`
	MediaType       string                 `json:"media_type"`
	PersonalityTag  string                 `json:"personality_tag"`
	ResponseContext map[string]interface{} `json:"response_context"`
}

// SendAsPersona sends a message on behalf of an AI persona
// POST /api/messages/persona
func (h *MessageHandler) SendAsPersona(c *gin.Context) {
	var req SendAsPersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messageUsecase.SendAsPersona(req.PersonaID, req.ReceiverID, usecase.SendInput{
		Content:   req.Content,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
	}, req.PersonalityTag, req.ResponseContext)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// MarkViewed marks a message viewed by the authenticated account
// PATCH /api/messages/:id/viewed
func (h *MessageHandler) MarkViewed(c *gin.Context) {
	accountID := c.GetString("accountID")
	messageID := c.Param("id")

	marked, err := h.messageUsecase.MarkViewed(messageID, accountID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// GetConversation returns the visible messages between the authenticated
// account and another one
// GET /api/conversations/:otherId?limit=50
func (h *MessageHandler) GetConversation(c *gin.Context) {
	accountID := c.GetString("accountID")
	otherID := c.Param("otherId")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := h.messageUsecase.FetchConversation(accountID, otherID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// ListConversations returns latest message and unread count per counterpart
// GET /api/conversations
func (h *MessageHandler) ListConversations(c *gin.Context) {
	accountID := c.GetString("accountID")

	summaries, err := h.messageUsecase.ListConversations(accountID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

func writeError(c *gin.Context, err error) {
	var status int
	switch apperr.CodeOf(err) {
	case apperr.CodeInvalidArgument:
		status = http.StatusBadRequest
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodePermissionDenied:
		status = http.StatusForbidden
	case apperr.CodeExternalService, apperr.CodeDeadlineExceeded:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": string(apperr.CodeOf(err))})
}
