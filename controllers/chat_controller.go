package controllers

import (
	"log/slog"
	"net/http"

	"github.com/fasttech-foods/backoffice-api/services"
	"github.com/gin-gonic/gin"
)

// SelectOptionRequest is a click on one of the bot's options
type SelectOptionRequest struct {
	Action string `json:"action" binding:"required"`
	Text   string `json:"text"`
}

// SendMessageRequest is free text typed by the customer
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// ChatController serves the support chat. Transcripts are written with
// PureJSON so option emoji and message text are not HTML-escaped.
type ChatController struct {
	chat   *services.ChatService
	logger *slog.Logger
}

// NewChatController creates a chat controller
func NewChatController(chat *services.ChatService, logger *slog.Logger) *ChatController {
	return &ChatController{chat: chat, logger: logger}
}

func respondTranscript(c *gin.Context, data interface{}) {
	c.PureJSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// GetTranscript handles GET /api/v1/chat
func (ctl *ChatController) GetTranscript(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	respondTranscript(c, ctl.chat.Transcript(session.ID))
}

// SelectOption handles POST /api/v1/chat/options
func (ctl *ChatController) SelectOption(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var req SelectOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	transcript, err := ctl.chat.SelectOption(session.ID, req.Action, req.Text)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondTranscript(c, transcript)
}

// SendMessage handles POST /api/v1/chat/messages
func (ctl *ChatController) SendMessage(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	transcript, err := ctl.chat.SendMessage(c.Request.Context(), session.ID, req.Text)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondTranscript(c, transcript)
}

// Reset handles DELETE /api/v1/chat - starts the conversation over
func (ctl *ChatController) Reset(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	ctl.chat.Reset(session.ID)
	respondTranscript(c, ctl.chat.Transcript(session.ID))
}
