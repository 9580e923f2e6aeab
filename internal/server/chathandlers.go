package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/types"
)

// summaryMaxLen caps conversation summaries derived from the first message.
const summaryMaxLen = 60

func (s *Server) handleListConversations(c *gin.Context) {
	conversations, err := s.store.ListConversations(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, conversations)
}

func (s *Server) handleCreateConversation(c *gin.Context) {
	conversation, err := s.store.CreateConversation(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conversation)
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	id, ok := pathInt(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteConversation(c.Request.Context(), auth.UserID(c), id); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRenameConversation(c *gin.Context) {
	id, ok := pathInt(c, "id")
	if !ok {
		return
	}

	var req struct {
		Summary string `json:"summary"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Summary == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "summary is required"})
		return
	}

	conversation, err := s.store.RenameConversation(c.Request.Context(), auth.UserID(c), id, req.Summary)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, conversation)
}

func (s *Server) handleListMessages(c *gin.Context) {
	id, ok := pathInt(c, "id")
	if !ok {
		return
	}
	messages, err := s.store.ListMessages(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (s *Server) handleChat(c *gin.Context) {
	if s.agent == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assistant is not configured"})
		return
	}
	userID := auth.UserID(c)

	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	ctx := c.Request.Context()

	// Resolve or create the conversation.
	var conversationID int
	var history []types.Message
	if req.ConversationID != nil {
		conversation, err := s.store.GetConversation(ctx, userID, *req.ConversationID)
		if err != nil {
			respondStoreError(c, err)
			return
		}
		conversationID = conversation.ID
		history, err = s.store.ListMessages(ctx, userID, conversationID)
		if err != nil {
			respondStoreError(c, err)
			return
		}
	} else {
		conversation, err := s.store.CreateConversation(ctx, userID)
		if err != nil {
			respondStoreError(c, err)
			return
		}
		conversationID = conversation.ID
		if _, err := s.store.RenameConversation(ctx, userID, conversationID, summarize(req.Message)); err != nil {
			s.logger.Printf("failed to set conversation summary: %v", err)
		}
	}

	if _, err := s.store.AppendMessage(ctx, types.Message{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           "user",
		Content:        req.Message,
	}); err != nil {
		respondStoreError(c, err)
		return
	}

	reply, toolCalls, err := s.agent.HandleMessage(ctx, userID, history, req.Message)
	if err != nil {
		s.logger.Printf("assistant turn failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "assistant unavailable"})
		return
	}

	if _, err := s.store.AppendMessage(ctx, types.Message{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           "assistant",
		Content:        reply,
	}); err != nil {
		respondStoreError(c, err)
		return
	}

	if s.hub != nil && len(toolCalls) > 0 {
		s.broadcastStats(c, userID)
	}

	c.JSON(http.StatusOK, types.ChatResponse{
		ConversationID: conversationID,
		Response:       reply,
		ToolCalls:      toolCalls,
	})
}

// summarize derives a conversation summary from its opening message,
// truncating on a rune boundary.
func summarize(message string) string {
	message = strings.TrimSpace(message)
	runes := []rune(message)
	if len(runes) <= summaryMaxLen {
		return message
	}
	return strings.TrimSpace(string(runes[:summaryMaxLen])) + "…"
}
