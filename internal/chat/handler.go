package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"contract-backend/internal/documents"
	"contract-backend/internal/llm"
	"contract-backend/internal/shared/server/middleware"
	"contract-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the chat service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches chat routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/chat/messages", h.send)
	rg.GET("/chat/messages/:documentId", h.history)
	rg.DELETE("/chat/messages/:documentId", h.clear)
}

func (h *Handler) send(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "documentId and message are required", nil)
		return
	}

	msg, err := h.Svc.Send(c.Request.Context(), userID, req.DocumentID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrEmptyMessage):
			respond.Error(c, http.StatusBadRequest, "validation_error", "message must not be empty", nil)
		default:
			if capErr, ok := llm.AsCapabilityError(err); ok {
				respond.Error(c, http.StatusBadGateway, "chat_failed", "could not answer the question right now", gin.H{
					"kind":      capErr.Kind,
					"retryable": capErr.Retryable(),
				})
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to send message", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, toMessageResponse(msg))
}

func (h *Handler) history(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("documentId")

	msgs, err := h.Svc.History(c.Request.Context(), userID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch history", nil)
		}
		return
	}

	out := make([]MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, toMessageResponse(msg))
	}
	respond.OK(c, gin.H{"messages": out})
}

func (h *Handler) clear(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("documentId")

	if err := h.Svc.Clear(c.Request.Context(), userID, documentID); err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to clear history", nil)
		}
		return
	}

	c.Status(http.StatusNoContent)
}
