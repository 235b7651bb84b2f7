package analysis

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"contract-backend/internal/documents"
	"contract-backend/internal/shared/server/middleware"
	"contract-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analysis service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/analyze", h.analyze)
}

func (h *Handler) analyze(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	if documentID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "document id is required", nil)
		return
	}

	doc, err := h.Svc.Run(c.Request.Context(), userID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrAnalysisInProgress):
			respond.Error(c, http.StatusConflict, "analysis_in_progress", "analysis is already running for this document", nil)
		case errors.Is(err, ErrAnalysisFailed):
			respond.Error(c, http.StatusInternalServerError, "analysis_failed", "Analysis failed and the document has been removed. Please try uploading again.", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to analyze document", nil)
		}
		return
	}

	respond.OK(c, documents.ToResponse(doc))
}
