package documents

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"contract-backend/internal/extract"
	"contract-backend/internal/shared/server/middleware"
	"contract-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the documents service.
type Handler struct {
	Svc  *Service
	poll *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		Svc:  svc,
		poll: newPollLimiter(defaultPollWindow, nil),
	}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/status", h.status)
	rg.POST("/documents/:id/purposes", h.confirmPurpose)
	rg.DELETE("/documents/:id", h.remove)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	purpose, ok := ParsePurpose(c.PostForm("purpose"))
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "purpose must be \"analysis\" or \"chat\"", nil)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "could not read file", nil)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "could not read file", nil)
		return
	}

	decision, err := h.Svc.ResolveUpload(
		c.Request.Context(),
		userID,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		content,
		purpose,
	)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrFileTooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload size limit", nil)
		case errors.Is(err, extract.ErrEmptyFile):
			respond.Error(c, http.StatusBadRequest, "empty_file", "uploaded file is empty", nil)
		case errors.Is(err, extract.ErrUnsupportedFormat):
			respond.Error(c, http.StatusBadRequest, "unsupported_format", "only PDF, DOCX and plain text files are supported", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process upload", nil)
		}
		return
	}

	switch decision.Kind {
	case DecisionCreated:
		respond.JSON(c, http.StatusCreated, UploadResponse{
			Decision: string(decision.Kind),
			Document: ToResponse(decision.Document),
		})
	case DecisionExistingSamePurpose:
		respond.JSON(c, http.StatusOK, UploadResponse{
			Decision: string(decision.Kind),
			Document: ToResponse(decision.Document),
		})
	case DecisionExistingCrossPurpose:
		existing := make([]string, 0, len(decision.ExistingPurposes))
		for _, p := range decision.ExistingPurposes {
			existing = append(existing, string(p))
		}
		respond.Error(c, http.StatusConflict, "duplicate_requires_confirmation",
			"this document already exists with a different purpose; confirm to add the new purpose",
			gin.H{
				"documentId":       decision.Document.ID,
				"existingPurposes": existing,
				"requestedPurpose": string(decision.RequestedPurpose),
			})
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process upload", nil)
	}
}

func (h *Handler) confirmPurpose(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")

	var req ConfirmPurposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "purpose is required", nil)
		return
	}
	purpose, ok := ParsePurpose(req.Purpose)
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "purpose must be \"analysis\" or \"chat\"", nil)
		return
	}

	doc, err := h.Svc.ConfirmPurpose(c.Request.Context(), userID, documentID, purpose)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to confirm purpose", nil)
		}
		return
	}

	respond.OK(c, ToResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	docs, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, ToResponse(doc))
	}
	respond.OK(c, gin.H{"documents": out})
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")

	doc, err := h.Svc.Get(c.Request.Context(), userID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		}
		return
	}

	respond.OK(c, ToResponse(doc))
}

func (h *Handler) status(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")

	if !h.poll.Allow(userID, documentID) {
		c.Header("Retry-After", strconv.Itoa(h.poll.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "too_many_requests", "polling too frequently; slow down", nil)
		return
	}

	doc, err := h.Svc.Status(c.Request.Context(), userID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch status", nil)
		}
		return
	}

	respond.OK(c, toStatusResponse(doc))
}

func (h *Handler) remove(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")

	if err := h.Svc.Delete(c.Request.Context(), userID, documentID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete document", nil)
		}
		return
	}

	c.Status(http.StatusNoContent)
}
