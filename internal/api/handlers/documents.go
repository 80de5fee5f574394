package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
	"github.com/IvanYuichiC/etab-flow-sign/internal/services"
	"github.com/IvanYuichiC/etab-flow-sign/internal/workflow"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DocumentHandler struct {
	docService *services.DocumentService
	engine     *workflow.Engine
	db         *gorm.DB
	logger     *zap.Logger
}

func NewDocumentHandler(
	docService *services.DocumentService,
	engine *workflow.Engine,
	db *gorm.DB,
	logger *zap.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
		engine:     engine,
		db:         db,
		logger:     logger.With(zap.String("handler", "document")),
	}
}

// statusLabel maps the stored status to the display strings the tracking
// pages have always shown.
func statusLabel(status models.DocumentStatus) string {
	switch status {
	case models.StatusPending:
		return "Pending"
	case models.StatusInProgress:
		return "In Progress"
	case models.StatusCompleted:
		return "Completed"
	case models.StatusReturned:
		return "Returned"
	}
	return string(status)
}

func signatoryStateLabel(state workflow.SignatoryState) string {
	switch state {
	case workflow.StateSigned:
		return "Completed"
	case workflow.StateActionable:
		return "In Progress"
	default:
		return "Pending"
	}
}

func documentJSON(doc *models.Document) gin.H {
	out := gin.H{
		"id":            doc.ID,
		"document_id":   doc.Code,
		"title":         doc.Title,
		"description":   doc.Description,
		"document_type": doc.DocumentType,
		"department":    doc.Department,
		"status":        statusLabel(doc.Status),
		"created_by":    doc.CreatedBy,
		"created_at":    doc.CreatedAt,
		"updated_at":    doc.UpdatedAt,
	}
	if doc.FileURL != "" {
		out["file_url"] = doc.FileURL
	}
	if doc.Status == models.StatusReturned && doc.ReturnReason != "" {
		out["return_reason"] = doc.ReturnReason
	}
	return out
}

type createDocumentRequest struct {
	Title            string `json:"title" binding:"required"`
	Description      string `json:"description"`
	DocumentType     string `json:"document_type"`
	Department       string `json:"department"`
	FileURL          string `json:"file_url"`
	SignatoryUserIDs []uint `json:"signatory_user_ids" binding:"required"`
}

func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	userID := c.GetUint("userID")

	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and signatory list are required"})
		return
	}

	doc, err := h.docService.CreateDocument(c.Request.Context(), services.CreateDocumentInput{
		Title:            req.Title,
		Description:      req.Description,
		DocumentType:     req.DocumentType,
		Department:       req.Department,
		FileURL:          req.FileURL,
		CreatedBy:        userID,
		SignatoryUserIDs: req.SignatoryUserIDs,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTitleRequired),
			errors.Is(err, services.ErrNoSignatories),
			errors.Is(err, services.ErrDuplicateSignatory),
			errors.Is(err, services.ErrUnknownSignatory):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("create document failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create document"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"document": documentJSON(doc)})
}

func (h *DocumentHandler) ShowDashboard(c *gin.Context) {
	userID := c.GetUint("userID")
	ctx := c.Request.Context()

	stats, err := h.docService.Stats(ctx, userID)
	if err != nil {
		h.logger.Error("dashboard stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
		return
	}

	docs, err := h.docService.ListByCreator(ctx, userID)
	if err != nil {
		h.logger.Error("list documents failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
		return
	}

	awaiting, err := h.docService.ListAwaitingSignature(ctx, userID)
	if err != nil {
		h.logger.Error("list awaiting failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
		return
	}

	docsOut := make([]gin.H, len(docs))
	for i := range docs {
		docsOut[i] = documentJSON(&docs[i])
	}
	awaitingOut := make([]gin.H, len(awaiting))
	for i := range awaiting {
		awaitingOut[i] = documentJSON(&awaiting[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":              stats,
		"documents":          docsOut,
		"awaiting_signature": awaitingOut,
	})
}

func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	userID := c.GetUint("userID")

	docs, err := h.docService.ListByCreator(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list documents failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list documents"})
		return
	}

	out := make([]gin.H, len(docs))
	for i := range docs {
		out[i] = documentJSON(&docs[i])
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

// workflowViewJSON renders the projection with signatory user details, the
// shape both the tracker and the sign page consume.
func (h *DocumentHandler) workflowViewJSON(view *workflow.WorkflowView) gin.H {
	userIDs := make([]uint, 0, len(view.Signatories))
	for _, sv := range view.Signatories {
		userIDs = append(userIDs, sv.Signatory.UserID)
	}

	userMap := make(map[uint]models.User, len(userIDs))
	if len(userIDs) > 0 {
		var users []models.User
		if err := h.db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			h.logger.Warn("failed to load signatory users", zap.Error(err))
		}
		for _, u := range users {
			userMap[u.ID] = u
		}
	}

	signatories := make([]gin.H, len(view.Signatories))
	for i, sv := range view.Signatories {
		s := sv.Signatory
		entry := gin.H{
			"order_index": s.OrderIndex,
			"user_id":     s.UserID,
			"status":      signatoryStateLabel(sv.State),
			"actionable":  sv.State == workflow.StateActionable,
		}
		if s.SignedAt != nil {
			entry["signed_at"] = s.SignedAt
		}
		if s.Remarks != nil {
			entry["remarks"] = *s.Remarks
		}
		if u, ok := userMap[s.UserID]; ok {
			entry["full_name"] = u.FullName
			entry["position"] = u.Position
			entry["department"] = u.Department
		}
		signatories[i] = entry
	}

	out := gin.H{
		"document":    documentJSON(&view.Document),
		"signatories": signatories,
	}
	if view.NextUserID != 0 {
		out["next_user_id"] = view.NextUserID
	}
	return out
}

// TrackDocument is the public tracking endpoint a document's QR code points
// at. No authentication; read-only.
func (h *DocumentHandler) TrackDocument(c *gin.Context) {
	view, err := h.engine.ProjectWorkflowView(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.workflowViewJSON(view))
}

// ShowSignPage returns the data the signing page needs: the shared workflow
// view plus the caller's own position and whether they may act now.
func (h *DocumentHandler) ShowSignPage(c *gin.Context) {
	userID := c.GetUint("userID")
	docID := c.Param("id")
	ctx := c.Request.Context()

	view, err := h.engine.ProjectWorkflowView(ctx, docID)
	if err != nil {
		h.respondWorkflowError(c, err)
		return
	}

	out := h.workflowViewJSON(view)

	eligible := false
	switch err := h.engine.CheckEligibility(ctx, docID, userID); {
	case err == nil:
		eligible = true
	case errors.Is(err, workflow.ErrNotASignatory):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to sign this document"})
		return
	}
	out["can_sign_now"] = eligible

	c.JSON(http.StatusOK, out)
}

type signRequest struct {
	Remarks string `json:"remarks"`
}

func (h *DocumentHandler) SignDocument(c *gin.Context) {
	userID := c.GetUint("userID")
	docID := c.Param("id")

	// Remarks are optional; an empty body is fine.
	var req signRequest
	_ = c.ShouldBindJSON(&req)

	res, err := h.engine.TrySign(c.Request.Context(), docID, userID, req.Remarks)
	if err != nil {
		h.respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Document signed successfully",
		"status":      statusLabel(res.Status),
		"order_index": res.Signatory.OrderIndex,
		"signed_at":   res.Signatory.SignedAt,
		"completed":   res.Completed,
	})
}

type returnRequest struct {
	Reason string `json:"reason"`
}

func (h *DocumentHandler) ReturnDocument(c *gin.Context) {
	userID := c.GetUint("userID")
	docID := c.Param("id")

	var req returnRequest
	_ = c.ShouldBindJSON(&req)

	err := h.docService.ReturnDocument(c.Request.Context(), docID, userID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrDocumentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		case errors.Is(err, services.ErrNotDocumentOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrDocumentClosed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("return document failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to return document"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document returned"})
}

func (h *DocumentHandler) AuditTrail(c *gin.Context) {
	docID := c.Param("id")

	if _, err := h.engine.ProjectWorkflowView(c.Request.Context(), docID); err != nil {
		h.respondWorkflowError(c, err)
		return
	}

	entries, err := h.docService.AuditTrail(c.Request.Context(), docID)
	if err != nil {
		h.logger.Error("audit trail failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load audit trail"})
		return
	}

	out := make([]gin.H, len(entries))
	for i, e := range entries {
		out[i] = gin.H{
			"document_id": e.DocumentID,
			"user_id":     e.UserID,
			"action":      e.Action,
			"details":     e.Details,
			"created_at":  e.CreatedAt.Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, gin.H{"audit_log": out})
}

// respondWorkflowError translates the engine's error taxonomy into HTTP
// responses. Every error surfaces; nothing is swallowed.
func (h *DocumentHandler) respondWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrDocumentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
	case errors.Is(err, workflow.ErrNotASignatory):
		h.logger.Warn("denied signing attempt",
			zap.String("doc_id", c.Param("id")),
			zap.Uint("user_id", c.GetUint("userID")))
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not authorized to sign this document"})
	case errors.Is(err, workflow.ErrAlreadySigned):
		// Duplicate attempt is a no-op confirmation, not a failure.
		c.JSON(http.StatusOK, gin.H{"message": "Document already signed", "already_signed": true})
	case errors.Is(err, workflow.ErrPredecessorNotSigned):
		c.JSON(http.StatusConflict, gin.H{"error": "Please wait for the previous signatory to sign first"})
	case errors.Is(err, workflow.ErrDocumentReturned):
		c.JSON(http.StatusConflict, gin.H{"error": "Document has been returned and is closed for signing"})
	case errors.Is(err, workflow.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Document was updated concurrently, please retry"})
	default:
		h.logger.Error("workflow operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
