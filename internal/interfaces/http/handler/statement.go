package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/khata/backend/internal/application/statement"
)

// StatementHandler serves rendered account statements
type StatementHandler struct {
	BaseHandler
	statementService *statement.StatementService
}

// NewStatementHandler creates a new StatementHandler
func NewStatementHandler(statementService *statement.StatementService) *StatementHandler {
	return &StatementHandler{
		statementService: statementService,
	}
}

// GetHTML renders a customer's statement as an HTML page
func (h *StatementHandler) GetHTML(c *gin.Context) {
	merchantID, customerID, ok := h.statementScope(c)
	if !ok {
		return
	}

	html, err := h.statementService.RenderHTML(c.Request.Context(), merchantID, customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// GetPDF renders a customer's statement as a downloadable PDF
func (h *StatementHandler) GetPDF(c *gin.Context) {
	merchantID, customerID, ok := h.statementScope(c)
	if !ok {
		return
	}

	pdf, err := h.statementService.RenderPDF(c.Request.Context(), merchantID, customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=statement-%s.pdf", customerID))
	c.Header("X-Statement-Pages", strconv.Itoa(pdf.PageCount))
	if pdf.ArchiveURL != "" {
		c.Header("X-Statement-Archive-Url", pdf.ArchiveURL)
	}
	c.Data(http.StatusOK, "application/pdf", pdf.Data)
}

func (h *StatementHandler) statementScope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}

	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID")
		return uuid.Nil, uuid.Nil, false
	}

	return merchantID, customerID, true
}
