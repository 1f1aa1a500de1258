package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ledgerapp "github.com/khata/backend/internal/application/ledger"
)

// LedgerHandler handles bill, payment and balance endpoints
type LedgerHandler struct {
	BaseHandler
	ledgerService *ledgerapp.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *ledgerapp.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
	}
}

// RecordBill records a credit sale against a customer
func (h *LedgerHandler) RecordBill(c *gin.Context) {
	merchantID, customerID, ok := h.ledgerScope(c)
	if !ok {
		return
	}

	var req ledgerapp.RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	bill, err := h.ledgerService.RecordBill(c.Request.Context(), merchantID, customerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, bill)
}

// RecordPayment records a payment and reports how it was applied to
// outstanding bills
func (h *LedgerHandler) RecordPayment(c *gin.Context) {
	merchantID, customerID, ok := h.ledgerScope(c)
	if !ok {
		return
	}

	var req ledgerapp.RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.ledgerService.RecordPayment(c.Request.Context(), merchantID, customerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, payment)
}

// History returns a customer's transactions newest first
func (h *LedgerHandler) History(c *gin.Context) {
	merchantID, customerID, ok := h.ledgerScope(c)
	if !ok {
		return
	}

	history, err := h.ledgerService.History(merchantID, customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, history)
}

// Balance returns a customer's net outstanding balance
func (h *LedgerHandler) Balance(c *gin.Context) {
	merchantID, customerID, ok := h.ledgerScope(c)
	if !ok {
		return
	}

	h.Success(c, h.ledgerService.Balance(merchantID, customerID))
}

// CreditEntries returns a customer's credit audit trail
func (h *LedgerHandler) CreditEntries(c *gin.Context) {
	merchantID, customerID, ok := h.ledgerScope(c)
	if !ok {
		return
	}

	entries, err := h.ledgerService.CreditEntries(merchantID, customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}

// TotalReceivables returns the sum of outstanding balances across all
// of the merchant's customers
func (h *LedgerHandler) TotalReceivables(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	h.Success(c, h.ledgerService.TotalReceivables(merchantID))
}

// ledgerScope extracts the merchant and customer IDs shared by the
// per-customer routes. It writes the error response itself when either
// is missing or malformed.
func (h *LedgerHandler) ledgerScope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
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
