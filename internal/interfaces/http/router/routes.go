package router

import (
	"github.com/khata/backend/internal/interfaces/http/handler"
)

// AuthRoutes builds the authentication route group. Register, login
// and refresh are listed in the JWT middleware skip paths; the rest
// require a valid access token.
func AuthRoutes(h *handler.AuthHandler) RouteRegistrar {
	auth := NewDomainGroup("auth", "/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.RefreshToken)
	auth.POST("/logout", h.Logout)
	auth.GET("/me", h.GetCurrentMerchant)
	auth.PUT("/password", h.ChangePassword)
	return auth
}

// LedgerRoutes builds the customer book route group: the customer
// directory, bills and payments, balances and statements.
func LedgerRoutes(
	customers *handler.CustomerHandler,
	ledger *handler.LedgerHandler,
	statements *handler.StatementHandler,
) RouteRegistrar {
	group := NewDomainGroup("ledger", "/customers")
	group.POST("", customers.Create)
	group.GET("", customers.List)
	group.GET("/:id", customers.Get)
	group.POST("/:id/bills", ledger.RecordBill)
	group.POST("/:id/payments", ledger.RecordPayment)
	group.GET("/:id/history", ledger.History)
	group.GET("/:id/balance", ledger.Balance)
	group.GET("/:id/credit-entries", ledger.CreditEntries)
	group.GET("/:id/statement", statements.GetHTML)
	group.GET("/:id/statement/pdf", statements.GetPDF)
	return group
}

// ReceivablesRoutes exposes the merchant-wide receivables total
func ReceivablesRoutes(ledger *handler.LedgerHandler) RouteRegistrar {
	group := NewDomainGroup("receivables", "/receivables")
	group.GET("", ledger.TotalReceivables)
	return group
}

// SystemRoutes builds the system information route group
func SystemRoutes(h *handler.SystemHandler) RouteRegistrar {
	group := NewDomainGroup("system", "/system")
	group.GET("/ping", h.Ping)
	group.GET("/info", h.GetSystemInfo)
	group.GET("/health", h.Health)
	return group
}
