package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	ledgerapp "github.com/khata/backend/internal/application/ledger"
	"github.com/khata/backend/internal/application/statement"
	"github.com/khata/backend/internal/domain/identity"
	"github.com/khata/backend/internal/infrastructure/config"
	stmtrender "github.com/khata/backend/internal/infrastructure/statement"
)

type statementFixture struct {
	*ledgerFixture
}

func newStatementFixture(t *testing.T) *statementFixture {
	t.Helper()

	lf := newLedgerFixture(t)

	merchant, err := identity.NewMerchant("rahim_store", "Rahim General Store", "correct-horse")
	require.NoError(t, err)
	merchant.ID = lf.merchantID

	repo := newMemoryMerchantRepo()
	require.NoError(t, repo.Save(t.Context(), merchant))

	engine, err := stmtrender.NewTemplateEngine()
	require.NoError(t, err)

	svc := statement.NewStatementService(
		lf.store, repo, engine, config.StatementConfig{}, zap.NewNop())
	h := NewStatementHandler(svc)

	authed := lf.router.Group("", withMerchant(lf.merchantID))
	authed.GET("/customers/:id/statement", h.GetHTML)
	authed.GET("/customers/:id/statement/pdf", h.GetPDF)

	return &statementFixture{ledgerFixture: lf}
}

func TestStatementHandler_GetHTML(t *testing.T) {
	f := newStatementFixture(t)
	customer := f.addCustomer(t, "Karim")

	f.do(t, http.MethodPost, "/customers/"+customer.ID.String()+"/bills",
		ledgerapp.RecordTransactionRequest{Amount: 150, Description: "Rice"})

	w := f.do(t, http.MethodGet, "/customers/"+customer.ID.String()+"/statement", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Rahim General Store")
	assert.Contains(t, w.Body.String(), "Karim")
	assert.Contains(t, w.Body.String(), "150.00")
}

func TestStatementHandler_GetHTML_UnknownCustomer(t *testing.T) {
	f := newStatementFixture(t)

	w := f.do(t, http.MethodGet, "/customers/"+uuid.NewString()+"/statement", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatementHandler_GetPDF_Disabled(t *testing.T) {
	f := newStatementFixture(t)
	customer := f.addCustomer(t, "Karim")

	// No PDF renderer configured on the fixture
	w := f.do(t, http.MethodGet, "/customers/"+customer.ID.String()+"/statement/pdf", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestStatementHandler_InvalidCustomerID(t *testing.T) {
	f := newStatementFixture(t)

	w := f.do(t, http.MethodGet, "/customers/not-a-uuid/statement", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
