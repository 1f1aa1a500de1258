// Package statement assembles customer account statements from the
// ledger and renders them as HTML or PDF.
package statement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khata/backend/internal/domain/identity"
	"github.com/khata/backend/internal/domain/ledger"
	"github.com/khata/backend/internal/domain/shared"
	"github.com/khata/backend/internal/infrastructure/config"
	stmtrender "github.com/khata/backend/internal/infrastructure/statement"
	"github.com/khata/backend/internal/infrastructure/storage"
)

// StatementService builds statements for a merchant's customers. PDF
// rendering and archiving are optional; the HTML path always works.
type StatementService struct {
	store        *ledger.Store
	merchantRepo identity.MerchantRepository
	engine       *stmtrender.TemplateEngine
	renderer     stmtrender.PDFRenderer
	archive      storage.ObjectStorage
	config       config.StatementConfig
	logger       *zap.Logger
}

// StatementServiceOption configures a StatementService
type StatementServiceOption func(*StatementService)

// WithPDFRenderer enables PDF output
func WithPDFRenderer(r stmtrender.PDFRenderer) StatementServiceOption {
	return func(s *StatementService) {
		s.renderer = r
	}
}

// WithArchive enables uploading rendered PDFs to object storage
func WithArchive(store storage.ObjectStorage) StatementServiceOption {
	return func(s *StatementService) {
		s.archive = store
	}
}

// NewStatementService creates a new statement service
func NewStatementService(
	store *ledger.Store,
	merchantRepo identity.MerchantRepository,
	engine *stmtrender.TemplateEngine,
	cfg config.StatementConfig,
	logger *zap.Logger,
	opts ...StatementServiceOption,
) *StatementService {
	s := &StatementService{
		store:        store,
		merchantRepo: merchantRepo,
		engine:       engine,
		config:       cfg,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RenderHTML builds the statement HTML for a customer.
func (s *StatementService) RenderHTML(ctx context.Context, tenantID, customerID uuid.UUID) (string, error) {
	data, err := s.buildStatementData(ctx, tenantID, customerID)
	if err != nil {
		return "", err
	}
	return s.engine.Render(data)
}

// RenderPDF builds the statement and renders it to PDF. When archiving
// is enabled the PDF is also uploaded to object storage; an archive
// failure is logged but does not fail the request.
func (s *StatementService) RenderPDF(ctx context.Context, tenantID, customerID uuid.UUID) (*StatementPDF, error) {
	if s.renderer == nil {
		return nil, shared.NewDomainError("STATEMENT_PDF_DISABLED", "PDF statement rendering is not enabled")
	}

	data, err := s.buildStatementData(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}

	html, err := s.engine.Render(data)
	if err != nil {
		return nil, err
	}

	result, err := s.renderer.Render(ctx, &stmtrender.RenderRequest{
		HTML:    html,
		Title:   fmt.Sprintf("Statement - %s", data.CustomerName),
		Margins: stmtrender.DefaultMargins(),
		Timeout: s.config.RenderTimeout,
	})
	if err != nil {
		s.logger.Error("Statement PDF rendering failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("customer_id", customerID.String()),
			zap.Error(err),
		)
		return nil, shared.NewDomainError("STATEMENT_RENDER_FAILED", "Failed to render statement PDF")
	}

	pdf := &StatementPDF{
		Data:      result.PDFData,
		PageCount: result.PageCount,
	}

	if s.config.ArchiveToS3 && s.archive != nil {
		pdf.ArchiveURL = s.archivePDF(ctx, tenantID, customerID, result.PDFData)
	}

	s.logger.Info("Statement PDF generated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("customer_id", customerID.String()),
		zap.Int("pages", result.PageCount),
		zap.Int("bytes", len(result.PDFData)),
	)

	return pdf, nil
}

// archivePDF uploads the PDF and returns a download URL, or "" when
// the upload fails.
func (s *StatementService) archivePDF(ctx context.Context, tenantID, customerID uuid.UUID, data []byte) string {
	key := fmt.Sprintf("statements/%s/%s/%s.pdf",
		tenantID.String(), customerID.String(), time.Now().UTC().Format("20060102T150405Z"))

	if err := s.archive.Upload(ctx, key, data, "application/pdf"); err != nil {
		s.logger.Warn("Statement archive upload failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return ""
	}

	url, _, err := s.archive.GenerateDownloadURL(ctx, key, 24*time.Hour)
	if err != nil {
		s.logger.Warn("Statement archive URL generation failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return ""
	}
	return url
}

// buildStatementData gathers everything the template needs: the
// merchant's shop name, the customer, the derived balance and the
// newest-first history.
func (s *StatementService) buildStatementData(ctx context.Context, tenantID, customerID uuid.UUID) (*stmtrender.StatementData, error) {
	customer, err := s.store.Customer(tenantID, customerID)
	if err != nil {
		return nil, err
	}

	txns, err := s.store.History(tenantID, customerID)
	if err != nil {
		return nil, err
	}

	shopName := "Statement"
	merchant, err := s.merchantRepo.FindByID(ctx, tenantID)
	if err == nil {
		shopName = merchant.ShopName
	} else {
		s.logger.Warn("Merchant lookup failed for statement header",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	}

	lines := make([]stmtrender.StatementLine, len(txns))
	for i, t := range txns {
		lines[i] = stmtrender.StatementLine{
			Date:        t.Date,
			Type:        string(t.Type),
			Description: t.Description,
			Amount:      t.Amount,
		}
	}

	return &stmtrender.StatementData{
		ShopName:      shopName,
		CustomerName:  customer.Name,
		CustomerPhone: customer.Phone,
		GeneratedAt:   time.Now(),
		Balance:       s.store.BalanceOf(tenantID, customerID),
		CreditBalance: customer.CreditBalance,
		Transactions:  lines,
	}, nil
}
