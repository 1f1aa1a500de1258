package statement

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Customer statements print on A4. Chrome's print API takes paper
// dimensions in inches, so the millimeter values are converted at the
// point of use.
const (
	a4WidthMM  = 210.0
	a4HeightMM = 297.0

	// Chrome reserves no room for header or footer templates on its
	// own; anything below this margin gets clipped.
	headerFooterMinMM = 10.0

	defaultRenderTimeout = 30 * time.Second
	defaultRenderScale   = 1.0

	mmPerInch = 25.4
)

// ChromedpConfig configures the statement PDF renderer.
type ChromedpConfig struct {
	// DefaultTimeout bounds a single render when the request carries none.
	DefaultTimeout time.Duration
	// RemoteURL points at an already-running Chrome instance. When empty
	// the renderer launches its own headless browser.
	RemoteURL string
	// Headless and DisableGPU are forced on; the fields exist so a
	// remote debugging setup can be described in config.
	Headless   bool
	DisableGPU bool
	// NoSandbox is required when the server runs as root in a container.
	NoSandbox bool
	// Scale applied to the printed page.
	Scale float64
	// Logger receives render timings and chromedp debug output.
	Logger *zap.Logger
}

// ChromedpRenderer turns rendered statement HTML into PDF bytes through
// the Chrome DevTools Protocol. A single renderer owns one browser
// allocator and is safe for concurrent Render calls; each call gets its
// own tab.
type ChromedpRenderer struct {
	config      *ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

var _ PDFRenderer = (*ChromedpRenderer)(nil)

// NewChromedpRenderer builds a renderer and starts its browser allocator.
func NewChromedpRenderer(config *ChromedpConfig) (*ChromedpRenderer, error) {
	if config == nil {
		config = &ChromedpConfig{}
	}
	if config.DefaultTimeout == 0 {
		config.DefaultTimeout = defaultRenderTimeout
	}
	if config.Scale == 0 {
		config.Scale = defaultRenderScale
	}
	// A windowed or GPU-backed Chrome makes no sense on the server.
	config.Headless = true
	config.DisableGPU = true

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &ChromedpRenderer{
		config: config,
		logger: logger,
	}
	r.allocCtx, r.allocCancel = newAllocator(config)
	return r, nil
}

func newAllocator(config *ChromedpConfig) (context.Context, context.CancelFunc) {
	if config.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(context.Background(), config.RemoteURL)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-gpu", config.DisableGPU),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		// /dev/shm is tiny inside Docker
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		// Hinting shifts glyph widths and breaks statement column alignment
		chromedp.Flag("font-render-hinting", "none"),
	)
	if config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	return chromedp.NewExecAllocator(context.Background(), opts...)
}

// Render prints the statement HTML to PDF in a fresh browser tab.
func (r *ChromedpRenderer) Render(ctx context.Context, req *RenderRequest) (*RenderResult, error) {
	if req == nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "render request is nil", nil)
	}
	if strings.TrimSpace(req.HTML) == "" {
		return nil, NewRenderError(ErrCodeInvalidHTML, "HTML content is empty", nil)
	}

	started := time.Now()

	timeout := req.Timeout
	if timeout == 0 {
		timeout = r.config.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tabCtx, closeTab := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer closeTab()

	doc := r.buildCompleteHTML(req)
	opts := r.buildPrintParams(req)

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// SetDocumentContent avoids serving the statement over HTTP
			// just to print it.
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, doc).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := opts.apply(page.PrintToPDF()).Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		switch ctx.Err() {
		case context.DeadlineExceeded:
			return nil, NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("PDF rendering timed out after %v", timeout), err)
		case context.Canceled:
			return nil, NewRenderError(ErrCodeRenderTimeout, "PDF rendering was cancelled", err)
		}
		r.logger.Error("Statement rendering failed", zap.Error(err))
		return nil, NewRenderError(ErrCodeRenderFailed, "chromedp execution failed: "+err.Error(), err)
	}
	if len(pdf) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	pages := estimatePageCount(pdf)
	elapsed := time.Since(started)
	r.logger.Info("Statement PDF rendered",
		zap.Int("bytes", len(pdf)),
		zap.Int("pages", pages),
		zap.Duration("duration", elapsed))

	return &RenderResult{
		PDFData:        pdf,
		PageCount:      pages,
		RenderDuration: elapsed,
	}, nil
}

// printParams is the page geometry handed to Chrome's print API, all
// lengths in inches.
type printParams struct {
	paperWidth          float64
	paperHeight         float64
	marginTop           float64
	marginRight         float64
	marginBottom        float64
	marginLeft          float64
	scale               float64
	landscape           bool
	printBackground     bool
	displayHeaderFooter bool
	headerTemplate      string
	footerTemplate      string
}

func (p *printParams) apply(cmd *page.PrintToPDFParams) *page.PrintToPDFParams {
	return cmd.
		WithPrintBackground(p.printBackground).
		WithPaperWidth(p.paperWidth).
		WithPaperHeight(p.paperHeight).
		WithMarginTop(p.marginTop).
		WithMarginRight(p.marginRight).
		WithMarginBottom(p.marginBottom).
		WithMarginLeft(p.marginLeft).
		WithScale(p.scale).
		WithLandscape(p.landscape).
		WithDisplayHeaderFooter(p.displayHeaderFooter).
		WithHeaderTemplate(p.headerTemplate).
		WithFooterTemplate(p.footerTemplate)
}

func (r *ChromedpRenderer) buildPrintParams(req *RenderRequest) *printParams {
	p := &printParams{
		paperWidth:      mmToInches(a4WidthMM),
		paperHeight:     mmToInches(a4HeightMM),
		marginTop:       mmToInches(float64(req.Margins.Top)),
		marginRight:     mmToInches(float64(req.Margins.Right)),
		marginBottom:    mmToInches(float64(req.Margins.Bottom)),
		marginLeft:      mmToInches(float64(req.Margins.Left)),
		scale:           r.config.Scale,
		landscape:       req.Landscape,
		printBackground: true,
	}

	if req.HeaderHTML != "" || req.FooterHTML != "" {
		p.displayHeaderFooter = true
		p.headerTemplate = req.HeaderHTML
		p.footerTemplate = req.FooterHTML
		if p.headerTemplate != "" && p.marginTop < mmToInches(headerFooterMinMM) {
			p.marginTop = mmToInches(headerFooterMinMM)
		}
		if p.footerTemplate != "" && p.marginBottom < mmToInches(headerFooterMinMM) {
			p.marginBottom = mmToInches(headerFooterMinMM)
		}
	}
	return p
}

// buildCompleteHTML wraps a bare statement fragment in a document shell.
// Templates that already carry their own doctype or html tag pass
// through untouched.
func (r *ChromedpRenderer) buildCompleteHTML(req *RenderRequest) string {
	lower := strings.ToLower(req.HTML)
	if strings.Contains(lower, "<!doctype") || strings.Contains(lower, "<html") {
		return req.HTML
	}

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head>`)
	b.WriteString(`<meta charset="UTF-8">`)
	b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1.0">`)
	if req.Title != "" {
		b.WriteString("<title>")
		b.WriteString(req.Title)
		b.WriteString("</title>")
	}
	b.WriteString("</head><body>")
	b.WriteString(req.HTML)
	b.WriteString("</body></html>")
	return b.String()
}

// Close shuts down the browser allocator.
func (r *ChromedpRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

func mmToInches(mm float64) float64 {
	return mm / mmPerInch
}

// estimatePageCount reads the page object count out of the raw PDF.
// The "/Type /Page" marker also matches the parent "/Type /Pages"
// catalog entries, which are subtracted back out.
func estimatePageCount(pdf []byte) int {
	pages := bytes.Count(pdf, []byte("/Type /Page")) - bytes.Count(pdf, []byte("/Type /Pages"))
	return max(pages, 1)
}
