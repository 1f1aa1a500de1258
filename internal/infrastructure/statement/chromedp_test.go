package statement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(config *ChromedpConfig) *ChromedpRenderer {
	if config == nil {
		config = &ChromedpConfig{}
	}
	if config.Scale == 0 {
		config.Scale = 1.0
	}
	// No allocator: these tests only exercise geometry and document
	// assembly, never a live browser.
	return &ChromedpRenderer{config: config}
}

func TestNewChromedpRenderer_AppliesDefaults(t *testing.T) {
	r, err := NewChromedpRenderer(&ChromedpConfig{})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 30*time.Second, r.config.DefaultTimeout)
	assert.Equal(t, 1.0, r.config.Scale)
	assert.True(t, r.config.Headless)
	assert.True(t, r.config.DisableGPU)
}

func TestNewChromedpRenderer_NilConfig(t *testing.T) {
	r, err := NewChromedpRenderer(nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, defaultRenderTimeout, r.config.DefaultTimeout)
}

func TestBuildPrintParams_A4Portrait(t *testing.T) {
	r := newTestRenderer(nil)

	params := r.buildPrintParams(&RenderRequest{
		HTML:    "<div>Monthly statement</div>",
		Margins: DefaultMargins(),
	})

	assert.InDelta(t, 210.0/25.4, params.paperWidth, 0.01)
	assert.InDelta(t, 297.0/25.4, params.paperHeight, 0.01)
	assert.False(t, params.landscape)
	assert.True(t, params.printBackground)
}

func TestBuildPrintParams_Landscape(t *testing.T) {
	r := newTestRenderer(nil)

	params := r.buildPrintParams(&RenderRequest{
		HTML:      "<div>Dues summary</div>",
		Landscape: true,
		Margins:   DefaultMargins(),
	})

	assert.True(t, params.landscape)
}

func TestBuildPrintParams_ConvertsMarginsToInches(t *testing.T) {
	r := newTestRenderer(nil)

	params := r.buildPrintParams(&RenderRequest{
		HTML:    "<div>Dues summary</div>",
		Margins: Margins{Top: 10, Right: 15, Bottom: 20, Left: 25},
	})

	assert.InDelta(t, mmToInches(10), params.marginTop, 0.001)
	assert.InDelta(t, mmToInches(15), params.marginRight, 0.001)
	assert.InDelta(t, mmToInches(20), params.marginBottom, 0.001)
	assert.InDelta(t, mmToInches(25), params.marginLeft, 0.001)
}

func TestBuildPrintParams_HeaderFooterReservesMargins(t *testing.T) {
	r := newTestRenderer(nil)

	params := r.buildPrintParams(&RenderRequest{
		HTML:       "<div>Dues summary</div>",
		Margins:    Margins{},
		HeaderHTML: "<div>Rahim Store</div>",
		FooterHTML: "<div>Page footer</div>",
	})

	assert.True(t, params.displayHeaderFooter)
	assert.Equal(t, "<div>Rahim Store</div>", params.headerTemplate)
	assert.Equal(t, "<div>Page footer</div>", params.footerTemplate)
	assert.GreaterOrEqual(t, params.marginTop, mmToInches(headerFooterMinMM))
	assert.GreaterOrEqual(t, params.marginBottom, mmToInches(headerFooterMinMM))
}

func TestBuildCompleteHTML_FullDocumentPassesThrough(t *testing.T) {
	r := newTestRenderer(nil)

	doc := "<!DOCTYPE html><html><head></head><body>statement</body></html>"
	got := r.buildCompleteHTML(&RenderRequest{HTML: doc})

	assert.Equal(t, doc, got)
}

func TestBuildCompleteHTML_WrapsFragment(t *testing.T) {
	r := newTestRenderer(nil)

	got := r.buildCompleteHTML(&RenderRequest{
		HTML:  "<table><tr><td>1200.00</td></tr></table>",
		Title: "Statement for Karim Traders",
	})

	assert.Contains(t, got, "<!DOCTYPE html>")
	assert.Contains(t, got, `<meta charset="UTF-8">`)
	assert.Contains(t, got, "<title>Statement for Karim Traders</title>")
	assert.Contains(t, got, "<table><tr><td>1200.00</td></tr></table>")
	assert.Contains(t, got, "</body></html>")
}

func TestMmToInches(t *testing.T) {
	tests := []struct {
		mm   float64
		want float64
	}{
		{0, 0},
		{25.4, 1.0},
		{50.8, 2.0},
		{a4WidthMM, 8.2677},
		{a4HeightMM, 11.6929},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, mmToInches(tt.mm), 0.001)
	}
}

func TestEstimatePageCount(t *testing.T) {
	twoPages := []byte("%PDF /Type /Pages /Type /Page /Type /Page xref")
	assert.Equal(t, 2, estimatePageCount(twoPages))

	// Never reports less than one page, even for a mangled PDF
	assert.Equal(t, 1, estimatePageCount([]byte("%PDF")))
}

func TestRender_RejectsEmptyInput(t *testing.T) {
	r := newTestRenderer(nil)

	var renderErr *RenderError

	_, err := r.Render(context.Background(), nil)
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)

	_, err = r.Render(context.Background(), &RenderRequest{HTML: "   "})
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)
}

func TestChromedpRenderer_CloseWithoutAllocator(t *testing.T) {
	r := newTestRenderer(nil)
	assert.NoError(t, r.Close())
}
