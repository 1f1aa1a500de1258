package statement

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StatementData is the data bound to the statement template.
type StatementData struct {
	ShopName      string
	CustomerName  string
	CustomerPhone string
	GeneratedAt   time.Time
	Balance       decimal.Decimal
	CreditBalance decimal.Decimal
	// Transactions are listed newest first
	Transactions []StatementLine
}

// StatementLine is one transaction row on the statement.
type StatementLine struct {
	Date        time.Time
	Type        string
	Description string
	Amount      decimal.Decimal
}

// TemplateEngine renders statement data into HTML using html/template.
type TemplateEngine struct {
	tmpl *template.Template
}

// NewTemplateEngine creates a template engine with the built-in
// statement template. A parse failure here is a programming error.
func NewTemplateEngine() (*TemplateEngine, error) {
	funcMap := template.FuncMap{
		"formatMoney": formatMoney,
		"formatDate":  formatDate,
		"title":       titleCase,
		"upper":       strings.ToUpper,
		"lower":       strings.ToLower,
	}

	tmpl, err := template.New("statement").Funcs(funcMap).Parse(statementTemplate)
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "failed to parse statement template", err)
	}

	return &TemplateEngine{tmpl: tmpl}, nil
}

// Render renders the statement HTML for the given data.
func (e *TemplateEngine) Render(data *StatementData) (string, error) {
	if data == nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "statement data is nil", nil)
	}

	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute statement template", err)
	}
	return buf.String(), nil
}

// formatMoney formats a decimal value with thousand separators.
// Example: 1234.56 -> "1,234.56"
func formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	parts := strings.Split(d.StringFixed(2), ".")
	intPart := parts[0]
	decPart := "00"
	if len(parts) > 1 {
		decPart = parts[1]
	}

	var result strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}

	return sign + result.String() + "." + decPart
}

// formatDate formats a time value as a date string.
// Example: time.Now() -> "2024-01-15"
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func titleCase(s string) string {
	caser := cases.Title(language.English)
	return caser.String(s)
}

const statementTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Account Statement</title>
<style>
  body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 12px; color: #222; }
  .header { border-bottom: 2px solid #222; padding-bottom: 8px; margin-bottom: 16px; }
  .shop { font-size: 18px; font-weight: bold; }
  .meta { color: #666; margin-top: 4px; }
  .summary { margin: 12px 0; }
  .summary td { padding: 2px 12px 2px 0; }
  .balance-due { color: #b00020; font-weight: bold; }
  .in-credit { color: #1b5e20; font-weight: bold; }
  table.lines { width: 100%; border-collapse: collapse; margin-top: 8px; }
  table.lines th { text-align: left; border-bottom: 1px solid #999; padding: 4px; }
  table.lines td { border-bottom: 1px solid #eee; padding: 4px; }
  td.amount { text-align: right; white-space: nowrap; }
  .footer { margin-top: 24px; color: #999; font-size: 10px; }
</style>
</head>
<body>
<div class="header">
  <div class="shop">{{.ShopName}}</div>
  <div class="meta">Account statement for {{title .CustomerName}}{{if .CustomerPhone}} ({{.CustomerPhone}}){{end}}</div>
  <div class="meta">Generated {{formatDate .GeneratedAt}}</div>
</div>

<table class="summary">
  <tr>
    <td>Outstanding balance</td>
    <td class="{{if .Balance.IsPositive}}balance-due{{else}}in-credit{{end}}">{{formatMoney .Balance}}</td>
  </tr>
  {{if .CreditBalance.IsPositive}}
  <tr>
    <td>Stored credit</td>
    <td class="in-credit">{{formatMoney .CreditBalance}}</td>
  </tr>
  {{end}}
</table>

<table class="lines">
  <thead>
    <tr>
      <th>Date</th>
      <th>Type</th>
      <th>Description</th>
      <th style="text-align:right">Amount</th>
    </tr>
  </thead>
  <tbody>
    {{range .Transactions}}
    <tr>
      <td>{{formatDate .Date}}</td>
      <td>{{title (lower .Type)}}</td>
      <td>{{.Description}}</td>
      <td class="amount">{{formatMoney .Amount}}</td>
    </tr>
    {{else}}
    <tr><td colspan="4">No transactions recorded.</td></tr>
    {{end}}
  </tbody>
</table>

<div class="footer">This statement lists transactions newest first. Payments are applied to the oldest unpaid bills.</div>
</body>
</html>`
