// Package invoice renders printable order invoices.
package invoice

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"strings"
	"time"

	"baburchi-admin/internal/model"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrPDFDisabled = errors.New("pdf rendering is not enabled")

// Line is one invoice row
type Line struct {
	Name      string
	Quantity  int
	UnitPrice string
	Total     string
}

// Data is everything the invoice template needs
type Data struct {
	BrandName       string
	Logo            template.URL
	OrderID         string
	Date            string
	Status          string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Notes           string
	ConsignmentID   string
	TrackingCode    string
	Lines           []Line
	Total           string
}

// PDFRenderer turns a complete HTML document into PDF bytes
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html []byte) ([]byte, error)
}

var printer = message.NewPrinter(language.English)

// FormatAmount renders taka with thousands separators, e.g. ৳1,650
func FormatAmount(amount int64) string {
	return printer.Sprintf("৳%d", amount)
}

// NewData builds template data from an order; logo may be empty
func NewData(brandName, logo string, order *model.Order) Data {
	d := Data{
		BrandName:       brandName,
		Logo:            safeLogo(logo),
		OrderID:         order.ID,
		Date:            order.CreatedAt.Format("02 Jan 2006"),
		Status:          string(order.Status),
		CustomerName:    order.CustomerName,
		CustomerPhone:   order.CustomerPhone,
		CustomerAddress: order.CustomerAddress,
		Notes:           order.Notes,
		Total:           FormatAmount(order.TotalAmount),
	}
	if order.SteadfastID != nil {
		d.ConsignmentID = *order.SteadfastID
	}
	if order.TrackingCode != nil {
		d.TrackingCode = *order.TrackingCode
	}
	for _, item := range order.Items {
		name := item.ProductName
		if name == "" {
			name = item.ProductID
		}
		d.Lines = append(d.Lines, Line{
			Name:      name,
			Quantity:  item.Quantity,
			UnitPrice: FormatAmount(item.Price),
			Total:     FormatAmount(item.LineTotal()),
		})
	}
	return d
}

// only data URLs and http(s) links are trusted as image sources
func safeLogo(logo string) template.URL {
	switch {
	case strings.HasPrefix(logo, "data:image/"),
		strings.HasPrefix(logo, "https://"),
		strings.HasPrefix(logo, "http://"):
		return template.URL(logo)
	}
	return ""
}

// Renderer produces HTML invoices and, when configured, PDFs
type Renderer struct {
	tmpl *template.Template
	pdf  PDFRenderer

	// Timeout bounds one PDF render
	Timeout time.Duration
}

// NewRenderer parses the built-in template; pdf may be nil
func NewRenderer(pdf PDFRenderer) (*Renderer, error) {
	tmpl, err := template.New("invoice").Parse(invoiceTemplate)
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl, pdf: pdf, Timeout: time.Minute}, nil
}

func (r *Renderer) HTML(data Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) PDF(ctx context.Context, data Data) ([]byte, error) {
	if r.pdf == nil {
		return nil, ErrPDFDisabled
	}
	html, err := r.HTML(data)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	return r.pdf.RenderPDF(ctx, html)
}

func (r *Renderer) PDFEnabled() bool {
	return r.pdf != nil
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Invoice {{.OrderID}}</title>
<style>
  body { font-family: "Helvetica Neue", Arial, sans-serif; color: #1e293b; margin: 32px; }
  header { display: flex; justify-content: space-between; align-items: center; border-bottom: 2px solid #e2e8f0; padding-bottom: 16px; }
  header img { max-height: 64px; }
  h1 { font-size: 22px; margin: 0; }
  .meta { font-size: 12px; color: #64748b; text-align: right; }
  .customer { margin: 24px 0; font-size: 14px; line-height: 1.6; }
  table { width: 100%; border-collapse: collapse; font-size: 13px; }
  th { text-align: left; background: #f1f5f9; padding: 8px; }
  td { padding: 8px; border-bottom: 1px solid #e2e8f0; }
  .num { text-align: right; }
  .total td { font-weight: bold; font-size: 15px; border-bottom: none; }
  .notes { margin-top: 24px; font-size: 12px; color: #475569; }
</style>
</head>
<body>
<header>
  <div>
    {{if .Logo}}<img src="{{.Logo}}" alt="{{.BrandName}}">{{else}}<h1>{{.BrandName}}</h1>{{end}}
  </div>
  <div class="meta">
    <div><strong>Invoice {{.OrderID}}</strong></div>
    <div>{{.Date}}</div>
    <div>Status: {{.Status}}</div>
    {{if .ConsignmentID}}<div>Consignment: {{.ConsignmentID}}</div>{{end}}
    {{if .TrackingCode}}<div>Tracking: {{.TrackingCode}}</div>{{end}}
  </div>
</header>
<section class="customer">
  <div><strong>{{.CustomerName}}</strong></div>
  <div>{{.CustomerPhone}}</div>
  <div>{{.CustomerAddress}}</div>
</section>
<table>
  <thead><tr><th>Item</th><th class="num">Qty</th><th class="num">Unit price</th><th class="num">Amount</th></tr></thead>
  <tbody>
  {{range .Lines}}<tr><td>{{.Name}}</td><td class="num">{{.Quantity}}</td><td class="num">{{.UnitPrice}}</td><td class="num">{{.Total}}</td></tr>
  {{end}}<tr class="total"><td colspan="3" class="num">Total (Cash on Delivery)</td><td class="num">{{.Total}}</td></tr>
  </tbody>
</table>
{{if .Notes}}<p class="notes">Note: {{.Notes}}</p>{{end}}
</body>
</html>
`
