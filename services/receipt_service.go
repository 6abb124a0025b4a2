package services

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/casaluna/casaluna-api/models"
)

// moneyPrinter renders dollar amounts with grouping ("$1,234.50")
var moneyPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatMoney renders a decimal amount as a display price
func FormatMoney(amount decimal.Decimal) string {
	return moneyPrinter.Sprintf("$%.2f", amount.InexactFloat64())
}

// receiptLine is one rendered order line
type receiptLine struct {
	Name         string
	Quantity     int
	Instructions string
	UnitPrice    string
	LineTotal    string
}

// receiptData feeds both document templates
type receiptData struct {
	Title         string
	Number        string
	CustomerName  string
	OrderType     string
	PlacedAt      string
	PickupTime    string
	Lines         []receiptLine
	Subtotal      string
	Discount      string
	HasDiscount   bool
	Total         string
	PaymentMethod string
	Notes         string
}

// ReceiptService renders printable order documents: the customer receipt
// (with prices) and the kitchen ticket (without). Both are self-contained
// HTML documents that trigger the browser's print dialog on load.
type ReceiptService struct{}

// NewReceiptService creates a receipt service
func NewReceiptService() *ReceiptService {
	return &ReceiptService{}
}

// RenderReceipt produces the customer receipt for an order
func (s *ReceiptService) RenderReceipt(order *models.Order) ([]byte, error) {
	data := s.buildData(order, "Receipt")
	return s.render(receiptTemplate, data)
}

// RenderKitchenTicket produces the kitchen ticket for an order.
// No prices: the kitchen only needs items, quantities and instructions.
func (s *ReceiptService) RenderKitchenTicket(order *models.Order) ([]byte, error) {
	data := s.buildData(order, "Kitchen Ticket")
	return s.render(kitchenTicketTemplate, data)
}

func (s *ReceiptService) buildData(order *models.Order, title string) receiptData {
	data := receiptData{
		Title:        title,
		Number:       order.Number,
		CustomerName: order.Customer.Name,
		OrderType:    order.OrderType,
		PlacedAt:     order.CreatedAt.Format("Jan 2, 2006 3:04 PM"),
		Subtotal:     FormatMoney(order.Subtotal),
		Discount:     FormatMoney(order.DiscountAmount),
		HasDiscount:  order.DiscountAmount.IsPositive(),
		Total:        FormatMoney(order.Total),
		Notes:        order.Notes,
	}
	if order.EstimatedPickupTime != nil {
		data.PickupTime = order.EstimatedPickupTime.Format("Jan 2, 2006 3:04 PM")
	}
	if order.PaymentMethod != nil {
		data.PaymentMethod = *order.PaymentMethod
	}

	for _, item := range order.Items {
		data.Lines = append(data.Lines, receiptLine{
			Name:         item.MenuItem.Name,
			Quantity:     item.Quantity,
			Instructions: item.Instructions,
			UnitPrice:    FormatMoney(item.UnitPrice),
			LineTotal:    FormatMoney(item.LineTotal()),
		})
	}

	return data
}

func (s *ReceiptService) render(tmpl *template.Template, data receiptData) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", data.Title, err)
	}
	return buf.Bytes(), nil
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}} — Order {{.Number}}</title>
<style>
  body { font-family: Georgia, serif; max-width: 380px; margin: 0 auto; padding: 16px; color: #222; }
  h1 { font-size: 20px; text-align: center; margin-bottom: 2px; }
  .meta { text-align: center; font-size: 12px; color: #555; margin-bottom: 14px; }
  table { width: 100%; border-collapse: collapse; font-size: 13px; }
  th { text-align: left; border-bottom: 1px solid #222; padding: 4px 0; }
  td { padding: 4px 0; vertical-align: top; }
  td.num, th.num { text-align: right; }
  .instructions { font-size: 11px; color: #666; font-style: italic; }
  .totals td { border-top: 1px solid #222; font-weight: bold; }
  .footer { text-align: center; font-size: 11px; color: #888; margin-top: 18px; }
</style>
</head>
<body>
<h1>Casa Luna</h1>
<div class="meta">
  Order {{.Number}}<br>
  {{.CustomerName}} · {{.OrderType}} · {{.PlacedAt}}
  {{if .PickupTime}}<br>Pickup: {{.PickupTime}}{{end}}
</div>
<table>
  <tr><th>Item</th><th class="num">Qty</th><th class="num">Price</th><th class="num">Total</th></tr>
  {{range .Lines}}
  <tr>
    <td>{{.Name}}{{if .Instructions}}<div class="instructions">{{.Instructions}}</div>{{end}}</td>
    <td class="num">{{.Quantity}}</td>
    <td class="num">{{.UnitPrice}}</td>
    <td class="num">{{.LineTotal}}</td>
  </tr>
  {{end}}
  <tr><td colspan="3">Subtotal</td><td class="num">{{.Subtotal}}</td></tr>
  {{if .HasDiscount}}<tr><td colspan="3">Discount</td><td class="num">-{{.Discount}}</td></tr>{{end}}
  <tr class="totals"><td colspan="3">Total</td><td class="num">{{.Total}}</td></tr>
</table>
{{if .PaymentMethod}}<p class="meta">Paid by {{.PaymentMethod}}</p>{{end}}
<div class="footer">Thank you for dining with us</div>
<script>window.onload = function () { window.print(); };</script>
</body>
</html>
`))

var kitchenTicketTemplate = template.Must(template.New("ticket").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}} — Order {{.Number}}</title>
<style>
  body { font-family: "Courier New", monospace; max-width: 380px; margin: 0 auto; padding: 16px; color: #000; }
  h1 { font-size: 18px; text-align: center; margin-bottom: 2px; }
  .meta { text-align: center; font-size: 12px; margin-bottom: 14px; }
  ul { list-style: none; padding: 0; font-size: 15px; }
  li { padding: 6px 0; border-bottom: 1px dashed #000; }
  .qty { font-weight: bold; }
  .instructions { font-size: 12px; margin-top: 2px; }
  .notes { font-size: 13px; margin-top: 14px; }
</style>
</head>
<body>
<h1>KITCHEN — {{.OrderType}}</h1>
<div class="meta">
  Order {{.Number}} · {{.PlacedAt}}
  {{if .PickupTime}}<br>Pickup: {{.PickupTime}}{{end}}
</div>
<ul>
  {{range .Lines}}
  <li><span class="qty">{{.Quantity}}×</span> {{.Name}}
    {{if .Instructions}}<div class="instructions">&gt;&gt; {{.Instructions}}</div>{{end}}
  </li>
  {{end}}
</ul>
{{if .Notes}}<div class="notes">Notes: {{.Notes}}</div>{{end}}
<script>window.onload = function () { window.print(); };</script>
</body>
</html>
`))
