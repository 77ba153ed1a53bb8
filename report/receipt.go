package report

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ReceiptData carries everything printed on one fee receipt.
type ReceiptData struct {
	SchoolName      string
	ReceiptNumber   string
	AcademicYear    string
	StudentName     string
	AdmissionNo     string
	ClassName       string
	Amount          float64
	PaymentMode     string
	PaymentFor      string
	PaidMonths      []string
	TransactionDate time.Time
	Balance         float64
	Status          string
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Receipt {{.ReceiptNumber}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 40px; color: #222; }
h1 { font-size: 20px; margin-bottom: 0; }
.muted { color: #777; font-size: 12px; }
table { width: 100%; border-collapse: collapse; margin-top: 24px; }
td, th { padding: 8px 4px; border-bottom: 1px solid #ddd; text-align: left; font-size: 14px; }
.amount { font-size: 18px; font-weight: bold; }
.footer { margin-top: 40px; font-size: 11px; color: #777; }
</style>
</head>
<body>
<h1>{{.SchoolName}}</h1>
<p class="muted">Fee receipt {{.ReceiptNumber}} &middot; Academic year {{.AcademicYear}}</p>
<table>
<tr><th>Student</th><td>{{.StudentName}} ({{.AdmissionNo}})</td></tr>
<tr><th>Class</th><td>{{.ClassName}}</td></tr>
<tr><th>Date</th><td>{{.Date}}</td></tr>
<tr><th>Payment mode</th><td>{{.Mode}}</td></tr>
{{if .For}}<tr><th>Payment for</th><td>{{.For}}</td></tr>{{end}}
{{if .Months}}<tr><th>Months covered</th><td>{{.Months}}</td></tr>{{end}}
<tr><th>Amount received</th><td class="amount">{{.AmountFmt}}</td></tr>
<tr><th>Balance after payment</th><td>{{.BalanceFmt}} ({{.Status}})</td></tr>
</table>
<p class="footer">This is a computer generated receipt and does not require a signature.</p>
</body>
</html>`))

type receiptView struct {
	ReceiptData
	Date       string
	Mode       string
	For        string
	Months     string
	AmountFmt  string
	BalanceFmt string
}

var moneyPrinter = message.NewPrinter(language.English)

func formatMoney(v float64) string {
	return moneyPrinter.Sprintf("%.2f", v)
}

// RenderReceiptHTML renders the receipt document for PDF conversion or
// email delivery.
func RenderReceiptHTML(data ReceiptData) (string, error) {
	view := receiptView{
		ReceiptData: data,
		Date:        data.TransactionDate.Format("2 Jan 2006"),
		Mode:        strings.ReplaceAll(data.PaymentMode, "_", " "),
		For:         data.PaymentFor,
		Months:      strings.Join(data.PaidMonths, ", "),
		AmountFmt:   formatMoney(data.Amount),
		BalanceFmt:  formatMoney(data.Balance),
	}
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}
