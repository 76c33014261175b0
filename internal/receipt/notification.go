package receipt

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/zombor/receipt-processor/internal/notify"
)

// Display-only substitutions; stored items keep nil price and quantity
const (
	displayUnknownItem = "Unknown Item"
	displayNoPrice     = "N/A"
	displayQuantity    = "1"
	noItemsPlaceholder = "No items detected"
)

var notificationTemplate = template.Must(template.New("notification").Parse(`<html>
<body>
	<h2>Receipt Processing Notification</h2>
	<p><strong>Receipt ID:</strong> {{.ID}}</p>
	<p><strong>Vendor:</strong> {{.Vendor}}</p>
	<p><strong>Date:</strong> {{.Date}}</p>
	<p><strong>Total Amount:</strong> ${{.Total}}</p>
	<p><strong>S3 Location:</strong> {{.SourceLocator}}</p>

	<h3>Items:</h3>
{{- if .Items}}
	<ul>
{{- range .Items}}
		<li>{{.Name}} - ${{.Price}} x {{.Quantity}}</li>
{{- end}}
	</ul>
{{- else}}
	<p>{{.Placeholder}}</p>
{{- end}}

	<p>The receipt has been processed and stored.</p>
</body>
</html>
`))

type notificationView struct {
	ID            string
	Vendor        string
	Date          string
	Total         string
	SourceLocator string
	Items         []itemView
	Placeholder   string
}

type itemView struct {
	Name     string
	Price    string
	Quantity string
}

// Formatter renders receipts into notification emails
type Formatter struct {
	tmpl *template.Template
}

// NewFormatter creates a Formatter using the built-in HTML template
func NewFormatter() *Formatter {
	return &Formatter{tmpl: notificationTemplate}
}

// Subject returns the notification subject line
func (f *Formatter) Subject(r *Receipt) string {
	return fmt.Sprintf("Receipt Processed: %s - $%s", r.Vendor, r.Total)
}

// Body renders the HTML notification body. Header fields are printed as
// stored; items get display defaults for anything undetected.
func (f *Formatter) Body(r *Receipt) (string, error) {
	view := notificationView{
		ID:            r.ID,
		Vendor:        r.Vendor,
		Date:          r.Date,
		Total:         r.Total,
		SourceLocator: r.SourceLocator,
		Items:         make([]itemView, 0, len(r.Items)),
		Placeholder:   noItemsPlaceholder,
	}
	for _, item := range r.Items {
		view.Items = append(view.Items, itemView{
			Name:     displayOr(&item.Name, displayUnknownItem),
			Price:    displayOr(item.Price, displayNoPrice),
			Quantity: displayOr(item.Quantity, displayQuantity),
		})
	}

	var buf strings.Builder
	if err := f.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("rendering notification: %w", err)
	}
	return buf.String(), nil
}

// Message builds the complete notification for a receipt
func (f *Formatter) Message(r *Receipt, from string, to []string) (notify.Message, error) {
	body, err := f.Body(r)
	if err != nil {
		return notify.Message{}, err
	}
	return notify.Message{
		From:    from,
		To:      to,
		Subject: f.Subject(r),
		HTML:    body,
	}, nil
}

func displayOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
