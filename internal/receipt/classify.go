package receipt

import "github.com/zombor/receipt-processor/internal/scanning"

// SummaryKind is the recognized meaning of a summary field type label
type SummaryKind int

const (
	SummaryUnrecognized SummaryKind = iota
	SummaryTotal
	SummaryDate
	SummaryVendor
)

// ParseSummaryKind maps an analysis type label to a SummaryKind
func ParseSummaryKind(label string) SummaryKind {
	switch label {
	case "TOTAL":
		return SummaryTotal
	case "INVOICE_RECEIPT_DATE":
		return SummaryDate
	case "VENDOR_NAME":
		return SummaryVendor
	default:
		return SummaryUnrecognized
	}
}

// LineItemKind is the recognized meaning of a line item field type label
type LineItemKind int

const (
	LineItemUnrecognized LineItemKind = iota
	LineItemName
	LineItemPrice
	LineItemQuantity
)

// ParseLineItemKind maps an analysis type label to a LineItemKind
func ParseLineItemKind(label string) LineItemKind {
	switch label {
	case "ITEM":
		return LineItemName
	case "PRICE":
		return LineItemPrice
	case "QUANTITY":
		return LineItemQuantity
	default:
		return LineItemUnrecognized
	}
}

// ClassifySummary picks total, date and vendor out of the summary fields.
// When a kind repeats, the last field in emission order wins.
func ClassifySummary(fields []scanning.RawField) SummaryFields {
	var out SummaryFields
	for _, field := range fields {
		text := field.Text
		switch ParseSummaryKind(field.Type) {
		case SummaryTotal:
			out.Total = &text
		case SummaryDate:
			out.Date = &text
		case SummaryVendor:
			out.Vendor = &text
		case SummaryUnrecognized:
		}
	}
	return out
}

// AssembleLineItems turns each raw line item into an Item, in input order.
// Line items without a name field are dropped.
func AssembleLineItems(lines []scanning.LineItem) []Item {
	items := make([]Item, 0, len(lines))
	for _, line := range lines {
		var (
			name *string
			item Item
		)
		for _, field := range line.Fields {
			text := field.Text
			switch ParseLineItemKind(field.Type) {
			case LineItemName:
				name = &text
			case LineItemPrice:
				item.Price = &text
			case LineItemQuantity:
				item.Quantity = &text
			case LineItemUnrecognized:
			}
		}
		if name == nil {
			continue
		}
		item.Name = *name
		items = append(items, item)
	}
	return items
}
