package scanning

import (
	"context"
	"fmt"
)

// DocumentRef locates a receipt image held in object storage.
type DocumentRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Locator returns the s3:// URI of the document.
func (r DocumentRef) Locator() string {
	return fmt.Sprintf("s3://%s/%s", r.Bucket, r.Key)
}

func (r DocumentRef) String() string {
	return r.Bucket + "/" + r.Key
}

// RawField is one detected field from an expense analysis.
// Confidence is informational; nothing resolves duplicates by it.
type RawField struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Confidence float32 `json:"confidence,omitempty"`
}

// LineItem is the set of raw fields describing one purchased row.
type LineItem struct {
	Fields []RawField `json:"fields"`
}

// LineItemGroup is a table of line items as grouped by the analysis service.
type LineItemGroup struct {
	LineItems []LineItem `json:"line_items"`
}

// ExpenseDocument is a single analysed receipt or invoice.
type ExpenseDocument struct {
	SummaryFields  []RawField      `json:"summary_fields,omitempty"`
	LineItemGroups []LineItemGroup `json:"line_item_groups,omitempty"`
}

// LineItems flattens every group into one ordered sequence.
func (d *ExpenseDocument) LineItems() []LineItem {
	if d == nil {
		return nil
	}
	var items []LineItem
	for _, group := range d.LineItemGroups {
		items = append(items, group.LineItems...)
	}
	return items
}

// Summary returns the summary fields, tolerating a nil document.
func (d *ExpenseDocument) Summary() []RawField {
	if d == nil {
		return nil
	}
	return d.SummaryFields
}

// ExpenseAnalysis is the result of analysing one document.
type ExpenseAnalysis struct {
	ExpenseDocuments []ExpenseDocument `json:"expense_documents"`
}

// Primary returns the first expense document, or nil when nothing was detected.
func (a *ExpenseAnalysis) Primary() *ExpenseDocument {
	if a == nil || len(a.ExpenseDocuments) == 0 {
		return nil
	}
	return &a.ExpenseDocuments[0]
}

// Scanner defines the interface for expense analysis
type Scanner interface {
	// AnalyzeExpense analyses the referenced document and returns the raw detections
	AnalyzeExpense(ctx context.Context, ref DocumentRef) (*ExpenseAnalysis, error)
	// Close closes the scanner and releases resources
	Close() error
}

// DocumentSource fetches document bytes for scanners that cannot read
// object storage themselves.
type DocumentSource interface {
	Fetch(ctx context.Context, ref DocumentRef) ([]byte, string, error)
}
