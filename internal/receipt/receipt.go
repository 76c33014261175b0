package receipt

import (
	"errors"
	"time"
)

// ErrNotFound is returned by every DB when a receipt id is unknown
var ErrNotFound = errors.New("receipt not found")

// Receipt is the canonical record produced for one processed document.
// It is built once by Builder and never modified afterwards.
type Receipt struct {
	ID            string    `json:"id"`
	Date          string    `json:"date"`
	Vendor        string    `json:"vendor"`
	Total         string    `json:"total"`
	Items         []Item    `json:"items"`
	SourceLocator string    `json:"source_locator"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// Item is one purchased line. Price and Quantity are nil when the analysis
// did not detect them.
type Item struct {
	Name     string  `json:"name"`
	Price    *string `json:"price,omitempty"`
	Quantity *string `json:"quantity,omitempty"`
}

// SummaryFields holds the classified document-level values; nil means undetected
type SummaryFields struct {
	Total  *string
	Date   *string
	Vendor *string
}
