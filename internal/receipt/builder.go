package receipt

import (
	"time"

	"github.com/google/uuid"
)

// Values substituted when the analysis did not detect a summary field
const (
	DefaultVendor = "Unknown"
	DefaultTotal  = "0.00"
	dateLayout    = "2006-01-02"
)

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random (version 4) UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Builder composes classified fields and items into a canonical Receipt
type Builder struct {
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewBuilder creates a Builder with UUID ids and the wall clock
func NewBuilder() *Builder {
	return NewBuilderWithDeps(&uuidGenerator{}, &defaultTimeSource{})
}

// NewBuilderWithDeps creates a Builder with custom dependencies for testing
func NewBuilderWithDeps(idGen IDGenerator, timeSrc TimeSource) *Builder {
	return &Builder{
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Build stamps a fresh id and processing time and fills every undetected
// summary field with its default. Each call yields a new id, so building from
// the same input twice produces two distinct receipts.
func (b *Builder) Build(fields SummaryFields, items []Item, sourceLocator string) *Receipt {
	now := b.timeSource.Now()
	if items == nil {
		items = []Item{}
	}

	return &Receipt{
		ID:            b.idGenerator.Generate(),
		Date:          valueOr(fields.Date, now.Format(dateLayout)),
		Vendor:        valueOr(fields.Vendor, DefaultVendor),
		Total:         valueOr(fields.Total, DefaultTotal),
		Items:         items,
		SourceLocator: sourceLocator,
		ProcessedAt:   now,
	}
}

// valueOr treats a detected but empty value as undetected
func valueOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
