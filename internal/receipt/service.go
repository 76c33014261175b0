package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/zombor/receipt-processor/internal/notify"
	"github.com/zombor/receipt-processor/internal/scanning"
)

// Outcome classifies how a processing run ended
type Outcome int

const (
	// OutcomeCompleted means the receipt was stored and the notification sent
	OutcomeCompleted Outcome = iota
	// OutcomeCompletedWithNotificationFailure means the receipt was stored but
	// the notification could not be rendered or sent
	OutcomeCompletedWithNotificationFailure
	// OutcomeAborted means nothing was stored or sent
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCompletedWithNotificationFailure:
		return "completed_with_notification_failure"
	case OutcomeAborted:
		return "aborted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is returned by every processing run. Receipt is nil when the run
// was aborted; Err holds the abort reason or the notification failure.
type Result struct {
	Outcome Outcome
	Receipt *Receipt
	Err     error
}

// Succeeded reports whether the receipt was persisted
func (r Result) Succeeded() bool {
	return r.Outcome != OutcomeAborted
}

func aborted(err error) Result {
	return Result{Outcome: OutcomeAborted, Err: err}
}

// Addressing holds the notification envelope
type Addressing struct {
	From string
	To   []string
}

// Service runs the receipt pipeline and serves stored receipts
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	notifier    notify.Notifier
	addressing  Addressing
	builder     *Builder
	formatter   *Formatter
	metrics     *Metrics
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID ids and the wall clock.
// storage and notifier may be nil: object verification and notification are
// then skipped.
func NewService(db DB, scanner scanning.Scanner, storage Storage, notifier notify.Notifier, addressing Addressing) *Service {
	return NewServiceWithDeps(db, scanner, storage, notifier, addressing, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, notifier notify.Notifier, addressing Addressing, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		notifier:    notifier,
		addressing:  addressing,
		builder:     NewBuilderWithDeps(idGen, timeSrc),
		formatter:   NewFormatter(),
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// WithMetrics records run outcomes in m
func (s *Service) WithMetrics(m *Metrics) *Service {
	s.metrics = m
	return s
}

// ProcessDocument analyses the referenced document, stores the canonical
// receipt and sends the notification. Every call produces a new receipt,
// even for a document that was processed before.
func (s *Service) ProcessDocument(ctx context.Context, ref scanning.DocumentRef) Result {
	start := time.Now()
	result := s.process(ctx, ref)
	s.metrics.ObserveRun(result, start)

	switch result.Outcome {
	case OutcomeAborted:
		slog.Error("Error processing receipt", "bucket", ref.Bucket, "key", ref.Key, "error", result.Err)
	default:
		slog.Info("Receipt processed",
			"receipt_id", result.Receipt.ID,
			"outcome", result.Outcome.String(),
			"items", len(result.Receipt.Items),
		)
	}
	return result
}

func (s *Service) process(ctx context.Context, ref scanning.DocumentRef) Result {
	slog.Info("Processing receipt", "bucket", ref.Bucket, "key", ref.Key)

	if s.storage != nil {
		if err := s.storage.Head(ctx, ref); err != nil {
			return aborted(fmt.Errorf("unable to access object %s in bucket %s: %w", ref.Key, ref.Bucket, err))
		}
	}

	analysis, err := s.scanner.AnalyzeExpense(ctx, ref)
	if err != nil {
		return aborted(fmt.Errorf("analyzing expense: %w", err))
	}

	doc := analysis.Primary()
	receipt := s.builder.Build(
		ClassifySummary(doc.Summary()),
		AssembleLineItems(doc.LineItems()),
		ref.Locator(),
	)

	if err := s.db.SaveReceipt(ctx, receipt); err != nil {
		return aborted(fmt.Errorf("saving receipt: %w", err))
	}

	if err := s.notify(ctx, receipt); err != nil {
		slog.Warn("Error sending email notification, continuing", "receipt_id", receipt.ID, "error", err)
		return Result{Outcome: OutcomeCompletedWithNotificationFailure, Receipt: receipt, Err: err}
	}

	return Result{Outcome: OutcomeCompleted, Receipt: receipt}
}

func (s *Service) notify(ctx context.Context, receipt *Receipt) error {
	if s.notifier == nil {
		return nil
	}
	msg, err := s.formatter.Message(receipt, s.addressing.From, s.addressing.To)
	if err != nil {
		return err
	}
	return s.notifier.Send(ctx, msg)
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`).ReplaceAllString(base, "")
	base = regexp.MustCompile(`\s+`).ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// ProcessUpload stores an uploaded document under bucket and processes it.
// The upload is removed again if the run aborts.
func (s *Service) ProcessUpload(ctx context.Context, bucket, filename string, data []byte, contentType string) Result {
	if s.storage == nil {
		return aborted(fmt.Errorf("uploads require document storage"))
	}

	ref := scanning.DocumentRef{
		Bucket: bucket,
		Key: fmt.Sprintf("uploads/%s/%s_%s",
			s.timeSource.Now().Format(dateLayout),
			s.idGenerator.Generate(),
			sanitizeFilename(filename),
		),
	}
	if err := s.storage.Save(ctx, ref, data, contentType); err != nil {
		return aborted(fmt.Errorf("saving upload: %w", err))
	}

	result := s.ProcessDocument(ctx, ref)
	if !result.Succeeded() {
		if err := s.storage.Delete(ctx, ref); err != nil {
			slog.Warn("Failed to delete upload", "key", ref.Key, "error", err)
		}
	}
	return result
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(ctx context.Context, id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts, most recently processed first
func (s *Service) ListReceipts(ctx context.Context) ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	sort.SliceStable(receipts, func(i, j int) bool {
		return receipts[i].ProcessedAt.After(receipts[j].ProcessedAt)
	})
	return receipts, nil
}

// DeleteReceipt removes a stored receipt. The source document is left in place.
func (s *Service) DeleteReceipt(ctx context.Context, id string) error {
	if err := s.db.DeleteReceipt(ctx, id); err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}
	return nil
}

// RenderNotification returns the notification body for a stored receipt
func (s *Service) RenderNotification(ctx context.Context, id string) (string, error) {
	receipt, err := s.GetReceipt(ctx, id)
	if err != nil {
		return "", err
	}
	return s.formatter.Body(receipt)
}
