package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"wallet/internal/amqp"
	"wallet/internal/cache"
	"wallet/internal/log"
	"wallet/internal/sheets"
)

const (
	defaultSeenSize = 10_000
	defaultSeenTTL  = 24 * time.Hour
)

// ErrInvalidEvent marks events that can never be exported. The consumer drops
// them instead of requeueing.
var ErrInvalidEvent = errors.New("invalid ledger event")

// SyncWorker exports ledger events as spreadsheet rows.
type SyncWorker struct {
	rows    sheets.RowWriter
	limiter *rate.Limiter
	seen    *cache.LRUCache[string]
	logger  *log.Logger
}

// Options tunes the worker. Zero values select the defaults.
type Options struct {
	// RatePerSecond bounds calls to the row writer. Zero or less disables the limit.
	RatePerSecond float64
	SeenSize      int
	SeenTTL       time.Duration
}

func NewSyncWorker(rows sheets.RowWriter, opts Options, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.SeenSize <= 0 {
		opts.SeenSize = defaultSeenSize
	}
	if opts.SeenTTL <= 0 {
		opts.SeenTTL = defaultSeenTTL
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	return &SyncWorker{
		rows:    rows,
		limiter: limiter,
		seen:    cache.NewLRUCache[string](opts.SeenSize, opts.SeenTTL),
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// Seen exposes the dedupe cache so its expired entries can be swept.
func (w *SyncWorker) Seen() cache.Cleaner {
	return w.seen
}

// HandleLedgerEvent appends one row per transaction. A transaction already
// exported by this worker is acknowledged without writing it again.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", ErrInvalidEvent)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	logger := w.logger.With(
		log.FieldMessageID, msg.EventID,
		log.FieldUser, msg.Username,
		log.FieldTransaction, msg.TransactionID,
	)

	if !w.seen.Add(msg.TransactionID, msg.EventID) {
		logger.DebugContext(ctx, "Duplicate ledger event skipped")
		return nil
	}

	if err := w.limiter.Wait(ctx); err != nil {
		w.seen.Delete(msg.TransactionID)
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	start := time.Now()
	ref, err := w.rows.AppendRow(ctx, rowFromEvent(msg))
	if err != nil {
		w.seen.Delete(msg.TransactionID)
		logger.ErrorContext(ctx, "Failed to export ledger event", log.FieldError, err)
		return fmt.Errorf("append row: %w", err)
	}

	logger.InfoContext(ctx, "Ledger event exported",
		log.FieldSheetsRef, ref,
		log.FieldKind, string(msg.Kind),
		log.FieldAmount, msg.Amount,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func rowFromEvent(msg *amqp.LedgerEventMessage) sheets.LedgerRow {
	occurred := msg.OccurredAt
	if occurred.IsZero() {
		occurred = msg.Timestamp
	}
	return sheets.LedgerRow{
		Timestamp:     occurred,
		Username:      msg.Username,
		Kind:          msg.Kind,
		Category:      msg.Category,
		Amount:        msg.Amount,
		Balance:       msg.Balance,
		TransactionID: msg.TransactionID,
	}
}
