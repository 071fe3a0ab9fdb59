// Package ingest converts inbound payment notifications into idempotent
// ledger writes.
package ingest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/vanityforge/vanity-gateway/internal/domain"
	"github.com/vanityforge/vanity-gateway/internal/logger"
	"github.com/vanityforge/vanity-gateway/internal/store"
)

// Entry is one payment notification: a native transfer observed by the
// upstream notifier. Entries arrive unordered and possibly duplicated.
type Entry struct {
	// Signature is the transaction signature
	Signature string
	// Sender is the paying account address
	Sender string
	// Receiver is the receiving account address
	Receiver string
	// AmountLamports is the transferred amount in minor units
	AmountLamports uint64
	// Slot is the slot the transfer was observed in, if known
	Slot uint64
	// Timestamp is the notifier's timestamp; nil means unknown
	Timestamp *time.Time
	// Raw is the entry as received, stored for audit
	Raw datatypes.JSON
}

// BatchResult summarizes one batch of notifications. Failed entries never
// abort the batch; the notifier fires and forgets, so partial progress is the
// best available outcome.
type BatchResult struct {
	Stored     int `json:"stored"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Config holds ingestion pool configuration
type Config struct {
	MinLamports uint64
	PoolSize    int
	QueueSize   int
}

// Ingestor writes payment notifications to the ledger
type Ingestor struct {
	store  store.Store
	config Config
}

// New creates a payment ingestor
func New(s store.Store, cfg Config) *Ingestor {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 8
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	return &Ingestor{store: s, config: cfg}
}

// ProcessBatch ingests a batch of notification entries concurrently and
// returns once every entry has been handled. Redelivered signatures count as
// duplicates, entries without a signature or amount are skipped, and
// persistence failures are logged per entry and counted as failed.
func (i *Ingestor) ProcessBatch(ctx context.Context, entries []Entry) BatchResult {
	var stored, duplicates, skipped, failed atomic.Int64

	pool := pond.NewPool(
		i.config.PoolSize,
		pond.WithQueueSize(i.config.QueueSize),
		pond.WithContext(ctx),
	)

	for _, entry := range entries {
		pool.Submit(func() {
			if entry.Signature == "" || entry.AmountLamports == 0 {
				skipped.Add(1)
				logger.WarnCtx(ctx, "Skipping malformed notification entry",
					zap.String("signature", entry.Signature),
					zap.Uint64("amount_lamports", entry.AmountLamports),
				)
				return
			}

			observedAt := time.Now()
			if entry.Timestamp != nil {
				observedAt = *entry.Timestamp
			}

			created, err := i.store.InsertPaymentIfAbsent(ctx, store.CreatePaymentInput{
				Signature:      entry.Signature,
				Sender:         entry.Sender,
				Receiver:       entry.Receiver,
				AmountLamports: entry.AmountLamports,
				AmountSOL:      domain.LamportsToSOL(entry.AmountLamports),
				Slot:           entry.Slot,
				Raw:            entry.Raw,
				ObservedAt:     observedAt,
				IsPaid:         entry.AmountLamports >= i.config.MinLamports,
			})
			if err != nil {
				failed.Add(1)
				logger.ErrorCtx(ctx, err,
					zap.String("signature", entry.Signature),
					zap.String("sender", entry.Sender),
				)
				return
			}

			if !created {
				duplicates.Add(1)
				return
			}

			stored.Add(1)
			logger.InfoCtx(ctx, "Recorded payment",
				zap.String("signature", entry.Signature),
				zap.String("sender", entry.Sender),
				zap.Uint64("amount_lamports", entry.AmountLamports),
				zap.Bool("is_paid", entry.AmountLamports >= i.config.MinLamports),
			)
		})
	}

	pool.StopAndWait()

	return BatchResult{
		Stored:     int(stored.Load()),
		Duplicates: int(duplicates.Load()),
		Skipped:    int(skipped.Load()),
		Failed:     int(failed.Load()),
	}
}
