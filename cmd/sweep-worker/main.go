package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/livesale/livesale-api/internal/config"
	"github.com/livesale/livesale-api/internal/domain/wallet"
	"github.com/livesale/livesale-api/internal/pkg/database"
	"github.com/livesale/livesale-api/internal/pkg/logger"
	"github.com/livesale/livesale-api/internal/pkg/storage"
)

// The sweep worker marks virtual credits as EXPIRED once they are past
// their expiry plus a grace window, resyncing each wallet's stored
// virtual balance under the row lock. Optionally it also uploads a
// daily CSV snapshot of the ledger to R2 for reconciliation.
func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Dur("interval", cfg.SweepInterval).
		Int("grace_hours", cfg.SweepGraceHours).
		Bool("snapshots", cfg.SnapshotEnabled).
		Msg("Starting sweep worker")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	var store storage.Storage
	if cfg.SnapshotEnabled {
		store, err = storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize R2 storage")
		}
	}

	repo := wallet.NewRepository(db)
	grace := time.Duration(cfg.SweepGraceHours) * time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	runSweep(ctx, repo, grace)
	if store != nil {
		snapshotPreviousDay(ctx, repo, store)
	}

	for {
		select {
		case <-ticker.C:
			runSweep(ctx, repo, grace)
			if store != nil {
				snapshotPreviousDay(ctx, repo, store)
			}
		case sig := <-quit:
			log.Info().Str("signal", sig.String()).Msg("Shutting down sweep worker")
			return
		}
	}
}

func runSweep(ctx context.Context, repo *wallet.Repository, grace time.Duration) {
	start := time.Now()
	swept, err := repo.SweepExpiredCredits(ctx, grace)
	if err != nil {
		log.Error().Err(err).Msg("Credit sweep failed")
		return
	}
	log.Info().
		Int("credits_expired", swept).
		Dur("took", time.Since(start)).
		Msg("Credit sweep complete")
}

// snapshotPreviousDay writes yesterday's ledger rows as a CSV object,
// keyed by date so re-runs are idempotent.
func snapshotPreviousDay(ctx context.Context, repo *wallet.Repository, store storage.Storage) {
	day := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	key := fmt.Sprintf("ledger/%s.csv", day.Format("2006-01-02"))

	exists, err := store.Exists(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Snapshot existence check failed")
		return
	}
	if exists {
		return
	}

	txns, err := repo.ListTransactionsBetween(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to load ledger for snapshot")
		return
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{
		"transaction_code", "phone", "type", "amount",
		"real_delta", "virtual_delta", "order_id", "source_type",
		"performed_by", "performed_role", "created_at",
	})
	for _, tx := range txns {
		_ = w.Write([]string{
			tx.TransactionCode,
			tx.Phone,
			string(tx.Type),
			strconv.FormatInt(tx.Amount, 10),
			strconv.FormatInt(tx.RealDelta, 10),
			strconv.FormatInt(tx.VirtualDelta, 10),
			tx.OrderID.String,
			tx.SourceType.String,
			tx.PerformedBy.String(),
			tx.PerformedRole,
			tx.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to encode snapshot CSV")
		return
	}

	if err := store.Put(ctx, key, &buf, "text/csv"); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to upload ledger snapshot")
		return
	}
	log.Info().Str("key", key).Int("rows", len(txns)).Msg("Ledger snapshot uploaded")
}
