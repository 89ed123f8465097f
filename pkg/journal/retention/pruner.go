package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/aegis/pkg/journal"
	"mercator-hq/aegis/pkg/journal/export"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to keep entries. 0 disables
	// pruning.
	RetentionDays int

	// PruneSchedule is a cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// ArchivePath, when set, is a directory that receives a JSON copy of
	// every batch of entries before they are deleted.
	ArchivePath string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 30,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner deletes journal entries older than the retention period.
type Pruner struct {
	storage journal.Storage
	config  *Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(storage journal.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	return &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "journal.retention"),
		now:     time.Now,
	}
}

// Config returns the pruner configuration.
func (p *Pruner) Config() *Config {
	return p.config
}

// Cutoff returns the instant before which entries are pruned.
func (p *Pruner) Cutoff() time.Time {
	return p.now().AddDate(0, 0, -p.config.RetentionDays)
}

// Prune deletes entries older than RetentionDays and returns how many were
// removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.config.RetentionDays <= 0 {
		p.logger.Debug("retention disabled, nothing pruned")
		return 0, nil
	}

	// Calculate cutoff time
	cutoff := p.Cutoff()

	// Archive before deleting so nothing is lost on a failed write
	if p.config.ArchivePath != "" {
		if err := p.archive(ctx, cutoff); err != nil {
			return 0, journal.NewRetentionError(p.config.RetentionDays, err)
		}
	}

	// Delete old entries
	deleted, err := p.storage.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, journal.NewRetentionError(p.config.RetentionDays, err)
	}

	if deleted > 0 {
		p.logger.Info("journal pruned",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
			"cutoff", cutoff.UTC().Format(time.RFC3339),
		)
	} else {
		p.logger.Debug("no journal entries pruned", "retention_days", p.config.RetentionDays)
	}

	return deleted, nil
}

// archive writes every entry older than cutoff to a timestamped JSON file.
func (p *Pruner) archive(ctx context.Context, cutoff time.Time) error {
	// Query is inclusive of Until while DeleteBefore is exclusive
	until := cutoff.Add(-time.Nanosecond)

	// Page through everything older than cutoff
	var entries []*journal.Entry
	for offset := 0; ; offset += journal.MaxQueryLimit {
		batch, err := p.storage.Query(ctx, &journal.Query{
			Until:  &until,
			Limit:  journal.MaxQueryLimit,
			Offset: offset,
		})
		if err != nil {
			return fmt.Errorf("query entries to archive: %w", err)
		}
		entries = append(entries, batch...)
		if len(batch) < journal.MaxQueryLimit {
			break
		}
	}

	if len(entries) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	// One file per prune run
	name := filepath.Join(p.config.ArchivePath,
		fmt.Sprintf("journal-%s.json", p.now().UTC().Format("20060102T150405Z")))
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()

	if err := export.NewJSONExporter(false).Export(ctx, entries, f); err != nil {
		return err
	}

	p.logger.Info("journal entries archived", "file", name, "count", len(entries))
	return f.Sync()
}
