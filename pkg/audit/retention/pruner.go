package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cpathways/cprules/pkg/audit"
	"cpathways/cprules/pkg/audit/export"
)

// deleteBatch bounds the IDs sent in one storage delete.
const deleteBatch = 500

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to keep records.
	// 0 keeps records forever.
	RetentionDays int

	// PruneSchedule is a cron expression, e.g. "0 3 * * *".
	// Empty disables scheduled pruning.
	PruneSchedule string

	// ArchiveBeforeDelete writes records to ArchivePath before deleting them.
	ArchiveBeforeDelete bool

	// ArchivePath is the directory for archive files.
	ArchivePath string

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays:       90,
		PruneSchedule:       "0 3 * * *",
		ArchiveBeforeDelete: false,
		ArchivePath:         "data/archives/",
		MaxRecords:          0,
	}
}

// PruneCounter counts deleted records by reason ("age" or "count").
type PruneCounter interface {
	RecordAuditPruned(reason string, count int64)
}

// Pruner enforces retention on audit records.
type Pruner struct {
	storage   audit.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
	counter   PruneCounter
	now       func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(storage audit.Storage, config *Config, logger *slog.Logger) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		logger:  logger.With("component", "audit.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)

	return p
}

// SetPruneCounter attaches a counter for deleted records.
func (p *Pruner) SetPruneCounter(c PruneCounter) {
	p.counter = c
}

func (p *Pruner) count(reason string, deleted int64) {
	if p.counter != nil && deleted > 0 {
		p.counter.RecordAuditPruned(reason, deleted)
	}
}

// Prune deletes records older than the retention period, then the oldest
// records above MaxRecords. It returns the total number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
		p.count("age", deleted)
		p.logger.Info("pruned records by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
		p.count("count", deleted)
		p.logger.Info("pruned records by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	if totalDeleted == 0 {
		p.logger.Debug("no records pruned",
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
	query := &audit.Query{EndTime: &cutoff}

	p.logger.Debug("pruning by age", "cutoff_time", cutoff)

	if p.config.ArchiveBeforeDelete {
		records, err := p.storage.Query(ctx, &audit.Query{EndTime: &cutoff, SortOrder: "asc"})
		if err != nil {
			return 0, audit.NewRetentionError(p.config.RetentionDays, err)
		}
		if err := p.archive(ctx, records, "age"); err != nil {
			return 0, audit.NewRetentionError(p.config.RetentionDays, err)
		}
		// Only what reached the archive may go.
		deleted, err := p.deleteRecords(ctx, records)
		if err != nil {
			return deleted, audit.NewRetentionError(p.config.RetentionDays, err)
		}
		return deleted, nil
	}

	deleted, err := p.storage.Delete(ctx, query)
	if err != nil {
		return 0, audit.NewRetentionError(p.config.RetentionDays, err)
	}
	return deleted, nil
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &audit.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	toDelete := count - p.config.MaxRecords
	p.logger.Info("record count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", toDelete,
	)

	oldest, err := p.storage.Query(ctx, &audit.Query{SortOrder: "asc", Limit: int(toDelete)})
	if err != nil {
		return 0, fmt.Errorf("failed to query records: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	if p.config.ArchiveBeforeDelete {
		if err := p.archive(ctx, oldest, "count"); err != nil {
			return 0, fmt.Errorf("archive failed: %w", err)
		}
	}

	deleted, err := p.deleteRecords(ctx, oldest)
	if err != nil {
		return deleted, fmt.Errorf("delete failed: %w", err)
	}
	return deleted, nil
}

// deleteRecords deletes exactly the given records, by ID, in batches.
func (p *Pruner) deleteRecords(ctx context.Context, records []*audit.Record) (int64, error) {
	var deleted int64
	for start := 0; start < len(records); start += deleteBatch {
		end := min(start+deleteBatch, len(records))

		ids := make([]string, 0, end-start)
		for _, r := range records[start:end] {
			ids = append(ids, r.ID)
		}

		n, err := p.storage.Delete(ctx, &audit.Query{IDs: ids})
		deleted += n
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// archive writes records to a timestamped JSON file under ArchivePath.
// The file is synced and closed before it returns nil.
func (p *Pruner) archive(ctx context.Context, records []*audit.Record, reason string) (err error) {
	if len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("audit-%s-%s.json", reason, p.now().Format("2006-01-02-150405"))
	archiveFile := filepath.Join(p.config.ArchivePath, name)
	f, err := os.Create(archiveFile)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close archive file: %w", cerr)
		}
	}()

	if err := export.NewJSONExporter(true).Export(ctx, records, f); err != nil {
		return fmt.Errorf("failed to export records to archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync archive file: %w", err)
	}

	p.logger.Info("audit records archived",
		"archive_file", archiveFile,
		"record_count", len(records),
	)
	return nil
}

// Start starts scheduled pruning.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops scheduled pruning.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled run, or nil.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
