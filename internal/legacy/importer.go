package legacy

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sandeepkv93/secure-credential-service/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultImportConcurrency = 4
	maxExportLineBytes       = 64 * 1024
)

// ExportRecord is one JSON line of a legacy credential export.
type ExportRecord struct {
	UserID       uint   `json:"user_id"`
	PasswordHash string `json:"password_hash"`
}

type sourcedRecord struct {
	ExportRecord
	key string
}

type ImportReport struct {
	Objects  int `json:"objects"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Invalid  int `json:"invalid"`
}

type ImporterOption func(*Importer)

func WithConcurrency(n int) ImporterOption {
	return func(i *Importer) {
		if n > 0 {
			i.concurrency = n
		}
	}
}

func WithProgress(fn func(key string, done, total int)) ImporterOption {
	return func(i *Importer) { i.progress = fn }
}

// Importer loads legacy exports into the legacy_credentials table. Rows that
// were already migrated are never overwritten.
type Importer struct {
	db          *gorm.DB
	source      ObjectSource
	logger      *slog.Logger
	concurrency int
	progress    func(key string, done, total int)
	now         func() time.Time
}

func NewImporter(db *gorm.DB, source ObjectSource, logger *slog.Logger, opts ...ImporterOption) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	imp := &Importer{db: db, source: source, logger: logger, concurrency: defaultImportConcurrency, now: time.Now}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

func (i *Importer) Import(ctx context.Context, prefix string) (*ImportReport, error) {
	keys, err := i.source.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	var (
		mu      sync.Mutex
		records = map[uint]sourcedRecord{}
		invalid int
		done    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for _, key := range keys {
		g.Go(func() error {
			recs, bad, err := i.readObject(gctx, key)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, r := range recs {
				// Objects are applied in key order; the last one wins.
				if prev, ok := records[r.UserID]; !ok || key >= prev.key {
					records[r.UserID] = sourcedRecord{ExportRecord: r, key: key}
				}
			}
			invalid += bad
			done++
			if i.progress != nil {
				i.progress(key, done, len(keys))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &ImportReport{Objects: len(keys), Invalid: invalid}
	err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]uint, 0, len(records))
		for id := range records {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		for _, id := range ids {
			imported, err := i.upsert(tx, records[id].ExportRecord)
			if err != nil {
				return err
			}
			if imported {
				report.Imported++
			} else {
				report.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	i.logger.InfoContext(ctx, "legacy credentials imported",
		"objects", report.Objects,
		"imported", report.Imported,
		"skipped", report.Skipped,
		"invalid", report.Invalid,
	)
	return report, nil
}

func (i *Importer) upsert(tx *gorm.DB, rec ExportRecord) (bool, error) {
	var existing domain.LegacyCredential
	err := tx.Where("user_id = ?", rec.UserID).Take(&existing).Error
	switch {
	case err == nil:
		if existing.MigratedAt != nil || existing.PasswordHash == rec.PasswordHash {
			return false, nil
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}
	row := domain.LegacyCredential{UserID: rec.UserID, PasswordHash: rec.PasswordHash, ImportedAt: i.now().UTC()}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash", "imported_at"}),
	}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return true, nil
}

// readObject parses one export object. Malformed lines are counted and
// skipped; read failures abort the import.
func (i *Importer) readObject(ctx context.Context, key string) ([]ExportRecord, int, error) {
	rc, err := i.source.Open(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()

	var (
		out []ExportRecord
		bad int
	)
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 4096), maxExportLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec ExportRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			bad++
			i.logger.WarnContext(ctx, "legacy export line is not json", "object", key, "line", line)
			continue
		}
		if err := validateExportRecord(rec); err != nil {
			bad++
			i.logger.WarnContext(ctx, "legacy export line rejected", "object", key, "line", line, "error", err)
			continue
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read object %q: %w", key, err)
	}
	return out, bad, nil
}

func validateExportRecord(rec ExportRecord) error {
	if rec.UserID == 0 {
		return errors.New("user_id is required")
	}
	if _, err := bcrypt.Cost([]byte(rec.PasswordHash)); err != nil {
		return fmt.Errorf("password_hash: %w", err)
	}
	return nil
}
