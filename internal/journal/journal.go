// Package journal stores committed ledger transactions and replays them.
package journal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"mobility-finance/ledger-backend/internal/ledger"
)

// Source lists journaled records in sequence order
type Source interface {
	List(ctx context.Context, afterSeq uint64, limit int) ([]ledger.Record, error)
}

// Entry is the persisted form of a ledger.Record
type Entry struct {
	Seq       uint64         `json:"seq" gorm:"primaryKey;autoIncrement"`
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;uniqueIndex;not null"`
	Contract  string         `json:"contract" gorm:"not null;index"`
	Method    string         `json:"method" gorm:"not null"`
	Caller    string         `json:"caller" gorm:"not null"`
	Timestamp uint64         `json:"timestamp" gorm:"not null"`
	Args      datatypes.JSON `json:"args" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the default table name
func (Entry) TableName() string {
	return "ledger_journal"
}

func (e Entry) record() ledger.Record {
	return ledger.Record{
		ID:        e.ID.String(),
		Seq:       e.Seq,
		Contract:  e.Contract,
		Method:    e.Method,
		Caller:    ledger.Address(e.Caller),
		Timestamp: e.Timestamp,
		Args:      []byte(e.Args),
	}
}

// GormJournal keeps the journal in PostgreSQL
type GormJournal struct {
	db *gorm.DB
}

// NewGormJournal migrates the journal table and returns the journal
func NewGormJournal(db *gorm.DB) (*GormJournal, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return &GormJournal{db: db}, nil
}

// Append inserts rec and sets rec.Seq to the assigned sequence number
func (j *GormJournal) Append(ctx context.Context, rec *ledger.Record) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("invalid record id %q: %w", rec.ID, err)
	}

	entry := Entry{
		ID:        id,
		Contract:  rec.Contract,
		Method:    rec.Method,
		Caller:    rec.Caller.String(),
		Timestamp: rec.Timestamp,
		Args:      datatypes.JSON(rec.Args),
	}
	if err := j.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}

	rec.Seq = entry.Seq
	return nil
}

// Revoke deletes the entry written for rec
func (j *GormJournal) Revoke(ctx context.Context, rec *ledger.Record) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("invalid record id %q: %w", rec.ID, err)
	}
	res := j.db.WithContext(ctx).Where("id = ?", id).Delete(&Entry{})
	if res.Error != nil {
		return fmt.Errorf("failed to revoke journal entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("journal entry %s not found", rec.ID)
	}
	return nil
}

func (j *GormJournal) List(ctx context.Context, afterSeq uint64, limit int) ([]ledger.Record, error) {
	var entries []Entry
	err := j.db.WithContext(ctx).
		Where("seq > ?", afterSeq).
		Order("seq ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}

	out := make([]ledger.Record, len(entries))
	for i, e := range entries {
		out[i] = e.record()
	}
	return out, nil
}

// MemoryJournal is an in-process journal
type MemoryJournal struct {
	mu      sync.RWMutex
	records []ledger.Record
}

// NewMemoryJournal creates an empty journal
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Append(_ context.Context, rec *ledger.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	rec.Seq = uint64(len(j.records)) + 1
	cp := *rec
	cp.Args = append([]byte(nil), rec.Args...)
	j.records = append(j.records, cp)
	return nil
}

// Revoke drops rec, which must be the last appended record
func (j *MemoryJournal) Revoke(_ context.Context, rec *ledger.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := len(j.records)
	if n == 0 || j.records[n-1].ID != rec.ID {
		return fmt.Errorf("journal record %s is not the last appended", rec.ID)
	}
	j.records = j.records[:n-1]
	return nil
}

func (j *MemoryJournal) List(_ context.Context, afterSeq uint64, limit int) ([]ledger.Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if afterSeq >= uint64(len(j.records)) {
		return nil, nil
	}
	rest := j.records[afterSeq:]
	if limit > 0 && len(rest) > limit {
		rest = rest[:limit]
	}
	return append([]ledger.Record(nil), rest...), nil
}
