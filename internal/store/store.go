package store

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/talkincode/ocss/config"
	"github.com/talkincode/ocss/internal/domain"
	"go.uber.org/zap"
)

// RecordStore persists flat record collections keyed by entity name.
// Every record added through Add receives an auto-incremented "id".
type RecordStore interface {
	// Load returns every record of the entity, in stored order
	Load(ctx context.Context, entity string) ([]domain.Record, error)

	// Save replaces the whole collection
	Save(ctx context.Context, entity string, records []domain.Record) error

	// Add assigns a new id to rec, stores it and returns the stored copy
	Add(ctx context.Context, entity string, rec domain.Record) (domain.Record, error)

	// Update merges fields into the record with the given id.
	// It reports false when no such record exists.
	Update(ctx context.Context, entity string, id int64, fields domain.Record) (bool, error)

	// Find returns the record with the given id, or nil when absent
	Find(ctx context.Context, entity string, id int64) (domain.Record, error)

	// Delete removes the record with the given id
	Delete(ctx context.Context, entity string, id int64) (bool, error)

	Close() error
}

func checkEntity(entity string) error {
	if !domain.IsEntity(entity) {
		return errors.Wrapf(domain.ErrUnknownEntity, "%q", entity)
	}
	return nil
}

// nextID returns max(id)+1 over records
func nextID(records []domain.Record) int64 {
	var max int64
	for _, r := range records {
		if id := r.ID(); id > max {
			max = id
		}
	}
	return max + 1
}

// mergeInto applies fields onto the record with the given id
func mergeInto(records []domain.Record, id int64, fields domain.Record) bool {
	for _, r := range records {
		if r.ID() == id {
			for k, v := range fields {
				if k == "id" {
					continue
				}
				r[k] = v
			}
			return true
		}
	}
	return false
}

// Open creates the record store selected by the storage configuration
func Open(cfg config.StorageConfig, workdir string) (RecordStore, error) {
	switch cfg.Type {
	case "", config.StorageJSON:
		dir := cfg.Dir
		if dir == "" {
			dir = filepath.Join(workdir, "data")
		}
		s, err := NewJSONFileStore(dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageBolt:
		file := cfg.BoltFile
		if file == "" {
			file = filepath.Join(workdir, "data", "ocss.db")
		}
		s, err := NewBoltStore(file)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoragePostgres:
		db, err := OpenPostgres(cfg)
		if err != nil {
			return nil, err
		}
		s, err := NewGormStore(db, true)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		zap.L().Error("unsupported storage type", zap.String("type", cfg.Type))
		return nil, errors.Errorf("unsupported storage type %q", cfg.Type)
	}
}
