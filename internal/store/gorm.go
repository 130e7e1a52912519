package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/ocss/config"
	"github.com/talkincode/ocss/internal/domain"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// RecordRow is one persisted record in the relational backend
type RecordRow struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	Entity   string `gorm:"size:32;index:idx_entity_record"`
	RecordID int64  `gorm:"index:idx_entity_record"`
	Data     string `gorm:"type:text"`
}

func (RecordRow) TableName() string {
	return "ocss_record"
}

// SequenceRow holds the last id handed out per entity
type SequenceRow struct {
	Entity string `gorm:"primaryKey;size:32"`
	LastID int64
}

func (SequenceRow) TableName() string {
	return "ocss_sequence"
}

// GormStore stores records as JSON documents in a SQL table.
type GormStore struct {
	db *gorm.DB
	mu sync.Mutex
}

var _ RecordStore = (*GormStore)(nil)

// OpenPostgres connects to the configured PostgreSQL database
func OpenPostgres(cfg config.StorageConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "postgres pool")
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConn)
	sqlDB.SetMaxIdleConns(cfg.IdleConn)
	sqlDB.SetConnMaxLifetime(time.Hour)
	zap.S().Infof("postgres connected %s:%d/%s", cfg.Host, cfg.Port, cfg.Name)
	return db, nil
}

// NewGormStore wraps db; migrate creates the tables when needed
func NewGormStore(db *gorm.DB, migrate bool) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("nil gorm db")
	}
	if migrate {
		if err := db.AutoMigrate(&RecordRow{}, &SequenceRow{}); err != nil {
			return nil, errors.Wrap(err, "migrate record tables")
		}
	}
	return &GormStore{db: db}, nil
}

func rowsToRecords(rows []RecordRow) ([]domain.Record, error) {
	records := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		var rec domain.Record
		if err := domain.RecordCodec.UnmarshalFromString(row.Data, &rec); err != nil {
			return nil, errors.Wrapf(err, "decode %s row %d", row.Entity, row.ID)
		}
		records = append(records, rec)
	}
	return records, nil
}

func newRow(entity string, rec domain.Record) (RecordRow, error) {
	data, err := domain.RecordCodec.MarshalToString(rec)
	if err != nil {
		return RecordRow{}, errors.Wrapf(err, "encode %s", entity)
	}
	return RecordRow{Entity: entity, RecordID: rec.ID(), Data: data}, nil
}

func (s *GormStore) Load(ctx context.Context, entity string) ([]domain.Record, error) {
	if err := checkEntity(entity); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []RecordRow
	if err := s.db.WithContext(ctx).Where("entity = ?", entity).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "load %s", entity)
	}
	return rowsToRecords(rows)
}

func (s *GormStore) Save(ctx context.Context, entity string, records []domain.Record) error {
	if err := checkEntity(entity); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entity = ?", entity).Delete(&RecordRow{}).Error; err != nil {
			return errors.Wrapf(err, "clear %s", entity)
		}
		var max int64
		for _, rec := range records {
			row, err := newRow(entity, rec)
			if err != nil {
				return err
			}
			if row.RecordID > max {
				max = row.RecordID
			}
			if err := tx.Create(&row).Error; err != nil {
				return errors.Wrapf(err, "insert %s", entity)
			}
		}
		return bumpSequence(tx, entity, max)
	})
}

// bumpSequence raises the entity sequence to at least min
func bumpSequence(tx *gorm.DB, entity string, min int64) error {
	var seq SequenceRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("entity = ?", entity).
		Attrs(SequenceRow{Entity: entity}).
		FirstOrCreate(&seq).Error
	if err != nil {
		return errors.Wrapf(err, "sequence %s", entity)
	}
	if seq.LastID >= min {
		return nil
	}
	return tx.Model(&SequenceRow{}).Where("entity = ?", entity).Update("last_id", min).Error
}

func (s *GormStore) Add(ctx context.Context, entity string, rec domain.Record) (domain.Record, error) {
	if err := checkEntity(entity); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var stored domain.Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq SequenceRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("entity = ?", entity).
			Attrs(SequenceRow{Entity: entity}).
			FirstOrCreate(&seq).Error
		if err != nil {
			return errors.Wrapf(err, "sequence %s", entity)
		}
		next := seq.LastID + 1
		if err := tx.Model(&SequenceRow{}).Where("entity = ?", entity).Update("last_id", next).Error; err != nil {
			return err
		}
		stored = rec.Clone()
		stored["id"] = next
		row, err := newRow(entity, stored)
		if err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, errors.Wrapf(err, "add %s", entity)
	}
	return stored.Clone(), nil
}

func (s *GormStore) Update(ctx context.Context, entity string, id int64, fields domain.Record) (bool, error) {
	if err := checkEntity(entity); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []RecordRow
		if err := tx.Where("entity = ? AND record_id = ?", entity, id).Limit(1).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		records, err := rowsToRecords(rows)
		if err != nil {
			return err
		}
		found = mergeInto(records, id, fields)
		data, err := domain.RecordCodec.MarshalToString(records[0])
		if err != nil {
			return err
		}
		return tx.Model(&RecordRow{}).Where("id = ?", rows[0].ID).Update("data", data).Error
	})
	if err != nil {
		return false, errors.Wrapf(err, "update %s %d", entity, id)
	}
	return found, nil
}

func (s *GormStore) Find(ctx context.Context, entity string, id int64) (domain.Record, error) {
	if err := checkEntity(entity); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []RecordRow
	if err := s.db.WithContext(ctx).Where("entity = ? AND record_id = ?", entity, id).Limit(1).Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "find %s %d", entity, id)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	records, err := rowsToRecords(rows)
	if err != nil {
		return nil, err
	}
	return records[0], nil
}

func (s *GormStore) Delete(ctx context.Context, entity string, id int64) (bool, error) {
	if err := checkEntity(entity); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.db.WithContext(ctx).Where("entity = ? AND record_id = ?", entity, id).Delete(&RecordRow{})
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "delete %s %d", entity, id)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
