package store

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/ocss/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// BoltStore keeps each entity in its own bucket, keyed by the big-endian record id.
type BoltStore struct {
	db *bolt.DB
	mu sync.Mutex
}

var _ RecordStore = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the database file and its buckets
func NewBoltStore(file string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create data dir for %s", file)
	}
	db, err := bolt.Open(file, 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt %s", file)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, entity := range domain.Tables {
			if _, err := tx.CreateBucketIfNotExists([]byte(entity)); err != nil {
				return errors.Wrapf(err, "create bucket %s", entity)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func decodeValue(v []byte) (domain.Record, error) {
	var rec domain.Record
	if err := domain.RecordCodec.Unmarshal(v, &rec); err != nil {
		return nil, errors.Wrap(err, "decode bolt value")
	}
	return rec, nil
}

func putRecord(b *bolt.Bucket, key int64, rec domain.Record) error {
	data, err := domain.RecordCodec.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encode bolt value")
	}
	return b.Put(itob(key), data)
}

func (s *BoltStore) Load(_ context.Context, entity string) ([]domain.Record, error) {
	if err := checkEntity(entity); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records := []domain.Record{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(entity)).ForEach(func(_, v []byte) error {
			rec, err := decodeValue(v)
			if err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

// Save rewrites the bucket. Records without an id are keyed by position.
func (s *BoltStore) Save(_ context.Context, entity string, records []domain.Record) error {
	if err := checkEntity(entity); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		name := []byte(entity)
		seq := tx.Bucket(name).Sequence()
		if err := tx.DeleteBucket(name); err != nil {
			return errors.Wrapf(err, "reset bucket %s", entity)
		}
		b, err := tx.CreateBucket(name)
		if err != nil {
			return errors.Wrapf(err, "create bucket %s", entity)
		}
		var max uint64
		for i, rec := range records {
			key := rec.ID()
			if key <= 0 {
				key = int64(i + 1)
			} else if uint64(key) > max {
				max = uint64(key)
			}
			if err := putRecord(b, key, rec); err != nil {
				return err
			}
		}
		if max > seq {
			seq = max
		}
		return b.SetSequence(seq)
	})
}

func (s *BoltStore) Add(_ context.Context, entity string, rec domain.Record) (domain.Record, error) {
	if err := checkEntity(entity); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var stored domain.Record
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(entity))
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		stored = rec.Clone()
		stored["id"] = int64(id)
		return putRecord(b, int64(id), stored)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "add %s", entity)
	}
	return stored.Clone(), nil
}

func (s *BoltStore) Update(_ context.Context, entity string, id int64, fields domain.Record) (bool, error) {
	if err := checkEntity(entity); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(entity))
		v := b.Get(itob(id))
		if v == nil {
			return nil
		}
		rec, err := decodeValue(v)
		if err != nil {
			return err
		}
		found = mergeInto([]domain.Record{rec}, id, fields)
		if !found {
			return nil
		}
		return putRecord(b, id, rec)
	})
	return found, err
}

func (s *BoltStore) Find(_ context.Context, entity string, id int64) (domain.Record, error) {
	if err := checkEntity(entity); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var rec domain.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(entity)).Get(itob(id))
		if v == nil {
			return nil
		}
		var err error
		rec, err = decodeValue(v)
		return err
	})
	return rec, err
}

func (s *BoltStore) Delete(_ context.Context, entity string, id int64) (bool, error) {
	if err := checkEntity(entity); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(entity))
		if b.Get(itob(id)) == nil {
			return nil
		}
		found = true
		return b.Delete(itob(id))
	})
	return found, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
