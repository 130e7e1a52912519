package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/talkincode/ocss/internal/domain"
	"go.uber.org/zap"
)

// sequenceFile holds the highest id ever assigned per entity, so ids of
// deleted records are not handed out again.
const sequenceFile = "_sequences.json"

// JSONFileStore keeps one "<entity>.json" array per collection inside dir.
type JSONFileStore struct {
	dir string
	mu  sync.Mutex
}

var _ RecordStore = (*JSONFileStore)(nil)

// NewJSONFileStore creates dir and an empty file for every known entity
func NewJSONFileStore(dir string) (*JSONFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", dir)
	}
	s := &JSONFileStore{dir: dir}
	for _, entity := range domain.Tables {
		path := s.path(entity)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := s.write(entity, []domain.Record{}); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Dir returns the data directory
func (s *JSONFileStore) Dir() string {
	return s.dir
}

func (s *JSONFileStore) path(entity string) string {
	return filepath.Join(s.dir, entity+".json")
}

// read returns the collection; a missing or corrupt file reads as empty
func (s *JSONFileStore) read(entity string) ([]domain.Record, error) {
	data, err := os.ReadFile(s.path(entity))
	if os.IsNotExist(err) {
		return []domain.Record{}, s.write(entity, []domain.Record{})
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", entity)
	}
	var records []domain.Record
	if err := domain.RecordCodec.Unmarshal(data, &records); err != nil {
		zap.L().Warn("corrupt record file, treating as empty",
			zap.String("entity", entity),
			zap.String("path", s.path(entity)),
			zap.Error(err))
		return []domain.Record{}, nil
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

// write replaces the file atomically through a temp file and rename
func (s *JSONFileStore) write(entity string, records []domain.Record) error {
	if records == nil {
		records = []domain.Record{}
	}
	data, err := domain.RecordCodec.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", entity)
	}
	return s.replace(entity+".json", data)
}

func (s *JSONFileStore) replace(name string, data []byte) error {
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		return errors.Wrapf(err, "replace %s", name)
	}
	return nil
}

// sequences reads the id high-water marks; a missing or corrupt file reads as empty
func (s *JSONFileStore) sequences() (map[string]int64, error) {
	seqs := map[string]int64{}
	data, err := os.ReadFile(filepath.Join(s.dir, sequenceFile))
	if os.IsNotExist(err) {
		return seqs, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read sequences")
	}
	if err := domain.RecordCodec.Unmarshal(data, &seqs); err != nil {
		zap.L().Warn("corrupt sequence file, falling back to record ids", zap.Error(err))
		return map[string]int64{}, nil
	}
	return seqs, nil
}

// raiseSequence stores id as the high-water mark of entity when it is higher
func (s *JSONFileStore) raiseSequence(entity string, id int64) error {
	seqs, err := s.sequences()
	if err != nil {
		return err
	}
	if seqs[entity] >= id {
		return nil
	}
	seqs[entity] = id
	data, err := domain.RecordCodec.MarshalIndent(seqs, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode sequences")
	}
	return s.replace(sequenceFile, data)
}

// allocateID returns an id above every id the entity has ever used
func (s *JSONFileStore) allocateID(entity string, records []domain.Record) (int64, error) {
	seqs, err := s.sequences()
	if err != nil {
		return 0, err
	}
	id := nextID(records)
	if seqs[entity] >= id {
		id = seqs[entity] + 1
	}
	return id, nil
}

func (s *JSONFileStore) Load(_ context.Context, entity string) ([]domain.Record, error) {
	if err := checkEntity(entity); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(entity)
}

func (s *JSONFileStore) Save(_ context.Context, entity string, records []domain.Record) error {
	if err := checkEntity(entity); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.raiseSequence(entity, nextID(records)-1); err != nil {
		return err
	}
	return s.write(entity, records)
}

func (s *JSONFileStore) Add(_ context.Context, entity string, rec domain.Record) (domain.Record, error) {
	if err := checkEntity(entity); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read(entity)
	if err != nil {
		return nil, err
	}
	id, err := s.allocateID(entity, records)
	if err != nil {
		return nil, err
	}
	if err := s.raiseSequence(entity, id); err != nil {
		return nil, err
	}
	stored := rec.Clone()
	stored["id"] = id
	records = append(records, stored)
	if err := s.write(entity, records); err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

func (s *JSONFileStore) Update(_ context.Context, entity string, id int64, fields domain.Record) (bool, error) {
	if err := checkEntity(entity); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read(entity)
	if err != nil {
		return false, err
	}
	if !mergeInto(records, id, fields) {
		return false, nil
	}
	return true, s.write(entity, records)
}

func (s *JSONFileStore) Find(_ context.Context, entity string, id int64) (domain.Record, error) {
	if err := checkEntity(entity); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read(entity)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, nil
}

func (s *JSONFileStore) Delete(_ context.Context, entity string, id int64) (bool, error) {
	if err := checkEntity(entity); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read(entity)
	if err != nil {
		return false, err
	}
	kept := records[:0]
	for _, r := range records {
		if r.ID() != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return false, nil
	}
	return true, s.write(entity, kept)
}

func (s *JSONFileStore) Close() error {
	return nil
}
