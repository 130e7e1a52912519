package account

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var sessionCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Session is the logged in identity kept between CLI invocations
type Session struct {
	AccountID  int64     `json:"account_id"`
	Username   string    `json:"username"`
	UserType   string    `json:"user_type"`
	CustomerID int64     `json:"customer_id,omitempty"`
	StaffID    int64     `json:"staff_id,omitempty"`
	LoginAt    time.Time `json:"login_at"`
}

// IsStaff reports whether the session belongs to a staff member
func (s *Session) IsStaff() bool {
	return s != nil && s.StaffID != 0
}

// SessionFile persists one session as a JSON document
type SessionFile struct {
	mu   sync.Mutex
	path string
}

func NewSessionFile(path string) *SessionFile {
	return &SessionFile{path: path}
}

// Load returns the stored session, or nil when nobody is logged in.
// An unreadable file counts as logged out.
func (f *SessionFile) Load() *Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("read session file", zap.String("path", f.path), zap.Error(err))
		}
		return nil
	}
	var s Session
	if err := sessionCodec.Unmarshal(data, &s); err != nil || s.AccountID == 0 {
		zap.L().Warn("discarding invalid session file", zap.String("path", f.path), zap.Error(err))
		return nil
	}
	return &s
}

func (f *SessionFile) Save(s *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := sessionCodec.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return errors.Wrap(err, "session dir")
	}
	return errors.Wrap(os.WriteFile(f.path, data, 0o600), "write session")
}

// Clear removes the session; a missing file is not an error
func (f *SessionFile) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove session")
	}
	return nil
}
