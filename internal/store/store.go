// Package store keeps the two persisted slots of a session, settings and
// long memory, in a badger database.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"

	"github.com/dgraph-io/badger/v4"

	"shirley/internal/conversation"
)

const (
	settingsKey = "shirley_settings_v1"
	memoryKey   = "shirley_long_memory_v1"
)

var ErrNotFound = errors.New("store: key not found")

type Store struct {
	db  *badger.DB
	log *log.Logger
}

// Open opens the database in dir. An empty dir keeps everything in memory.
func Open(dir string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.With("component", "store")

	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db, log: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return out, nil
}

func (s *Store) put(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// LoadSettings merges the stored settings over the defaults. Missing or
// unreadable data yields the defaults.
func (s *Store) LoadSettings() conversation.Settings {
	def := conversation.DefaultSettings()

	raw, err := s.get(settingsKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Debug("Settings unreadable", "err", err)
		}
		return def
	}

	merged := def
	if err := json.Unmarshal(raw, &merged); err != nil {
		s.log.Debug("Settings corrupt, using defaults", "err", err)
		return def
	}
	return merged
}

func (s *Store) SaveSettings(st conversation.Settings) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return s.put(settingsKey, data)
}

// LoadMemory returns the stored long-memory object, or nil.
func (s *Store) LoadMemory() json.RawMessage {
	raw, err := s.get(memoryKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Debug("Memory unreadable", "err", err)
		}
		return nil
	}
	if !json.Valid(raw) {
		s.log.Debug("Memory corrupt, ignoring")
		return nil
	}
	return json.RawMessage(raw)
}

func (s *Store) SaveMemory(mem json.RawMessage) error {
	if !json.Valid(mem) {
		return fmt.Errorf("save memory: invalid json")
	}
	return s.put(memoryKey, mem)
}

func (s *Store) ClearMemory() error {
	return s.delete(memoryKey)
}

// badgerLogger routes badger's printf-style logging into slog. Its info
// output is noisy, so it goes to debug.
type badgerLogger struct {
	l *log.Logger
}

func (b badgerLogger) Errorf(format string, args ...any) {
	b.l.Error(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.l.Debug(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.l.Debug(fmt.Sprintf(format, args...))
}
