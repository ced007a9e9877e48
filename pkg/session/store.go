package session

import (
	"encoding/json"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/luxtrace/assembler/pkg/errors"
)

// sessionKey is the single fixed slot: one session per device/operator.
var sessionKey = []byte("session:current")

// Store persists the assembly session across process restarts.
type Store struct {
	db *badger.DB
}

// OpenStore opens the local session database at path.
func OpenStore(path string) (*Store, error) {
	slog.Info("session_store_init", "path", path)

	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		slog.Error("session_store_open_failed", "path", path, "error", err)
		return nil, errors.Wrap(err, "failed to open session store")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the persisted session, or nil when none exists. A session
// that fails to decode is wiped and reported as absent: corrupt state
// cannot safely be resumed.
func (s *Store) Load() (*Session, error) {
	var sess Session
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &sess); err != nil {
				slog.Warn("session_store_corrupt", "error", err)
				return errCorrupt
			}
			found = true
			return nil
		})
	})
	if err == errCorrupt {
		if wipeErr := s.Clear(); wipeErr != nil {
			return nil, errors.Wrap(wipeErr, "failed to wipe corrupt session")
		}
		return nil, nil
	}
	if err != nil {
		slog.Error("session_store_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load session")
	}
	if !found {
		return nil, nil
	}

	slog.Info("session_store_loaded", "watch_id", sess.WatchID, "component_count", len(sess.Components), "step", sess.Step)
	return &sess, nil
}

// Save persists the session. Called after every mutation so the set
// survives a crash mid-scan; writes are small and local.
func (s *Store) Save(sess *Session) error {
	buf, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "failed to encode session")
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey, buf)
	})
	if err != nil {
		slog.Error("session_store_save_failed", "watch_id", sess.WatchID, "error", err)
		return errors.Wrap(err, "failed to save session")
	}

	slog.Info("session_saved", "watch_id", sess.WatchID, "component_count", len(sess.Components), "step", sess.Step)
	return nil
}

// Clear removes the persisted session slot
func (s *Store) Clear() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey)
	})
	if err != nil {
		slog.Error("session_store_clear_failed", "error", err)
		return errors.Wrap(err, "failed to clear session")
	}

	slog.Info("session_store_cleared")
	return nil
}

var errCorrupt = errors.New("corrupt session record")
