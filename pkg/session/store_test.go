package session

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/luxtrace/assembler/pkg/registry"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_LoadEmpty(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil session, got %+v", sess)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	sess := New()
	sess.Components = []registry.Component{
		{ID: "C-1", Type: "dial", Status: registry.StatusCertified},
		{ID: "C-2", Type: "crown", Status: registry.StatusCertified},
		{ID: "C-3", Type: "bezel", Status: registry.StatusCertified},
	}
	sess.SummaryImage = "/tmp/watch.png"
	sess.ImageRef = "uploads/abc.png"

	if err := store.Save(sess); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected session, got nil")
	}

	if loaded.WatchID != sess.WatchID {
		t.Errorf("watch id mismatch: got %s, want %s", loaded.WatchID, sess.WatchID)
	}
	if len(loaded.Components) != 3 {
		t.Fatalf("expected 3 components, got %d", len(loaded.Components))
	}
	// Same ids, same insertion order.
	for i, want := range []string{"C-1", "C-2", "C-3"} {
		if loaded.Components[i].ID != want {
			t.Errorf("component %d: got %s, want %s", i, loaded.Components[i].ID, want)
		}
	}
	if loaded.ImageRef != sess.ImageRef {
		t.Errorf("image ref mismatch: got %s, want %s", loaded.ImageRef, sess.ImageRef)
	}
}

func TestStore_CorruptSessionTreatedAsAbsent(t *testing.T) {
	store := newTestStore(t)

	// Write garbage directly into the session slot.
	err := store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey, []byte("{not json"))
	})
	if err != nil {
		t.Fatalf("failed to write garbage: %v", err)
	}

	sess, err := store.Load()
	if err != nil {
		t.Fatalf("corrupt session surfaced as error: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil session for corrupt data, got %+v", sess)
	}

	// The slot was wiped, not left corrupt.
	sess, err = store.Load()
	if err != nil || sess != nil {
		t.Errorf("expected wiped slot, got sess=%+v err=%v", sess, err)
	}
}

func TestStore_Clear(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(New()); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}

	sess, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil after clear, got %+v", sess)
	}
}
