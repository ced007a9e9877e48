package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/luxtrace/assembler/pkg/registry"
	"github.com/luxtrace/assembler/pkg/validator"
)

// fakeLookup serves component records from a map; nil for unknown ids.
type fakeLookup struct {
	records map[string]*registry.Component
}

func (f *fakeLookup) GetByID(id string) (*registry.Component, error) {
	return f.records[id], nil
}

func certified(id string) *registry.Component {
	return &registry.Component{ID: id, Type: "dial", Status: registry.StatusCertified}
}

func newTestIntake(t *testing.T, records ...*registry.Component) *Intake {
	t.Helper()
	store := newTestStore(t)

	lookup := &fakeLookup{records: map[string]*registry.Component{}}
	for _, rec := range records {
		lookup.records[rec.ID] = rec
	}

	intake, err := NewIntake(store, lookup)
	if err != nil {
		t.Fatalf("failed to create intake: %v", err)
	}
	return intake
}

func TestIntake_ScanAddsComponent(t *testing.T) {
	intake := newTestIntake(t, certified("C-1"))
	ctx := context.Background()

	if err := intake.OnScanResult(ctx, "C-1", nil); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if len(intake.Session().Components) != 1 {
		t.Errorf("expected 1 component, got %d", len(intake.Session().Components))
	}
}

func TestIntake_DuplicateScanRejected(t *testing.T) {
	intake := newTestIntake(t, certified("C-1"))
	ctx := context.Background()

	if err := intake.OnScanResult(ctx, "C-1", nil); err != nil {
		t.Fatalf("first scan failed: %v", err)
	}

	err := intake.OnScanResult(ctx, "C-1", nil)
	if !errors.Is(err, validator.ErrAlreadyInSession) {
		t.Errorf("got %v, want ErrAlreadyInSession", err)
	}

	if len(intake.Session().Components) != 1 {
		t.Errorf("duplicate scan changed the set: %d components", len(intake.Session().Components))
	}
}

func TestIntake_NoDuplicatesForAnyScanSequence(t *testing.T) {
	intake := newTestIntake(t, certified("C-1"), certified("C-2"), certified("C-3"))
	ctx := context.Background()

	sequence := []string{"C-1", "C-1", "C-2", "C-1", "C-3", "C-2", "C-3", "C-3", "C-1"}
	for _, id := range sequence {
		_ = intake.OnScanResult(ctx, id, nil)
	}

	seen := map[string]int{}
	for _, c := range intake.Session().Components {
		seen[c.ID]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("component %s appears %d times", id, n)
		}
	}
	if len(intake.Session().Components) != 3 {
		t.Errorf("expected 3 unique components, got %d", len(intake.Session().Components))
	}
}

func TestIntake_RejectsNonCertified(t *testing.T) {
	intake := newTestIntake(t,
		&registry.Component{ID: "M-1", Status: registry.StatusManufactured},
		&registry.Component{ID: "U-1", Status: registry.StatusUsed},
	)
	ctx := context.Background()

	if err := intake.OnScanResult(ctx, "M-1", nil); !errors.Is(err, validator.ErrNotCertified) {
		t.Errorf("got %v, want ErrNotCertified", err)
	}
	if err := intake.OnScanResult(ctx, "U-1", nil); !errors.Is(err, validator.ErrAlreadyUsed) {
		t.Errorf("got %v, want ErrAlreadyUsed", err)
	}
	if err := intake.OnScanResult(ctx, "ghost", nil); !errors.Is(err, validator.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}

	if len(intake.Session().Components) != 0 {
		t.Errorf("rejected scans changed the set: %d components", len(intake.Session().Components))
	}
}

func TestIntake_InlineDataSkipsLookup(t *testing.T) {
	intake := newTestIntake(t) // empty registry
	ctx := context.Background()

	if err := intake.OnScanResult(ctx, "C-9", certified("C-9")); err != nil {
		t.Fatalf("inline scan failed: %v", err)
	}
	if !intake.Session().Has("C-9") {
		t.Error("inline component not added")
	}
}

func TestIntake_SingleFlight(t *testing.T) {
	intake := newTestIntake(t)
	ctx := context.Background()

	// Hold the gate open and fire concurrent scans; every one of them
	// must be dropped with ErrScanInFlight.
	intake.busy.Store(true)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for n := 0; n < 10; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- intake.OnScanResult(ctx, "C-1", certified("C-1"))
		}()
	}
	wg.Wait()
	close(results)

	for err := range results {
		if !errors.Is(err, ErrScanInFlight) {
			t.Errorf("got %v, want ErrScanInFlight", err)
		}
	}

	intake.busy.Store(false)
	if len(intake.Session().Components) != 0 {
		t.Errorf("dropped scans changed the set: %d components", len(intake.Session().Components))
	}
}

func TestIntake_RemoveIsNoopWhenAbsent(t *testing.T) {
	intake := newTestIntake(t, certified("C-1"))
	ctx := context.Background()

	_ = intake.OnScanResult(ctx, "C-1", nil)

	if err := intake.Remove("not-here"); err != nil {
		t.Errorf("remove of absent id errored: %v", err)
	}
	if err := intake.Remove("C-1"); err != nil {
		t.Errorf("remove failed: %v", err)
	}
	if len(intake.Session().Components) != 0 {
		t.Errorf("expected empty set, got %d", len(intake.Session().Components))
	}
}

func TestIntake_ClearAll(t *testing.T) {
	intake := newTestIntake(t, certified("C-1"))
	ctx := context.Background()

	_ = intake.OnScanResult(ctx, "C-1", nil)
	_ = intake.AttachImage("/tmp/watch.png")
	intake.Session().Step = StepUploading

	if err := intake.ClearAll(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	sess := intake.Session()
	if len(sess.Components) != 0 || sess.SummaryImage != "" || sess.Step != StepCollecting {
		t.Errorf("session not reset: %+v", sess)
	}
	if sess.WatchID == "" {
		t.Error("watch id lost on reset")
	}
}

func TestIntake_NewWatchIDPreservesComponents(t *testing.T) {
	intake := newTestIntake(t, certified("C-1"), certified("C-2"))
	ctx := context.Background()

	_ = intake.OnScanResult(ctx, "C-1", nil)
	_ = intake.OnScanResult(ctx, "C-2", nil)
	old := intake.Session().WatchID
	intake.Session().ImageRef = "uploads/old.png"
	intake.Session().MetadataURI = "ipfs://old"

	fresh, err := intake.NewWatchID()
	if err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}

	if fresh == old {
		t.Error("watch id did not change")
	}
	if len(intake.Session().Components) != 2 {
		t.Errorf("components lost on regenerate: %d", len(intake.Session().Components))
	}
	// Artifacts of the old id are abandoned.
	if intake.Session().ImageRef != "" || intake.Session().MetadataURI != "" {
		t.Errorf("old artifacts kept: %+v", intake.Session())
	}
}

func TestIntake_RehydratesPriorSession(t *testing.T) {
	store := newTestStore(t)
	lookup := &fakeLookup{records: map[string]*registry.Component{"C-1": certified("C-1")}}

	first, err := NewIntake(store, lookup)
	if err != nil {
		t.Fatalf("failed to create intake: %v", err)
	}
	_ = first.OnScanResult(context.Background(), "C-1", nil)
	watchID := first.Session().WatchID

	// A second controller over the same store resumes the session.
	second, err := NewIntake(store, lookup)
	if err != nil {
		t.Fatalf("failed to recreate intake: %v", err)
	}
	if second.Session().WatchID != watchID {
		t.Errorf("watch id not rehydrated: got %s, want %s", second.Session().WatchID, watchID)
	}
	if !second.Session().Has("C-1") {
		t.Error("components not rehydrated")
	}
}
