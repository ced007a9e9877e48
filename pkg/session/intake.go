package session

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/luxtrace/assembler/pkg/errors"
	"github.com/luxtrace/assembler/pkg/registry"
	"github.com/luxtrace/assembler/pkg/validator"
)

// ErrScanInFlight is returned when a scan event arrives while another
// one is still being validated. The event is dropped, not queued: the
// scanning subsystem may report the same code several times in quick
// succession.
var ErrScanInFlight = errors.New("scan already in flight")

// Lookup resolves a component record by id. A (nil, nil) result means
// the id is unknown.
type Lookup interface {
	GetByID(id string) (*registry.Component, error)
}

// Intake receives scan events one at a time and applies validated
// components to the session. Single-flight: the busy flag is a gate,
// not a mutex; there is exactly one producer of scan events per device.
type Intake struct {
	store    *Store
	registry Lookup
	session  *Session
	busy     atomic.Bool
}

// NewIntake loads the prior session from the store, or starts a fresh
// one when none (or only a corrupt one) exists.
func NewIntake(store *Store, reg Lookup) (*Intake, error) {
	sess, err := store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load session")
	}
	if sess == nil {
		sess = New()
		slog.Info("session_created", "watch_id", sess.WatchID)
		if err := store.Save(sess); err != nil {
			return nil, err
		}
	}
	return &Intake{store: store, registry: reg, session: sess}, nil
}

// Session returns the current session.
func (i *Intake) Session() *Session {
	return i.session
}

// OnScanResult handles one externally-reported scan event. The record
// comes from inline data when the scanner handed structured data, or
// from a registry lookup when it handed only an identifier. On success
// the component is appended and the session saved; on rejection the
// session is left unchanged and the typed reason is returned.
func (i *Intake) OnScanResult(ctx context.Context, id string, inline *registry.Component) error {
	if !i.busy.CompareAndSwap(false, true) {
		slog.Warn("scan_dropped_in_flight", "component_id", id)
		return ErrScanInFlight
	}
	defer i.busy.Store(false)

	rec := inline
	if rec == nil {
		var err error
		rec, err = i.registry.GetByID(id)
		if err != nil {
			slog.Error("scan_lookup_failed", "component_id", id, "error", err)
			return errors.Wrap(err, "registry lookup failed")
		}
	}

	if err := validator.Validate(rec, i.session.Has); err != nil {
		slog.Info("scan_rejected", "component_id", id, "reason", err)
		return err
	}

	i.session.Components = append(i.session.Components, *rec)
	if err := i.store.Save(i.session); err != nil {
		// Roll the in-memory set back so memory and disk agree.
		i.session.Components = i.session.Components[:len(i.session.Components)-1]
		return err
	}

	slog.Info("scan_accepted", "component_id", rec.ID, "component_count", len(i.session.Components))
	return nil
}

// Remove deletes a component from the session. Removing an id that is
// not present is a no-op, not an error.
func (i *Intake) Remove(id string) error {
	for idx, c := range i.session.Components {
		if c.ID == id {
			i.session.Components = append(i.session.Components[:idx], i.session.Components[idx+1:]...)
			slog.Info("component_removed", "component_id", id, "component_count", len(i.session.Components))
			return i.store.Save(i.session)
		}
	}
	slog.Info("component_remove_noop", "component_id", id)
	return nil
}

// ClearAll empties the component set and resets progress to collecting.
// The watch id is kept; a full session teardown is the store's Clear.
func (i *Intake) ClearAll() error {
	i.session.Components = nil
	i.session.SummaryImage = ""
	i.session.ImageRef = ""
	i.session.MetadataURI = ""
	i.session.ImageURI = ""
	i.session.Step = StepCollecting

	slog.Info("session_reset", "watch_id", i.session.WatchID)
	return i.store.Save(i.session)
}

// AttachImage records the operator's chosen summary image.
func (i *Intake) AttachImage(path string) error {
	i.session.SummaryImage = path
	slog.Info("summary_image_attached", "watch_id", i.session.WatchID, "path", path)
	return i.store.Save(i.session)
}

// NewWatchID regenerates the session's watch id, preserving the
// collected components. Used after the ledger rejects a duplicate id;
// any metadata generated for the old id is abandoned.
func (i *Intake) NewWatchID() (string, error) {
	old := i.session.WatchID
	if i.session.MetadataURI != "" {
		slog.Warn("metadata_orphaned", "watch_id", old, "metadata_uri", i.session.MetadataURI)
	}

	i.session.WatchID = uuid.NewString()
	i.session.ImageRef = ""
	i.session.MetadataURI = ""
	i.session.ImageURI = ""
	i.session.Step = StepCollecting

	slog.Info("watch_id_regenerated", "old_watch_id", old, "watch_id", i.session.WatchID)
	return i.session.WatchID, i.store.Save(i.session)
}
