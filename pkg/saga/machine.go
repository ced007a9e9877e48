// Package saga implements the assembly commit workflow: upload the
// summary image, generate off-chain metadata, and mint the watch token
// on the ledger, in strict order, using the superfly/fsm library.
// Earlier phases are never redone on a retry of a later one.
package saga

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/luxtrace/assembler/pkg/errors"
	"github.com/luxtrace/assembler/pkg/imagestore"
	"github.com/luxtrace/assembler/pkg/ledger"
	"github.com/luxtrace/assembler/pkg/metadata"
	"github.com/luxtrace/assembler/pkg/session"
	"github.com/superfly/fsm"
)

// ErrAssemblyInFlight is returned when a commit attempt starts while
// another one is still pending for this session.
var ErrAssemblyInFlight = errors.New("assembly already in flight")

// ImageUploader stores a local image and returns its reference.
type ImageUploader interface {
	Upload(ctx context.Context, localPath string) (*imagestore.UploadResult, error)
}

// MetadataGenerator persists the off-chain watch record.
type MetadataGenerator interface {
	Generate(ctx context.Context, rec *metadata.WatchRecord) (*metadata.NFTData, error)
}

// ComponentMarker mirrors the ledger's used-status side-effect into the
// local registry.
type ComponentMarker interface {
	MarkUsed(ctx context.Context, ids []string) error
}

// Machine holds dependencies for FSM transitions
type Machine struct {
	store      *session.Store
	sess       *session.Session
	components ComponentMarker
	images     ImageUploader
	metadata   MetadataGenerator
	ledger     ledger.Gateway

	minComponents int
	maxRetries    int

	running atomic.Bool
}

// NewMachine creates a new FSM machine with dependencies
func NewMachine(
	store *session.Store,
	sess *session.Session,
	components ComponentMarker,
	images ImageUploader,
	meta MetadataGenerator,
	gateway ledger.Gateway,
	minComponents int,
	maxRetries int,
) *Machine {
	return &Machine{
		store:         store,
		sess:          sess,
		components:    components,
		images:        images,
		metadata:      meta,
		ledger:        gateway,
		minComponents: minComponents,
		maxRetries:    maxRetries,
	}
}

// Register registers the assembly FSM
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[AssembleRequest, AssembleResult], fsm.Resume, error) {
	start, resume, err := fsm.Register[AssembleRequest, AssembleResult](manager, "watch-assemble").
		Start(StateCheckSession, m.handleCheckSession).
		To(StateUploadImage, m.handleUploadImage).
		To(StateGenerateMetadata, m.handleGenerateMetadata).
		To(StateCommitOnChain, m.handleCommitOnChain).
		To(StateComplete, m.handleComplete).
		End(StateFailed).
		Build(ctx)

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register FSM")
	}

	return start, resume, nil
}

// Run drives one full commit attempt for the current session. A second
// call while one is pending is rejected; this is the only re-entrancy
// guard the commit path needs. On failure the session keeps its
// components and image selection and drops back to collecting, so the
// operator can retry without rescanning.
func (m *Machine) Run(ctx context.Context, manager *fsm.Manager, assemblerAddress, location string) (*AssembleResult, error) {
	if !m.running.CompareAndSwap(false, true) {
		slog.Warn("assembly_rejected_in_flight", "watch_id", m.sess.WatchID)
		return nil, ErrAssemblyInFlight
	}
	defer m.running.Store(false)

	start, _, err := m.Register(ctx, manager)
	if err != nil {
		return nil, err
	}

	req := &AssembleRequest{
		WatchID:          m.sess.WatchID,
		Location:         location,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		AssemblerAddress: assemblerAddress,
	}
	resp := &AssembleResult{}

	version, err := start(ctx, m.sess.WatchID, fsm.NewRequest(req, resp))
	if err != nil {
		return nil, errors.Wrap(err, "FSM start failed")
	}

	slog.Info("assembly_started", "watch_id", m.sess.WatchID, "version", version)

	if err := manager.Wait(ctx, version); err != nil {
		m.revertToCollecting()
		return resp, errors.Wrap(err, "assembly failed")
	}

	slog.Info("assembly_complete",
		"watch_id", m.sess.WatchID,
		"tx_hash", resp.TransactionHash,
		"token_id", resp.TokenID,
	)
	return resp, nil
}

// revertToCollecting returns the session to its last stable state after
// a failed run. Uploaded references and generated metadata stay on the
// session so a retry reuses them instead of redoing earlier phases.
func (m *Machine) revertToCollecting() {
	m.sess.Step = session.StepCollecting
	if err := m.store.Save(m.sess); err != nil {
		slog.Error("session_revert_save_failed", "watch_id", m.sess.WatchID, "error", err)
	}
}
