package saga

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/luxtrace/assembler/pkg/errors"
	"github.com/luxtrace/assembler/pkg/ledger"
	"github.com/luxtrace/assembler/pkg/metadata"
	"github.com/luxtrace/assembler/pkg/session"
	"github.com/superfly/fsm"
)

// handleCheckSession gates entry to the saga: enough certified
// components and a summary image, both checked client-side to avoid a
// wasted round trip. The ledger re-checks the minimum authoritatively.
func (m *Machine) handleCheckSession(ctx context.Context, req *fsm.Request[AssembleRequest, AssembleResult]) (*fsm.Response[AssembleResult], error) {
	slog.Info("fsm_state_check_session", "watch_id", req.Msg.WatchID)

	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("max_retries_exceeded", "watch_id", req.Msg.WatchID, "max_retries", m.maxRetries)
		return nil, fsm.Abort(fmt.Errorf("max retries (%d) exceeded", m.maxRetries))
	}

	resp := req.W.Msg
	if resp == nil {
		resp = &AssembleResult{}
	}

	if missing := m.sess.MissingComponents(m.minComponents); missing > 0 {
		slog.Error("session_below_minimum",
			"watch_id", req.Msg.WatchID,
			"component_count", len(m.sess.Components),
			"min_components", m.minComponents,
		)
		return nil, fsm.Abort(fmt.Errorf("%d more component(s) required before assembly", missing))
	}
	if m.sess.SummaryImage == "" {
		slog.Error("session_missing_summary_image", "watch_id", req.Msg.WatchID)
		return nil, fsm.Abort(errors.New("a summary image is required before assembly"))
	}

	// A prior attempt may already have uploaded the image or generated
	// metadata; carry those forward so later states skip redone work.
	resp.ImageRef = m.sess.ImageRef
	resp.MetadataURI = m.sess.MetadataURI
	resp.ImageURI = m.sess.ImageURI

	m.sess.Step = session.StepUploading
	if err := m.store.Save(m.sess); err != nil {
		return nil, errors.Wrap(err, "failed to save session")
	}

	return fsm.NewResponse(resp), nil
}

// handleUploadImage uploads the summary image, unless a prior attempt
// already holds a reference. The stored reference is reused verbatim on
// retries of later states.
func (m *Machine) handleUploadImage(ctx context.Context, req *fsm.Request[AssembleRequest, AssembleResult]) (*fsm.Response[AssembleResult], error) {
	slog.Info("fsm_state_upload_image", "watch_id", req.Msg.WatchID)

	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("max_retries_exceeded", "watch_id", req.Msg.WatchID, "max_retries", m.maxRetries)
		return nil, fsm.Abort(fmt.Errorf("max retries (%d) exceeded", m.maxRetries))
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(errors.New("response not initialized"))
	}

	if resp.ImageRef != "" {
		slog.Info("image_already_uploaded", "watch_id", req.Msg.WatchID, "image_ref", resp.ImageRef)
		return fsm.NewResponse(resp), nil
	}

	result, err := m.images.Upload(ctx, m.sess.SummaryImage)
	if err != nil {
		slog.Error("image_upload_failed", "watch_id", req.Msg.WatchID, "error", err)
		return nil, errors.Wrap(err, "failed to upload summary image")
	}

	resp.ImageRef = result.Key
	m.sess.ImageRef = result.Key
	if err := m.store.Save(m.sess); err != nil {
		return nil, errors.Wrap(err, "failed to save session")
	}

	slog.Info("image_uploaded", "watch_id", req.Msg.WatchID, "image_ref", result.Key, "size_kb", result.Size/1024)
	return fsm.NewResponse(resp), nil
}

// handleGenerateMetadata persists the off-chain record and obtains the
// token metadata URIs. Not reversible once it succeeds: the record
// exists even if the mint later fails.
func (m *Machine) handleGenerateMetadata(ctx context.Context, req *fsm.Request[AssembleRequest, AssembleResult]) (*fsm.Response[AssembleResult], error) {
	slog.Info("fsm_state_generate_metadata", "watch_id", req.Msg.WatchID)

	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("max_retries_exceeded", "watch_id", req.Msg.WatchID, "max_retries", m.maxRetries)
		return nil, fsm.Abort(fmt.Errorf("max retries (%d) exceeded", m.maxRetries))
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(errors.New("response not initialized"))
	}

	m.sess.Step = session.StepGenerating
	if err := m.store.Save(m.sess); err != nil {
		return nil, errors.Wrap(err, "failed to save session")
	}

	if resp.MetadataURI != "" {
		slog.Info("metadata_already_generated", "watch_id", req.Msg.WatchID, "metadata_uri", resp.MetadataURI)
		return fsm.NewResponse(resp), nil
	}

	nft, err := m.metadata.Generate(ctx, &metadata.WatchRecord{
		WatchID:          req.Msg.WatchID,
		ComponentIDs:     m.sess.ComponentIDs(),
		Image:            resp.ImageRef,
		Location:         req.Msg.Location,
		Timestamp:        req.Msg.Timestamp,
		AssemblerAddress: req.Msg.AssemblerAddress,
	})
	if err != nil {
		slog.Error("metadata_generation_failed", "watch_id", req.Msg.WatchID, "error", err)
		return nil, errors.Wrap(err, "failed to generate metadata")
	}

	resp.MetadataURI = nft.MetadataURI
	resp.ImageURI = nft.ImageURI
	m.sess.MetadataURI = nft.MetadataURI
	m.sess.ImageURI = nft.ImageURI
	if err := m.store.Save(m.sess); err != nil {
		return nil, errors.Wrap(err, "failed to save session")
	}

	slog.Info("metadata_generated", "watch_id", req.Msg.WatchID, "metadata_uri", nft.MetadataURI)
	return fsm.NewResponse(resp), nil
}

// handleCommitOnChain submits the mint transaction. Ledger failures are
// classified: fatal ones abort the run, transient ones retry from this
// state without redoing upload or metadata.
func (m *Machine) handleCommitOnChain(ctx context.Context, req *fsm.Request[AssembleRequest, AssembleResult]) (*fsm.Response[AssembleResult], error) {
	slog.Info("fsm_state_commit_onchain", "watch_id", req.Msg.WatchID)

	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("max_retries_exceeded", "watch_id", req.Msg.WatchID, "max_retries", m.maxRetries)
		return nil, fsm.Abort(fmt.Errorf("max retries (%d) exceeded", m.maxRetries))
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(errors.New("response not initialized"))
	}

	if resp.MetadataURI == "" {
		// Should be impossible: the previous state did not actually complete.
		slog.Error("commit_without_metadata", "watch_id", req.Msg.WatchID)
		return nil, fsm.Abort(ledger.ErrEmptyMetadata)
	}

	m.sess.Step = session.StepCommitting
	if err := m.store.Save(m.sess); err != nil {
		return nil, errors.Wrap(err, "failed to save session")
	}

	receipt, err := m.ledger.AssembleWatch(ctx, &ledger.MintRequest{
		WatchID:      req.Msg.WatchID,
		ComponentIDs: m.sess.ComponentIDs(),
		Image:        resp.ImageRef,
		Location:     req.Msg.Location,
		Timestamp:    req.Msg.Timestamp,
		MetadataURI:  resp.MetadataURI,
	})
	if err != nil {
		if ledger.Fatal(err) {
			slog.Error("mint_fatal", "watch_id", req.Msg.WatchID, "error", err)
			return nil, fsm.Abort(err)
		}
		slog.Error("mint_retryable", "watch_id", req.Msg.WatchID, "error", err)
		return nil, errors.Wrap(err, "mint transaction failed")
	}

	resp.TransactionHash = receipt.TransactionHash

	// The mint itself succeeded; token-id resolution failures degrade,
	// they do not fail the saga.
	tokenID, err := m.ledger.WatchTokenID(ctx, req.Msg.WatchID)
	if err != nil {
		total, totalErr := m.ledger.TotalMinted(ctx)
		if totalErr != nil || total == 0 {
			slog.Warn("token_id_unresolved", "watch_id", req.Msg.WatchID, "lookup_error", err, "counter_error", totalErr)
		} else {
			// Last-resort degraded read: assume the most recent index.
			// Wrong under concurrent minting.
			resp.TokenID = total - 1
			resp.TokenIDApprox = true
			slog.Warn("token_id_approximated", "watch_id", req.Msg.WatchID, "token_id", resp.TokenID)
		}
	} else {
		resp.TokenID = tokenID
	}

	return fsm.NewResponse(resp), nil
}

// handleComplete mirrors the ledger's used-status into the registry,
// derives the verification code, and clears the session slot.
func (m *Machine) handleComplete(ctx context.Context, req *fsm.Request[AssembleRequest, AssembleResult]) (*fsm.Response[AssembleResult], error) {
	slog.Info("fsm_state_complete", "watch_id", req.Msg.WatchID)

	resp := req.W.Msg
	if resp == nil {
		resp = &AssembleResult{}
	}

	if err := m.components.MarkUsed(ctx, m.sess.ComponentIDs()); err != nil {
		// The ledger is authoritative for status; a mirror failure is
		// reconcilable later and must not fail a minted watch.
		slog.Warn("registry_mirror_failed", "watch_id", req.Msg.WatchID, "error", err)
	}

	resp.VerificationCode = VerificationCode(m.ledger.ContractAddress(), req.Msg.WatchID)
	resp.Status = StatusCompleted
	m.sess.Step = session.StepCompleted

	if err := m.store.Clear(); err != nil {
		return nil, errors.Wrap(err, "failed to clear session")
	}

	slog.Info("assembly_session_closed",
		"watch_id", req.Msg.WatchID,
		"verification_code", resp.VerificationCode,
	)
	return fsm.NewResponse(resp), nil
}

// VerificationCode derives the shareable code for a minted watch from
// the contract address and watch id.
func VerificationCode(contractAddress, watchID string) string {
	sum := sha256.Sum256([]byte(contractAddress + "|" + watchID))
	return hex.EncodeToString(sum[:])
}
