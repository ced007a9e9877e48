// Package session holds the durable in-progress assembly state for one
// operator/device and the scan intake path that mutates it.
package session

import (
	"github.com/google/uuid"
	"github.com/luxtrace/assembler/pkg/registry"
)

// Step is the visible progress state of an assembly attempt.
type Step string

const (
	StepCollecting Step = "collecting_components"
	StepUploading  Step = "uploading_documentation"
	StepGenerating Step = "generating_metadata"
	StepCommitting Step = "committing_onchain"
	StepCompleted  Step = "completed"
)

// Session is one in-progress assembly attempt. Components keep scan
// insertion order; order carries no meaning to the ledger but must be
// stable so the minted metadata matches what the operator reviewed.
type Session struct {
	WatchID      string               `json:"watchId"`
	Components   []registry.Component `json:"components"`
	SummaryImage string               `json:"summaryImage,omitempty"`
	ImageRef     string               `json:"imageRef,omitempty"`
	MetadataURI  string               `json:"metadataUri,omitempty"`
	ImageURI     string               `json:"imageUri,omitempty"`
	Step         Step                 `json:"progressStep"`
}

// New creates a fresh session with a generated watch id.
func New() *Session {
	return &Session{
		WatchID: uuid.NewString(),
		Step:    StepCollecting,
	}
}

// Has reports whether a component id is already in the session.
func (s *Session) Has(id string) bool {
	for _, c := range s.Components {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ComponentIDs returns the component ids in scan insertion order.
func (s *Session) ComponentIDs() []string {
	ids := make([]string, len(s.Components))
	for i, c := range s.Components {
		ids[i] = c.ID
	}
	return ids
}

// Ready reports whether the session may leave the collecting step:
// at least min components and a summary image selected.
func (s *Session) Ready(min int) bool {
	return len(s.Components) >= min && s.SummaryImage != ""
}

// MissingComponents returns how many more components are required to
// reach min, never negative.
func (s *Session) MissingComponents(min int) int {
	if missing := min - len(s.Components); missing > 0 {
		return missing
	}
	return 0
}
