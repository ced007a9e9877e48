// Package ledger is the call boundary to the smart-contract/wallet
// service. The contract itself is opaque; this package only submits the
// assemble transaction and resolves minted token ids.
package ledger

import "context"

// MintRequest carries everything the assemble transaction needs.
// ComponentIDs are passed in scan insertion order, unsorted.
type MintRequest struct {
	WatchID      string   `json:"watchId"`
	ComponentIDs []string `json:"componentIds"`
	Image        string   `json:"image"`
	Location     string   `json:"location"`
	Timestamp    string   `json:"timestamp"`
	MetadataURI  string   `json:"metadataURI"`
}

// MintReceipt is the confirmed transaction result.
type MintReceipt struct {
	TransactionHash string `json:"transactionHash"`
}

// Gateway is the narrow ledger interface consumed by the orchestrator.
type Gateway interface {
	// AssembleWatch submits the mint transaction and waits for the
	// wallet to confirm or reject it. Errors are classified per the
	// taxonomy in this package.
	AssembleWatch(ctx context.Context, req *MintRequest) (*MintReceipt, error)

	// WatchTokenID resolves the minted token id for a watch.
	// Returns ErrTokenNotFound when the ledger has no entry.
	WatchTokenID(ctx context.Context, watchID string) (int64, error)

	// TotalMinted returns the contract's total-minted counter, the
	// fallback token-id source.
	TotalMinted(ctx context.Context) (int64, error)

	// ContractAddress returns the deployed contract address, used to
	// derive the verification code.
	ContractAddress() string
}
