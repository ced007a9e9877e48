package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/luxtrace/assembler/pkg/errors"
)

// Client talks to the wallet bridge over HTTP. The mint call carries no
// client-enforced timeout: transaction confirmation time is outside our
// control, so the caller sees "pending" until the bridge resolves or
// the wallet reports rejection.
type Client struct {
	baseURL    string
	contract   string
	httpClient *http.Client
}

// NewClient creates a wallet bridge client for the given contract.
func NewClient(baseURL, contractAddress string) *Client {
	slog.Info("ledger_client_init", "base_url", baseURL, "contract", contractAddress)
	return &Client{
		baseURL:    baseURL,
		contract:   contractAddress,
		httpClient: &http.Client{},
	}
}

// ContractAddress returns the deployed contract address
func (c *Client) ContractAddress() string {
	return c.contract
}

type bridgeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type assembleResponse struct {
	Success         bool         `json:"success"`
	TransactionHash string       `json:"transactionHash"`
	Error           *bridgeError `json:"error,omitempty"`
}

// AssembleWatch submits the mint transaction through the wallet bridge.
func (c *Client) AssembleWatch(ctx context.Context, mintReq *MintRequest) (*MintReceipt, error) {
	slog.Info("mint_submitted",
		"watch_id", mintReq.WatchID,
		"component_count", len(mintReq.ComponentIDs),
		"metadata_uri", mintReq.MetadataURI,
	)

	body, err := json.Marshal(mintReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode mint request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contract/"+c.contract+"/assemble", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("mint_request_failed", "watch_id", mintReq.WatchID, "error", err)
		return nil, errors.Wrap(err, "wallet bridge request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		slog.Error("ledger_unavailable", "watch_id", mintReq.WatchID)
		return nil, ErrUnavailable
	}

	var out assembleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		slog.Error("mint_decode_failed", "watch_id", mintReq.WatchID, "error", err)
		return nil, errors.Wrap(err, "failed to decode bridge response")
	}

	if !out.Success {
		code, message := "", "unknown bridge failure"
		if out.Error != nil {
			code, message = out.Error.Code, out.Error.Message
		}
		err := classify(code, message)
		slog.Error("mint_failed", "watch_id", mintReq.WatchID, "code", code, "error", err)
		return nil, err
	}

	slog.Info("mint_confirmed", "watch_id", mintReq.WatchID, "tx_hash", out.TransactionHash)
	return &MintReceipt{TransactionHash: out.TransactionHash}, nil
}

type tokenResponse struct {
	Found   bool  `json:"found"`
	TokenID int64 `json:"tokenId"`
}

// WatchTokenID resolves the minted token id by watch id.
func (c *Client) WatchTokenID(ctx context.Context, watchID string) (int64, error) {
	url := fmt.Sprintf("%s/contract/%s/watch/%s/token", c.baseURL, c.contract, watchID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "wallet bridge request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, ErrTokenNotFound
	}

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, errors.Wrap(err, "failed to decode token response")
	}
	if !out.Found {
		return 0, ErrTokenNotFound
	}

	slog.Info("token_resolved", "watch_id", watchID, "token_id", out.TokenID)
	return out.TokenID, nil
}

type totalResponse struct {
	Count int64 `json:"count"`
}

// TotalMinted reads the contract's total-minted counter.
func (c *Client) TotalMinted(ctx context.Context) (int64, error) {
	url := fmt.Sprintf("%s/contract/%s/total-minted", c.baseURL, c.contract)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "wallet bridge request failed")
	}
	defer resp.Body.Close()

	var out totalResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, errors.Wrap(err, "failed to decode total-minted response")
	}

	return out.Count, nil
}
