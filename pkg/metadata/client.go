// Package metadata talks to the off-chain metadata service. The service
// persists the watch record and returns the token metadata URIs used by
// the mint phase. A record, once generated, is never rolled back.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/luxtrace/assembler/pkg/errors"
)

// Client calls the metadata service over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a metadata service client with a bounded request
// timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	slog.Info("metadata_client_init", "base_url", baseURL, "timeout", timeout)
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WatchRecord is the off-chain record for one assembled watch.
type WatchRecord struct {
	WatchID          string   `json:"watchId"`
	ComponentIDs     []string `json:"componentIds"`
	Image            string   `json:"image"`
	Location         string   `json:"location"`
	Timestamp        string   `json:"timestamp"`
	AssemblerAddress string   `json:"assemblerAddress"`
	GenerateNFT      bool     `json:"generateNFT"`
}

// NFTData is the generated token metadata.
type NFTData struct {
	MetadataURI string `json:"metadataURI"`
	ImageURI    string `json:"imageURI"`
}

type generateResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
	NFTData NFTData `json:"nftData"`
}

// Generate persists the watch record and returns the token metadata.
func (c *Client) Generate(ctx context.Context, rec *WatchRecord) (*NFTData, error) {
	slog.Info("metadata_generate_start", "watch_id", rec.WatchID, "component_count", len(rec.ComponentIDs))

	rec.GenerateNFT = true
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode watch record")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/watch", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("metadata_request_failed", "watch_id", rec.WatchID, "error", err)
		return nil, errors.Wrap(err, "metadata service request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("metadata_bad_status", "watch_id", rec.WatchID, "status", resp.StatusCode)
		return nil, fmt.Errorf("metadata service returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		slog.Error("metadata_decode_failed", "watch_id", rec.WatchID, "error", err)
		return nil, errors.Wrap(err, "failed to decode metadata response")
	}
	if !out.Success {
		slog.Error("metadata_generate_rejected", "watch_id", rec.WatchID, "message", out.Message)
		return nil, fmt.Errorf("metadata service rejected record: %s", out.Message)
	}
	if out.NFTData.MetadataURI == "" {
		return nil, errors.New("metadata service returned empty metadata URI")
	}

	slog.Info("metadata_generate_complete", "watch_id", rec.WatchID, "metadata_uri", out.NFTData.MetadataURI)
	return &out.NFTData, nil
}
