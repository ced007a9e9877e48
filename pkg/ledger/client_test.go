package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func bridgeStub(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "0xCONTRACT")
}

func TestClient_AssembleWatchSuccess(t *testing.T) {
	var got MintRequest
	client := bridgeStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contract/0xCONTRACT/assemble" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{
			"success":         true,
			"transactionHash": "0xdeadbeef",
		})
	})

	receipt, err := client.AssembleWatch(context.Background(), &MintRequest{
		WatchID:      "watch-1",
		ComponentIDs: []string{"C-1", "C-2", "C-3"},
		MetadataURI:  "ipfs://meta/abc",
	})
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if receipt.TransactionHash != "0xdeadbeef" {
		t.Errorf("unexpected tx hash: %s", receipt.TransactionHash)
	}
	// Component order is preserved on the wire.
	if len(got.ComponentIDs) != 3 || got.ComponentIDs[0] != "C-1" || got.ComponentIDs[2] != "C-3" {
		t.Errorf("component order mangled: %v", got.ComponentIDs)
	}
}

func TestClient_AssembleWatchClassification(t *testing.T) {
	tests := []struct {
		code      string
		wantErr   error
		wantFatal bool
	}{
		{"USER_REJECTED", ErrUserRejected, true},
		{"DUPLICATE_WATCH_ID", ErrDuplicateWatchID, true},
		{"INSUFFICIENT_COMPONENTS", ErrInsufficientComponents, true},
		{"EMPTY_METADATA", ErrEmptyMetadata, true},
		{"INSUFFICIENT_GAS", nil, false},
		{"TX_DROPPED", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			client := bridgeStub(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"error":   map[string]string{"code": tt.code, "message": "bridge says no"},
				})
			})

			_, err := client.AssembleWatch(context.Background(), &MintRequest{WatchID: "watch-1"})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
			if Fatal(err) != tt.wantFatal {
				t.Errorf("Fatal(%v) = %v, want %v", err, Fatal(err), tt.wantFatal)
			}
		})
	}
}

func TestClient_AssembleWatchUnavailable(t *testing.T) {
	client := bridgeStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.AssembleWatch(context.Background(), &MintRequest{WatchID: "watch-1"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
	if !Fatal(err) {
		t.Error("unavailable ledger must be fatal")
	}
}

func TestClient_WatchTokenID(t *testing.T) {
	client := bridgeStub(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/contract/0xCONTRACT/watch/watch-1/token":
			json.NewEncoder(w).Encode(map[string]any{"found": true, "tokenId": 7})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	id, err := client.WatchTokenID(context.Background(), "watch-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if id != 7 {
		t.Errorf("got token id %d, want 7", id)
	}

	if _, err := client.WatchTokenID(context.Background(), "ghost"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("got %v, want ErrTokenNotFound", err)
	}
}

func TestClient_TotalMinted(t *testing.T) {
	client := bridgeStub(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"count": 42})
	})

	count, err := client.TotalMinted(context.Background())
	if err != nil {
		t.Fatalf("total-minted failed: %v", err)
	}
	if count != 42 {
		t.Errorf("got %d, want 42", count)
	}
}
