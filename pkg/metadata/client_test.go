package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Generate(t *testing.T) {
	var got WatchRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/watch" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"nftData": map[string]string{
				"metadataURI": "ipfs://meta/abc",
				"imageURI":    "ipfs://img/abc",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	nft, err := client.Generate(context.Background(), &WatchRecord{
		WatchID:      "watch-1",
		ComponentIDs: []string{"C-1", "C-2", "C-3"},
		Image:        "uploads/abc.png",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if nft.MetadataURI != "ipfs://meta/abc" || nft.ImageURI != "ipfs://img/abc" {
		t.Errorf("unexpected nft data: %+v", nft)
	}
	if !got.GenerateNFT {
		t.Error("generateNFT flag not set on the wire")
	}
	if len(got.ComponentIDs) != 3 || got.ComponentIDs[0] != "C-1" {
		t.Errorf("component ids not sent in order: %v", got.ComponentIDs)
	}
}

func TestClient_GenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	if _, err := client.Generate(context.Background(), &WatchRecord{WatchID: "watch-1"}); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestClient_GenerateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "duplicate record"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	if _, err := client.Generate(context.Background(), &WatchRecord{WatchID: "watch-1"}); err == nil {
		t.Error("expected error for rejected record")
	}
}

func TestClient_GenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 20*time.Millisecond)
	if _, err := client.Generate(context.Background(), &WatchRecord{WatchID: "watch-1"}); err == nil {
		t.Error("expected timeout error")
	}
}
