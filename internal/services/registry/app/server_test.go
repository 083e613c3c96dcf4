package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func TestServer_CreateAndFetchAssetRoundTrip(t *testing.T) {
	dbPath := t.TempDir() + "/registry.db"
	t.Setenv("XRF_REGISTRY_DB_PATH", dbPath)

	srv, err := NewWithAddr("127.0.0.1:0")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(runCtx)
	}()
	t.Cleanup(func() {
		runCancel()
		select {
		case serveErr := <-serveDone:
			if serveErr != nil {
				t.Fatalf("serve: %v", serveErr)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for server shutdown")
		}
	})

	baseURL := "http://" + srv.Addr()
	payload, err := json.Marshal(map[string]string{
		"name":         "Solar Plant",
		"symbol":       "SOLAR",
		"organization": "3f2504e0-4f89-41d3-9a0c-0305e82c3301",
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, baseURL+"/v1/assets", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Xrf-User-Fingerprint", "owner-fp")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create asset: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create asset: status %d", resp.StatusCode)
	}
	var created struct {
		AssetID string `json:"asset_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.AssetID == "" {
		t.Fatal("expected asset id")
	}

	getResp, err := http.Get(baseURL + "/v1/assets/" + created.AssetID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get asset: status %d", getResp.StatusCode)
	}
	var asset struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(getResp.Body).Decode(&asset); err != nil {
		t.Fatalf("decode asset: %v", err)
	}
	if asset.Name != "Solar Plant" || asset.Symbol != "SOLAR" {
		t.Fatalf("asset mismatch: %+v", asset)
	}
}
