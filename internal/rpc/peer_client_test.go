package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/thanhnp/ledger-node/internal/models"
	"github.com/thanhnp/ledger-node/internal/version"
)

func serve(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func chainHandler(resp models.ChainResponse, ver string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chain" {
			http.NotFound(w, r)
			return
		}
		if ver != "" {
			w.Header().Set(version.Header, ver)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func TestFetchChain(t *testing.T) {
	want := models.ChainResponse{
		Chain: []models.Block{
			{Index: 1, Proof: 100, PreviousHash: "1", Transactions: []models.Transaction{}},
			{Index: 2, Proof: 35293, PreviousHash: "abc", Transactions: []models.Transaction{{Sender: "A", Recipient: "B", Amount: 10}}},
		},
		Length: 2,
	}
	peer := serve(t, chainHandler(want, "1.3.0"))

	got, err := NewPeerClient(time.Second).FetchChain(context.Background(), peer)
	if err != nil {
		t.Fatal(err)
	}
	if got.Length != 2 || got.Chain[1].Transactions[0].Amount != 10 || got.Chain[1].PreviousHash != "abc" {
		t.Fatalf("unexpected response %+v", got)
	}
}

func TestFetchChainFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: ErrBadStatus,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>not json"))
			},
			want: ErrMalformedBody,
		},
		{
			name:    "incompatible version",
			handler: chainHandler(models.ChainResponse{Chain: []models.Block{{Index: 1}}, Length: 1}, "2.0.0"),
			want:    ErrIncompatibleVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peer := serve(t, tt.handler)
			_, err := NewPeerClient(time.Second).FetchChain(context.Background(), peer)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFetchChainReturnsReportedLength(t *testing.T) {
	peer := serve(t, chainHandler(models.ChainResponse{Chain: []models.Block{{Index: 1}}, Length: 5}, ""))

	got, err := NewPeerClient(time.Second).FetchChain(context.Background(), peer)
	if err != nil {
		t.Fatal(err)
	}
	if got.Length != 5 || len(got.Chain) != 1 {
		t.Fatalf("body rewritten: length %d, %d blocks", got.Length, len(got.Chain))
	}
}

func TestFetchChainTimeout(t *testing.T) {
	release := make(chan struct{})
	peer := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	start := time.Now()
	_, err := NewPeerClient(100 * time.Millisecond).FetchChain(context.Background(), peer)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout not honoured, took %v", time.Since(start))
	}
}

func TestFetchChainUnreachable(t *testing.T) {
	if _, err := NewPeerClient(time.Second).FetchChain(context.Background(), "127.0.0.1:1"); err == nil {
		t.Fatal("expected connection error")
	}
}
