package clob

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Book(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token_id"); got != "tok-1" {
			t.Errorf("token_id param = %q, want %q", got, "tok-1")
		}

		resp := map[string]any{
			"market":    "0xabc",
			"asset_id":  "tok-1",
			"timestamp": "1700000000000",
			"bids":      []map[string]string{{"price": "0.52", "size": "100"}},
			"asks":      []map[string]string{{"price": "0.55", "size": "50"}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTimeout(5*time.Second))

	book, err := client.Book(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	if book.AssetID != "tok-1" {
		t.Errorf("AssetID = %q, want %q", book.AssetID, "tok-1")
	}
	if len(book.Bids) != 1 || book.Bids[0].Price != "0.52" {
		t.Errorf("Bids = %v, want one level at 0.52", book.Bids)
	}
	if len(book.Asks) != 1 || book.Asks[0].Size != "50" {
		t.Errorf("Asks = %v, want one level of size 50", book.Asks)
	}
}

func TestClient_Book_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetries(1, time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Book(ctx, "tok-1"); err == nil {
		t.Fatal("Book = nil error, want timeout error")
	}
}
