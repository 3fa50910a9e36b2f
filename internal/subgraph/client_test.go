package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_TotalFills(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "ordersMatchedGlobal") {
			t.Errorf("query missing ordersMatchedGlobal: %s", body)
		}
		fmt.Fprint(w, `{"data":{"ordersMatchedGlobal":{"tradesQuantity":"123456"}}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	total, err := client.TotalFills(context.Background())
	if err != nil {
		t.Fatalf("TotalFills failed: %v", err)
	}
	if total != 123456 {
		t.Errorf("TotalFills = %d, want 123456", total)
	}
}

func TestClient_FillsPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if !strings.Contains(req.Query, `id_gt: "fill-5"`) {
			t.Errorf("query missing cursor clause: %s", req.Query)
		}
		if !strings.Contains(req.Query, "first: 2") {
			t.Errorf("query missing page size: %s", req.Query)
		}
		if !strings.Contains(req.Query, "orderDirection: asc") {
			t.Errorf("query missing ascending order: %s", req.Query)
		}

		fmt.Fprint(w, `{"data":{"orderFilledEvents":[
			{"id":"fill-6","transactionHash":"0x1","timestamp":"1700000001","maker":"0xaa","taker":"0xbb",
			 "makerAssetId":"0","takerAssetId":"111","makerAmountFilled":"520000","takerAmountFilled":"1000000","fee":"0"},
			{"id":"fill-7","transactionHash":"0x2","timestamp":"1700000002","maker":"0xcc","taker":"0xdd",
			 "makerAssetId":"222","takerAssetId":"0","makerAmountFilled":"1000000","takerAmountFilled":"480000","fee":"100"}
		]}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	fills, err := client.FillsPage(context.Background(), "fill-5", 2)
	if err != nil {
		t.Fatalf("FillsPage failed: %v", err)
	}

	if len(fills) != 2 {
		t.Fatalf("len(fills) = %d, want 2", len(fills))
	}
	if fills[0].ID != "fill-6" {
		t.Errorf("fills[0].ID = %q, want %q", fills[0].ID, "fill-6")
	}
	if fills[0].MakerAmount != 520000 {
		t.Errorf("fills[0].MakerAmount = %d, want 520000", fills[0].MakerAmount)
	}
	if fills[1].Fee != 100 {
		t.Errorf("fills[1].Fee = %d, want 100", fills[1].Fee)
	}
}

func TestClient_FillsPage_NoCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), "id_gt") {
			t.Errorf("query should have no cursor clause: %s", body)
		}
		fmt.Fprint(w, `{"data":{"orderFilledEvents":[]}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	fills, err := client.FillsPage(context.Background(), "", 1000)
	if err != nil {
		t.Fatalf("FillsPage failed: %v", err)
	}
	if len(fills) != 0 {
		t.Errorf("len(fills) = %d, want 0", len(fills))
	}
}

func TestClient_RetriesTransportErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"data":{"ordersMatchedGlobal":{"tradesQuantity":"10"}}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetries(3, time.Millisecond))

	total, err := client.TotalFills(context.Background())
	if err != nil {
		t.Fatalf("TotalFills failed after retries: %v", err)
	}
	if total != 10 {
		t.Errorf("TotalFills = %d, want 10", total)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClient_GraphQLErrorsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"errors":[{"message":"query too deep"}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetries(3, time.Millisecond))

	_, err := client.TotalFills(context.Background())
	if err == nil {
		t.Fatal("TotalFills = nil error, want graphql error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (graphql errors are not retried)", got)
	}
}
