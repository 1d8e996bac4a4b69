package indexer

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

func TestFetchOrders(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Failed to read body: %v", err)
		}
		// Wallet must be lowercased into the creator filter
		if !strings.Contains(string(body), `creator: \"0xabcdef\"`) {
			t.Errorf("Query missing lowercased creator filter: %s", body)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"data": {
				"orders": [
					{
						"id": "order-1",
						"amount": "2500000",
						"outcomeIndex": "1",
						"timestamp": "1764300000",
						"price": "0.55",
						"market": {
							"title": "Will X happen?",
							"outcomes": ["Yes", "No"],
							"conditionId": "cond-1"
						}
					}
				]
			}
		}`)
	}))
	defer mockServer.Close()

	client := NewClient(mockServer.URL, 5*time.Second, 3, time.Millisecond)

	orders, err := client.FetchOrders(context.Background(), "0xABCdef", 10)
	if err != nil {
		t.Fatalf("FetchOrders failed: %v", err)
	}

	if len(orders) != 1 {
		t.Fatalf("Expected 1 order, got %d", len(orders))
	}
	o := orders[0]
	if o.ID != "order-1" {
		t.Errorf("Expected order ID 'order-1', got %q", o.ID)
	}
	if o.Amount != "2500000" {
		t.Errorf("Expected raw amount string '2500000', got %q", o.Amount)
	}
	if o.Market.ConditionID != "cond-1" {
		t.Errorf("Expected condition ID 'cond-1', got %q", o.Market.ConditionID)
	}
	if len(o.Market.Outcomes) != 2 || o.Market.Outcomes[1] != "No" {
		t.Errorf("Unexpected outcomes: %v", o.Market.Outcomes)
	}
}

func TestFetchOrdersRetriesServerErrors(t *testing.T) {
	var calls int32
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": {"orders": []}}`)
	}))
	defer mockServer.Close()

	client := NewClient(mockServer.URL, 5*time.Second, 3, time.Millisecond)

	orders, err := client.FetchOrders(context.Background(), "0xabc", 10)
	if err != nil {
		t.Fatalf("FetchOrders should succeed after retry: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("Expected empty orders, got %d", len(orders))
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("Expected 2 calls (1 failure + 1 retry), got %d", calls)
	}
}

func TestFetchOrdersDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer mockServer.Close()

	client := NewClient(mockServer.URL, 5*time.Second, 3, time.Millisecond)

	if _, err := client.FetchOrders(context.Background(), "0xabc", 10); err == nil {
		t.Fatal("Expected error for 400 response")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected exactly 1 call for a client error, got %d", calls)
	}
}

func TestFetchOrdersSurfacesGraphQLErrors(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]string{{"message": "indexing in progress"}},
		}); err != nil {
			t.Errorf("Failed to encode response: %v", err)
		}
	}))
	defer mockServer.Close()

	client := NewClient(mockServer.URL, 5*time.Second, 3, time.Millisecond)

	_, err := client.FetchOrders(context.Background(), "0xabc", 10)
	if err == nil {
		t.Fatal("Expected error for GraphQL errors response")
	}
	if !strings.Contains(err.Error(), "indexing in progress") {
		t.Errorf("Expected subgraph error message, got: %v", err)
	}
}
