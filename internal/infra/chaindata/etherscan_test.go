package chaindata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/defiscope/holderwatch/internal/infra/rest"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := rest.NewClient("test", 5*time.Second, rest.RetryPolicy{MaxAttempts: 1, Delay: time.Millisecond})
	return NewProvider(client, Config{
		BaseURL:         server.URL,
		APIKey:          "test-key",
		ContractAddress: "0x7fc66500c84a76ad7e9c93437bfc5ac33e2ddae9",
		Decimals:        18,
	})
}

func TestBalance_ScalesDecimals(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("module") != "account" || q.Get("action") != "tokenbalance" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("apikey") != "test-key" {
			t.Errorf("missing api key")
		}
		// 5000 tokens in base units
		fmt.Fprint(w, `{"status": "1", "message": "OK", "result": "5000000000000000000000"}`)
	})

	balance, err := p.Balance(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance.String() != "5000" {
		t.Errorf("expected 5000, got %s", balance)
	}
}

func TestBalance_ProviderFailureIsZero(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "0", "message": "NOTOK", "result": "Max rate limit reached"}`)
	})

	balance, err := p.Balance(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("expected zero balance without error, got %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("expected zero, got %s", balance)
	}
}

func TestBalance_TransportFailurePropagates(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if _, err := p.Balance(context.Background(), "0xabc"); err == nil {
		t.Fatal("expected error after exhausted retries, got nil")
	}
}

const transferListBody = `{
	"status": "1", "message": "OK",
	"result": [
		{"blockNumber": "100", "timeStamp": "1609459200", "hash": "0xh1",
		 "from": "0xabc", "to": "0xdef", "value": "1000000000000000000"},
		{"blockNumber": "200", "timeStamp": "1609545600", "hash": "0xh2",
		 "from": "0xdef", "to": "0xABC", "value": "0"},
		{"blockNumber": "300", "timeStamp": "1609632000", "hash": "0xh3",
		 "from": "0xdef", "to": "0xABC", "value": "2000000000000000000000"}
	]
}`

func TestTransferHistory_ParsesAndScales(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("action") != "tokentx" || q.Get("sort") != "asc" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, transferListBody)
	})

	transfers := p.TransferHistory(context.Background(), "0xabc")
	if len(transfers) != 3 {
		t.Fatalf("expected 3 transfers, got %d", len(transfers))
	}
	if transfers[0].Amount.String() != "1" {
		t.Errorf("expected amount 1, got %s", transfers[0].Amount)
	}
	if got := transfers[0].Timestamp.Unix(); got != 1609459200 {
		t.Errorf("expected timestamp 1609459200, got %d", got)
	}
}

func TestTransferHistory_FailureIsEmpty(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if transfers := p.TransferHistory(context.Background(), "0xabc"); len(transfers) != 0 {
		t.Errorf("expected empty history on failure, got %d transfers", len(transfers))
	}
}

func TestFirstIncomingTransfer(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, transferListBody)
	})

	// Outgoing and zero-value transfers are skipped; the match is
	// case-insensitive on the destination.
	first := p.FirstIncomingTransfer(context.Background(), "0xabc")
	if first == nil {
		t.Fatal("expected a first incoming transfer")
	}
	if first.TxHash != "0xh3" {
		t.Errorf("expected 0xh3, got %s", first.TxHash)
	}
	if first.Amount.String() != "2000" {
		t.Errorf("expected amount 2000, got %s", first.Amount)
	}
}

func TestFirstIncomingTransfer_None(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "0", "message": "No transactions found", "result": []}`)
	})

	if first := p.FirstIncomingTransfer(context.Background(), "0xabc"); first != nil {
		t.Errorf("expected nil, got %+v", first)
	}
}

func TestCandidateAddresses_Dedupes(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("sort") != "desc" {
			t.Errorf("expected descending feed, got sort=%s", q.Get("sort"))
		}
		fmt.Fprint(w, `{
			"status": "1", "message": "OK",
			"result": [
				{"blockNumber": "3", "timeStamp": "3", "hash": "0xh3", "from": "0xa", "to": "0xdef", "value": "1"},
				{"blockNumber": "2", "timeStamp": "2", "hash": "0xh2", "from": "0xb", "to": "0xghi", "value": "1"},
				{"blockNumber": "1", "timeStamp": "1", "hash": "0xh1", "from": "0xc", "to": "0xdef", "value": "1"}
			]
		}`)
	})

	addrs, err := p.CandidateAddresses(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addrs) != 2 {
		t.Fatalf("expected 2 unique addresses, got %d: %v", len(addrs), addrs)
	}
	if addrs[0] != "0xdef" || addrs[1] != "0xghi" {
		t.Errorf("unexpected order: %v", addrs)
	}
}

func TestCandidateAddresses_TransportFailure(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if _, err := p.CandidateAddresses(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
}
