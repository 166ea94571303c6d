package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/defiscope/holderwatch/internal/core/domain"
	"github.com/defiscope/holderwatch/internal/infra/storage/memory"
	"github.com/defiscope/holderwatch/internal/query"
	"github.com/defiscope/holderwatch/internal/reconcile"
)

// stubSync implements SyncRunner.
type stubSync struct {
	result *domain.SyncResult
	err    error
}

func (s *stubSync) Sync(context.Context) (*domain.SyncResult, error) {
	return s.result, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Health(context.Context) error { return p.err }

func newTestServer(t *testing.T, sync SyncRunner, repo *memory.HolderRepo) *httptest.Server {
	t.Helper()
	if repo == nil {
		repo = memory.NewHolderRepo()
	}
	svc := query.NewService(repo, decimal.NewFromInt(3000))
	srv := NewServer(0, sync, svc, nil)
	ts := httptest.NewServer(srv.server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func TestHandleSync_Completed(t *testing.T) {
	sync := &stubSync{result: &domain.SyncResult{
		RunID:     "run-1",
		Processed: 10,
		Succeeded: 8,
		Failed:    2,
	}}
	ts := newTestServer(t, sync, nil)

	resp, err := http.Post(ts.URL+"/holders/sync", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)
	if env.Code != http.StatusOK {
		t.Errorf("envelope code: expected 200, got %d", env.Code)
	}
	data, _ := json.Marshal(env.Data)
	var result domain.SyncResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decode sync result: %v", err)
	}
	if result.RunID != "run-1" || result.Processed != 10 || result.Failed != 2 {
		t.Errorf("unexpected result payload: %+v", result)
	}
}

func TestHandleSync_Conflict(t *testing.T) {
	ts := newTestServer(t, &stubSync{err: reconcile.ErrSyncInProgress}, nil)

	resp, err := http.Post(ts.URL+"/holders/sync", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)
	if env.Message != "sync already in progress" {
		t.Errorf("unexpected message: %q", env.Message)
	}
}

func TestHandleSync_Aborted(t *testing.T) {
	sync := &stubSync{
		result: &domain.SyncResult{RunID: "run-2"},
		err:    reconcile.ErrRunAborted,
	}
	ts := newTestServer(t, sync, nil)

	resp, err := http.Post(ts.URL+"/holders/sync", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)
	if env.Data == nil {
		t.Errorf("aborted response must still carry the run summary")
	}
}

func TestHandleList_OK(t *testing.T) {
	repo := memory.NewHolderRepo()
	now := time.Now()
	for _, h := range []*domain.Holder{
		{Address: "0xa", HoldingAmount: decimal.NewFromInt(5000), CreatedAt: now, LastUpdated: now},
		{Address: "0xb", HoldingAmount: decimal.NewFromInt(9000), CreatedAt: now, LastUpdated: now},
	} {
		if err := repo.Upsert(context.Background(), h); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	ts := newTestServer(t, &stubSync{}, repo)

	resp, err := http.Get(ts.URL + "/holders?size=1&sortBy=holdingAmount&order=desc")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)
	data, _ := json.Marshal(env.Data)
	var page domain.Page[*domain.Holder]
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.TotalElements != 2 || page.TotalPages != 2 || len(page.Content) != 1 {
		t.Fatalf("unexpected page shape: %+v", page)
	}
	if page.Content[0].Address != "0xb" {
		t.Errorf("expected largest holding first, got %s", page.Content[0].Address)
	}
}

func TestHandleList_BadParams(t *testing.T) {
	ts := newTestServer(t, &stubSync{}, nil)

	for _, q := range []string{
		"?page=abc",
		"?size=xyz",
		"?minHolding=notanumber",
		"?page=-1",
		"?sortBy=createdAt",
		"?order=diagonal",
	} {
		resp, err := http.Get(ts.URL + "/holders" + q)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestHandleGet_OK(t *testing.T) {
	repo := memory.NewHolderRepo()
	now := time.Now()
	pct := decimal.RequireFromString("212.5")
	h := &domain.Holder{
		Address:              "0xabc",
		HoldingAmount:        decimal.NewFromInt(5000),
		ProfitLossPercentage: &pct,
		CreatedAt:            now,
		LastUpdated:          now,
	}
	if err := repo.Upsert(context.Background(), h); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ts := newTestServer(t, &stubSync{}, repo)

	resp, err := http.Get(ts.URL + "/holders/0xabc")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)
	data, _ := json.Marshal(env.Data)
	var got domain.Holder
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode holder: %v", err)
	}
	if got.Address != "0xabc" || got.ProfitLossPercentage == nil {
		t.Errorf("unexpected holder payload: %+v", got)
	}
}

func TestHandleGet_NotFound(t *testing.T) {
	ts := newTestServer(t, &stubSync{}, nil)

	resp, err := http.Get(ts.URL + "/holders/0xmissing")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)
	if env.Message != "holder not found for address: 0xmissing" {
		t.Errorf("unexpected message: %q", env.Message)
	}
}

func TestHandleHealth(t *testing.T) {
	svc := query.NewService(memory.NewHolderRepo(), decimal.NewFromInt(3000))

	t.Run("healthy", func(t *testing.T) {
		srv := NewServer(0, &stubSync{}, svc, map[string]Pinger{
			"database": stubPinger{},
		})
		ts := httptest.NewServer(srv.server.Handler)
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/health")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("unhealthy dependency", func(t *testing.T) {
		srv := NewServer(0, &stubSync{}, svc, map[string]Pinger{
			"database": stubPinger{err: errors.New("connection refused")},
			"redis":    stubPinger{},
		})
		ts := httptest.NewServer(srv.server.Handler)
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/health")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", resp.StatusCode)
		}
		env := decodeEnvelope(t, resp)
		if env.Message != "unhealthy" {
			t.Errorf("unexpected message: %q", env.Message)
		}
	})
}
