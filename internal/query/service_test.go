package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/defiscope/holderwatch/internal/core/domain"
	"github.com/defiscope/holderwatch/internal/infra/storage"
	"github.com/defiscope/holderwatch/internal/infra/storage/memory"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(v int) *int { return &v }

func seedRepo(t *testing.T, holdings map[string]string) *memory.HolderRepo {
	t.Helper()
	repo := memory.NewHolderRepo()
	for addr, amount := range holdings {
		h := &domain.Holder{
			Address:       addr,
			HoldingAmount: dec(amount),
			CurrentPrice:  dec("100"),
			CurrentValue:  dec(amount).Mul(dec("100")),
			DataSource:    "etherscan",
			CreatedAt:     time.Now(),
			LastUpdated:   time.Now(),
		}
		if err := repo.Upsert(context.Background(), h); err != nil {
			t.Fatalf("seed upsert: %v", err)
		}
	}
	return repo
}

func TestListHolders_Defaults(t *testing.T) {
	repo := seedRepo(t, map[string]string{
		"0xa": "5000",
		"0xb": "9000",
		"0xc": "1000", // below configured threshold
	})
	svc := NewService(repo, dec("3000"))

	page, err := svc.ListHolders(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.TotalElements != 2 {
		t.Fatalf("expected 2 elements above threshold, got %d", page.TotalElements)
	}
	if page.CurrentPage != 0 || page.PageSize != 20 {
		t.Errorf("unexpected paging defaults: page=%d size=%d", page.CurrentPage, page.PageSize)
	}
	if !page.First || !page.Last {
		t.Errorf("single page must be both first and last")
	}
	// Default sort is holding amount descending.
	if page.Content[0].Address != "0xb" || page.Content[1].Address != "0xa" {
		t.Errorf("unexpected order: %s, %s", page.Content[0].Address, page.Content[1].Address)
	}
}

func TestListHolders_Pagination(t *testing.T) {
	repo := seedRepo(t, map[string]string{
		"0xa": "5000",
		"0xb": "9000",
		"0xc": "7000",
	})
	svc := NewService(repo, dec("3000"))

	first, err := svc.ListHolders(context.Background(), ListParams{Size: intPtr(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalElements != 3 || first.TotalPages != 2 {
		t.Fatalf("expected 3 elements over 2 pages, got %d over %d", first.TotalElements, first.TotalPages)
	}
	if !first.First || first.Last {
		t.Errorf("page 0 of 2 must be first and not last")
	}

	second, err := svc.ListHolders(context.Background(), ListParams{Page: intPtr(1), Size: intPtr(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.Content) != 1 || second.Content[0].Address != "0xa" {
		t.Errorf("unexpected trailing page content")
	}
	if second.First || !second.Last {
		t.Errorf("page 1 of 2 must be last and not first")
	}
}

func TestListHolders_MinHoldingOverride(t *testing.T) {
	repo := seedRepo(t, map[string]string{
		"0xa": "5000",
		"0xc": "1000",
	})
	svc := NewService(repo, dec("3000"))

	min := dec("500")
	page, err := svc.ListHolders(context.Background(), ListParams{MinHolding: &min})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.TotalElements != 2 {
		t.Errorf("explicit threshold must replace the default, got %d elements", page.TotalElements)
	}
}

func TestListHolders_Validation(t *testing.T) {
	svc := NewService(memory.NewHolderRepo(), dec("3000"))

	cases := []struct {
		name   string
		params ListParams
	}{
		{"negative page", ListParams{Page: intPtr(-1)}},
		{"zero size", ListParams{Size: intPtr(0)}},
		{"oversized page", ListParams{Size: intPtr(201)}},
		{"unknown sort field", ListParams{SortBy: "created_at"}},
		{"unknown order", ListParams{Order: "sideways"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ListHolders(context.Background(), tc.params); !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
}

func TestGetHolder_NotFound(t *testing.T) {
	svc := NewService(memory.NewHolderRepo(), dec("3000"))
	if _, err := svc.GetHolder(context.Background(), "0xmissing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected storage.ErrNotFound, got %v", err)
	}
}

func TestListHolders_EmptyRepo(t *testing.T) {
	svc := NewService(memory.NewHolderRepo(), dec("3000"))
	page, err := svc.ListHolders(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.TotalElements != 0 || len(page.Content) != 0 {
		t.Errorf("expected empty page, got %+v", page)
	}
	if !page.First {
		t.Errorf("empty result is still the first page")
	}
}
