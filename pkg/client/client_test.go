package client

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/bioetl/chembl-extract/internal/testutil"
	"github.com/bioetl/chembl-extract/pkg/breaker"
	"github.com/bioetl/chembl-extract/pkg/descriptor"
)

func TestNew_Validation(t *testing.T) {
	t.Run("missing user-agent", func(t *testing.T) {
		_, err := New(Config{})
		if err == nil {
			t.Fatal("expected error for missing user-agent")
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		c, err := New(Config{UserAgent: "test/1.0 (dev@example.com)"})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if c.BaseURL() != DefaultBaseURL {
			t.Errorf("BaseURL = %q, want %q", c.BaseURL(), DefaultBaseURL)
		}
	})

	t.Run("trailing slash trimmed", func(t *testing.T) {
		c, err := New(Config{
			UserAgent: "test/1.0 (dev@example.com)",
			BaseURL:   "https://example.com/api/",
		})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if c.BaseURL() != "https://example.com/api" {
			t.Errorf("BaseURL = %q, want trailing slash removed", c.BaseURL())
		}
	})
}

func newTestClient(t *testing.T, mock *testutil.MockAPI, brk *breaker.Breaker) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL:   mock.URL(),
		UserAgent: "chembl-extract-test/1.0 (dev@example.com)",
		Timeout:   5 * time.Second,
		Breaker:   brk,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestGetJSON(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	d, ok := descriptor.Lookup("molecule")
	if !ok {
		t.Fatal("molecule descriptor not registered")
	}
	mock.Seed(d, []map[string]any{
		{"molecule_chembl_id": "CHEMBL25", "pref_name": "ASPIRIN"},
	})

	c := newTestClient(t, mock, nil)

	params := url.Values{}
	params.Set(d.FilterParam, "CHEMBL25")
	envelope, err := c.GetJSON(context.Background(), d.Endpoint, params)
	if err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}

	items, ok := envelope[d.ItemsKey].([]any)
	if !ok {
		t.Fatalf("envelope missing %q items array: %v", d.ItemsKey, envelope)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	first := items[0].(map[string]any)
	if first["pref_name"] != "ASPIRIN" {
		t.Errorf("pref_name = %v, want ASPIRIN", first["pref_name"])
	}
}

func TestGetJSON_ClientErrorNoRetry(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.FailWith("/molecule.json", 404)

	c := newTestClient(t, mock, nil)

	_, err := c.GetJSON(context.Background(), "/molecule.json", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != 404 || apiErr.ErrorClass != ErrorClassClient {
		t.Errorf("got status=%d class=%q, want 404/client", apiErr.StatusCode, apiErr.ErrorClass)
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("expected exactly 1 request for a 4xx, got %d", got)
	}
}

func TestGetJSON_BreakerOpen(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	brk, err := breaker.New(breaker.Config{FailureThreshold: 1, Cooldown: time.Hour}, breaker.NewMemoryStore())
	if err != nil {
		t.Fatalf("breaker.New failed: %v", err)
	}
	c := newTestClient(t, mock, brk)

	ctx := context.Background()
	brk.RecordFailure(ctx)

	_, err = c.GetJSON(ctx, "/molecule.json", nil)
	if !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("expected breaker.ErrOpen, got %v", err)
	}
	var openErr *breaker.OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected *breaker.OpenError, got %v", err)
	}
	if got := mock.GetRequestCount(); got != 0 {
		t.Errorf("open breaker must short-circuit before the network, got %d requests", got)
	}
}

func TestStatus(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	c := newTestClient(t, mock, nil)

	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.ChEMBLDBVersion != "ChEMBL_34" {
		t.Errorf("ChEMBLDBVersion = %q, want ChEMBL_34", status.ChEMBLDBVersion)
	}
	if status.APIVersion != "2.0" {
		t.Errorf("APIVersion = %q, want 2.0", status.APIVersion)
	}
}
