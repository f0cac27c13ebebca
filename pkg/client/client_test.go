package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/pkg/errors"

	"github.com/battkit/ocvd/pkg/api"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(strings.TrimPrefix(srv.URL, "http://"))
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(api.HealthResponse{OK: true})
	}))

	if err := c.Health(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCurvesRoundTrip(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.CurvesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.PristineID != "cell-a" || req.LLI != 0.1 {
			t.Errorf("unexpected request %+v", req)
		}
		json.NewEncoder(w).Encode(api.CurvesResponse{PristineID: req.PristineID})
	}))

	resp, err := c.Curves(api.CurvesRequest{PristineID: "cell-a", LLI: 0.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.PristineID != "cell-a" {
		t.Errorf("got %q", resp.PristineID)
	}
}

func TestNotFoundMapsToSentinel(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "unknown pristine_id: nope"})
	}))

	_, err := c.Catalog()
	if !pkgerrors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "unknown pristine_id") {
		t.Errorf("error %q lost the server message", err)
	}
}

func TestServerErrorCarriesMessage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "catalog unreadable"})
	}))

	err := c.Health()
	if err == nil || !strings.Contains(err.Error(), "catalog unreadable") {
		t.Errorf("got %v, want the server error message", err)
	}
}

func TestDaemonNotRunning(t *testing.T) {
	// Grab a port with no listener behind it.
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	c := NewClient(addr)
	if err := c.Health(); !pkgerrors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("got %v, want ErrDaemonNotRunning", err)
	}
}
