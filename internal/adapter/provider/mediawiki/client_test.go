package mediawiki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/config"
	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(apiURL string) *Client {
	return NewClient(config.WikiConfig{
		APIURL:      apiURL,
		UserAgent:   "catalogsync-test/1.0",
		Timeout:     5 * time.Second,
		MinInterval: config.MinRequestInterval,
	}, newTestLogger())
}

func TestClient_FetchBatch_Success(t *testing.T) {
	t.Parallel()

	body := `{
		"batchcomplete": true,
		"query": {
			"normalized": [{"fromencoded": false, "from": "twin_Mill", "to": "Twin Mill"}],
			"redirects": [{"from": "Twin Mill", "to": "Twin Mill (2024)"}],
			"pages": [
				{"pageid": 1, "ns": 0, "title": "4-Loop Crashout",
				 "revisions": [{"slots": {"main": {"contentmodel": "wikitext", "content": "{{casting|name=4-Loop Crashout}}"}}}]},
				{"pageid": 2, "ns": 0, "title": "Twin Mill (2024)",
				 "revisions": [{"content": "{{casting|name=Twin Mill}}"}]},
				{"pageid": 3, "ns": 0, "title": "Empty Page", "revisions": []},
				{"ns": 0, "title": "Nope", "missing": true}
			]
		}
	}`

	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "catalogsync-test/1.0" {
			t.Errorf("User-Agent = %q", ua)
		}
		gotQuery.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	titles := []domain.PageTitle{"4-Loop Crashout", "twin_Mill", "Empty Page", "Nope"}
	got, err := c.FetchBatch(context.Background(), titles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := gotQuery.Load().(url.Values)
	wantParams := map[string]string{
		"action":        "query",
		"titles":        "4-Loop Crashout|twin_Mill|Empty Page|Nope",
		"prop":          "revisions",
		"rvprop":        "content",
		"format":        "json",
		"formatversion": "2",
		"redirects":     "1",
	}
	for k, want := range wantParams {
		if v := q[k]; len(v) != 1 || v[0] != want {
			t.Errorf("param %s = %v, want %q", k, v, want)
		}
	}

	if len(got) != len(titles) {
		t.Fatalf("len(results) = %d, want %d", len(got), len(titles))
	}

	loop := got["4-Loop Crashout"].Page
	if !loop.Exists || loop.RawContent != "{{casting|name=4-Loop Crashout}}" {
		t.Errorf("4-Loop Crashout = %+v", loop)
	}
	if loop.FetchedAt.IsZero() {
		t.Error("FetchedAt should be set")
	}

	mill := got["twin_Mill"].Page
	if !mill.Exists || mill.ResolvedTitle != "Twin Mill (2024)" || mill.RawContent != "{{casting|name=Twin Mill}}" {
		t.Errorf("redirected page = %+v", mill)
	}

	empty := got["Empty Page"].Page
	if !empty.Exists || empty.RawContent != "" {
		t.Errorf("page without revisions = %+v, want exists with empty content", empty)
	}

	nope := got["Nope"]
	if nope.Page.Exists || nope.Err != nil {
		t.Errorf("missing page = %+v, want Exists=false and no error", nope)
	}
}

func TestClient_FetchBatch_AbsentFromResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query": {"pages": []}}`))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchBatch(context.Background(), []domain.PageTitle{"Ghost"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r, ok := got["Ghost"]; !ok || r.Page.Exists {
		t.Errorf("Ghost = %+v, ok=%v; want present with Exists=false", r, ok)
	}
}

func TestClient_FetchBatch_FollowsContinue(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		starts   []time.Time
		calls    atomic.Int32
		gotCont  atomic.Value
		gotTitle atomic.Value
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		q := r.URL.Query()
		switch n {
		case 1:
			w.Write([]byte(`{
				"continue": {"rvcontinue": "123|456", "continue": "||"},
				"query": {"pages": [
					{"pageid": 1, "title": "Alpha", "revisions": [{"content": "{{casting|name=Alpha}}"}]},
					{"pageid": 2, "title": "Beta"}
				]}
			}`))
		default:
			gotCont.Store(q.Get("rvcontinue"))
			gotTitle.Store(q.Get("titles"))
			w.Write([]byte(`{
				"batchcomplete": true,
				"query": {"pages": [
					{"pageid": 1, "title": "Alpha"},
					{"pageid": 2, "title": "Beta", "revisions": [{"content": "{{casting|name=Beta}}"}]}
				]}
			}`))
		}
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchBatch(context.Background(), []domain.PageTitle{"Alpha", "Beta"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("requests = %d, want 2", n)
	}
	if v, _ := gotCont.Load().(string); v != "123|456" {
		t.Errorf("rvcontinue = %q, want 123|456", v)
	}
	if v, _ := gotTitle.Load().(string); v != "Alpha|Beta" {
		t.Errorf("continued titles = %q, want Alpha|Beta", v)
	}
	mu.Lock()
	gap := starts[1].Sub(starts[0])
	mu.Unlock()
	if gap < config.MinRequestInterval-5*time.Millisecond {
		t.Errorf("gap between continued requests = %v, want >= %v", gap, config.MinRequestInterval)
	}

	alpha := got["Alpha"]
	if alpha.Err != nil || alpha.Page.RawContent != "{{casting|name=Alpha}}" {
		t.Errorf("Alpha = %+v, want content from the first response", alpha)
	}
	beta := got["Beta"]
	if beta.Err != nil || !beta.Page.Exists || beta.Page.RawContent != "{{casting|name=Beta}}" {
		t.Errorf("Beta = %+v, want content from the continued response", beta)
	}
}

func TestClient_FetchBatch_ContinueExhausted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{
			"continue": {"rvcontinue": "1|1", "continue": "||"},
			"query": {"pages": [
				{"pageid": 1, "title": "Alpha", "revisions": [{"content": "x"}]},
				{"pageid": 2, "title": "Beta"}
			]}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.pacer = newPacer(0)

	got, err := c.FetchBatch(context.Background(), []domain.PageTitle{"Alpha", "Beta"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := calls.Load(); n != maxContinuations+1 {
		t.Errorf("requests = %d, want %d", n, maxContinuations+1)
	}
	if got["Alpha"].Err != nil || got["Alpha"].Page.RawContent != "x" {
		t.Errorf("Alpha = %+v", got["Alpha"])
	}
	if err := got["Beta"].Err; !errors.Is(err, domain.ErrTransport) {
		t.Errorf("Beta err = %v, want ErrTransport", err)
	}
}

func TestClient_FetchBatch_TooManyTitles(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	titles := make([]domain.PageTitle, MaxBatchSize+1)
	for i := range titles {
		titles[i] = domain.PageTitle(fmt.Sprintf("Page %d", i))
	}

	_, err := newTestClient(srv.URL).FetchBatch(context.Background(), titles)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if errors.Is(err, domain.ErrTransport) {
		t.Error("oversized batch must not be retryable")
	}
	if calls.Load() != 0 {
		t.Errorf("server calls = %d, want 0", calls.Load())
	}
}

func TestClient_FetchBatch_Empty(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchBatch(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v; want empty map", got, err)
	}
	if calls.Load() != 0 {
		t.Errorf("server calls = %d, want 0", calls.Load())
	}
}

func TestClient_FetchBatch_TransportErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{"server error", http.StatusServiceUnavailable, "", true},
		{"bad gateway", http.StatusBadGateway, "", true},
		{"throttled", http.StatusTooManyRequests, "", true},
		{"truncated body", http.StatusOK, `{"query": {"pages": [`, true},
		{"forbidden", http.StatusForbidden, "", false},
		{"api error", http.StatusOK, `{"error": {"code": "badvalue", "info": "Unrecognized value"}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := newTestClient(srv.URL).FetchBatch(context.Background(), []domain.PageTitle{"A", "B"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got != nil {
				t.Errorf("results = %v, want nil on batch failure", got)
			}
			if errors.Is(err, domain.ErrTransport) != tt.retryable {
				t.Errorf("errors.Is(err, ErrTransport) = %v, want %v (err: %v)", !tt.retryable, tt.retryable, err)
			}

			var te *domain.TransportError
			if tt.retryable && tt.status != http.StatusOK {
				if !errors.As(err, &te) || te.Status != tt.status {
					t.Errorf("TransportError = %+v, want status %d", te, tt.status)
				}
			}
		})
	}
}

func TestClient_FetchBatch_ConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := newTestClient(addr).FetchBatch(context.Background(), []domain.PageTitle{"A"})
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestClient_PacesAfterFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"query": {"pages": [{"title": "A", "revisions": [{"content": "x"}]}]}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	start := time.Now()

	if _, err := c.FetchBatch(context.Background(), []domain.PageTitle{"A"}); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("first call err = %v, want ErrTransport", err)
	}
	if _, err := c.FetchBatch(context.Background(), []domain.PageTitle{"A"}); err != nil {
		t.Fatalf("second call err = %v", err)
	}

	if elapsed := time.Since(start); elapsed < config.MinRequestInterval {
		t.Errorf("two requests took %v, want >= %v between starts", elapsed, config.MinRequestInterval)
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2", calls.Load())
	}
}

func TestClient_IntervalFloor(t *testing.T) {
	t.Parallel()

	c := NewClient(config.WikiConfig{APIURL: "http://localhost", MinInterval: time.Millisecond}, newTestLogger())
	if c.pacer.interval != config.MinRequestInterval {
		t.Errorf("interval = %v, want floor %v", c.pacer.interval, config.MinRequestInterval)
	}
}

func TestClient_PacerHonoursContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query": {"pages": []}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.FetchBatch(context.Background(), []domain.PageTitle{"A"}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.FetchBatch(ctx, []domain.PageTitle{"B"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if errors.Is(err, domain.ErrTransport) {
		t.Error("cancellation must not look like a retryable transport failure")
	}
}

func TestClient_CategoryMembers_Pagination(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("list") != "categorymembers" || q.Get("cmtitle") != "Category:2024 Hot Wheels" {
			t.Errorf("unexpected query: %v", q)
		}
		if q.Get("cmlimit") != "500" {
			t.Errorf("cmlimit = %q, want 500", q.Get("cmlimit"))
		}
		switch calls.Add(1) {
		case 1:
			if q.Get("cmcontinue") != "" {
				t.Errorf("first page should not carry cmcontinue")
			}
			w.Write([]byte(`{"continue": {"cmcontinue": "page|B|2", "continue": "-||"},
				"query": {"categorymembers": [{"pageid": 1, "ns": 0, "title": "A"}]}}`))
		default:
			if q.Get("cmcontinue") != "page|B|2" || q.Get("continue") != "-||" {
				t.Errorf("continuation not forwarded: %v", q)
			}
			w.Write([]byte(`{"batchcomplete": true,
				"query": {"categorymembers": [{"pageid": 2, "ns": 0, "title": "B"}, {"pageid": 3, "ns": 0, "title": "C"}]}}`))
		}
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).CategoryMembers(context.Background(), "2024 Hot Wheels")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.PageTitle{"A", "B", "C"}
	if len(got) != len(want) {
		t.Fatalf("titles = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("titles[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2", calls.Load())
	}
}

func TestClient_CategoryMembers_Empty(t *testing.T) {
	t.Parallel()

	_, err := newTestClient("http://localhost").CategoryMembers(context.Background(), "  ")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}
