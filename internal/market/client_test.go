package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestNormalizeAsset(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "gram altın", "gram altın"},
		{"case folded", "Gram Altın", "gram altın"},
		{"trimmed", "  Gram Altın  ", "gram altın"},
		{"inner whitespace collapsed", "Gram\t Altın", "gram altın"},
		{"non-breaking space", "Gram Altın", "gram altın"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeAsset(tt.in); got != tt.want {
				t.Errorf("NormalizeAsset(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

const pricesBody = `{
	"success": true,
	"data": {
		"date": "2026-08-29",
		"data": {
			"Gram Altın": {"buyingPrice": 4050, "sellingPrice": 4060},
			"Çeyrek  Altın": {"buyingPrice": 6600.5, "sellingPrice": 6650.25}
		}
	}
}`

const percentagesBody = `{
	"success": true,
	"data": {
		"date": "2026-08-29",
		"percentageDifference": {
			"Gram Altın": {"buyingPrice": 1.2, "sellingPrice": 1.1}
		}
	}
}`

func newTestClient(t *testing.T, handler http.Handler, cache *Cache) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.Client(), cache, zerolog.Nop()), srv
}

func TestClientLatestPrices(t *testing.T) {
	cli, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pricesPath {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(pricesBody))
	}), nil)

	quotes, err := cli.LatestPrices(context.Background())
	if err != nil {
		t.Fatalf("LatestPrices() error = %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("LatestPrices() returned %d quotes, want 2", len(quotes))
	}
	// Keys must come back normalized, including the double space.
	q, ok := quotes["çeyrek altın"]
	if !ok {
		t.Fatalf("LatestPrices() missing normalized key, got %v", quotes)
	}
	if !q.Selling.Equal(decimal.RequireFromString("6650.25")) {
		t.Errorf("Selling = %v, want 6650.25", q.Selling)
	}
	if !quotes["gram altın"].Buying.Equal(decimal.NewFromInt(4050)) {
		t.Errorf("Buying = %v, want 4050", quotes["gram altın"].Buying)
	}
}

func TestClientLatestPercentages(t *testing.T) {
	cli, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != percentagesPath {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(percentagesBody))
	}), nil)

	quotes, err := cli.LatestPercentages(context.Background())
	if err != nil {
		t.Fatalf("LatestPercentages() error = %v", err)
	}
	if !quotes["gram altın"].Selling.Equal(decimal.RequireFromString("1.1")) {
		t.Errorf("Selling pct = %v, want 1.1", quotes["gram altın"].Selling)
	}
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http 500", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"success false", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success": false, "message": "no prices scraped today"}`))
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{notjson`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, _ := newTestClient(t, tt.handler, nil)
			if _, err := cli.LatestPrices(context.Background()); !errors.Is(err, ErrUnavailable) {
				t.Errorf("LatestPrices() error = %v, want %v", err, ErrUnavailable)
			}
		})
	}
}

func TestClientTimeoutKeepsCause(t *testing.T) {
	cli, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done() // never answer
	}), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := cli.LatestPrices(ctx)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("LatestPrices() error = %v, want %v", err, ErrUnavailable)
	}
	// Callers classify timeouts, so the deadline error must stay unwrappable.
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("LatestPrices() error = %v, want it to wrap %v", err, context.DeadlineExceeded)
	}
}

func TestClientCache(t *testing.T) {
	hits := 0
	cache := NewCache(time.Minute)
	now := time.Unix(1756458000, 0)
	cache.now = func() time.Time { return now }

	cli, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(pricesBody))
	}), cache)

	for i := 0; i < 3; i++ {
		if _, err := cli.LatestPrices(context.Background()); err != nil {
			t.Fatalf("LatestPrices() error = %v", err)
		}
	}
	if hits != 1 {
		t.Errorf("backend hit %d times within the TTL, want 1", hits)
	}

	// Past the TTL the next call must refetch.
	now = now.Add(2 * time.Minute)
	if _, err := cli.LatestPrices(context.Background()); err != nil {
		t.Fatalf("LatestPrices() error = %v", err)
	}
	if hits != 2 {
		t.Errorf("backend hit %d times after expiry, want 2", hits)
	}

	// Refresh drops the cache immediately.
	cli.Refresh()
	if _, err := cli.LatestPrices(context.Background()); err != nil {
		t.Fatalf("LatestPrices() error = %v", err)
	}
	if hits != 3 {
		t.Errorf("backend hit %d times after Refresh, want 3", hits)
	}
}
