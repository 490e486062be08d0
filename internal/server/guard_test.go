package server

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// okHandler stands in for handleAsk behind the guard.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// newTestGuard returns a guard on a fresh registry with a frozen clock.
func newTestGuard(apiKey string, rps float64, burst int) (*askGuard, *prometheus.Registry, *time.Time) {
	reg := prometheus.NewRegistry()
	g := newAskGuard(apiKey, rps, burst, newServerMetrics(reg))
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return clock }
	return g, reg, &clock
}

// askFrom builds a POST /api/ask with a JSON question from remoteAddr.
func askFrom(remoteAddr, auth string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"Qual é o prazo?"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req
}

func TestAskGuard_Auth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		auth      string
		want      int
		challenge string
	}{
		{"valid token", "Bearer s3cret", http.StatusOK, ""},
		{"scheme is case-insensitive", "bearer s3cret", http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, `Bearer realm="pdfchat"`},
		{"empty token", "Bearer ", http.StatusUnauthorized, `Bearer realm="pdfchat"`},
		{"basic scheme", "Basic czNjcmV0", http.StatusUnauthorized, `Bearer realm="pdfchat"`},
		{"wrong token", "Bearer nope", http.StatusUnauthorized, `Bearer realm="pdfchat", error="invalid_token"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g, reg, _ := newTestGuard("s3cret", 100, 100)
			w := httptest.NewRecorder()
			g.wrap(okHandler).ServeHTTP(w, askFrom("192.0.2.1:5000", tt.auth))

			if w.Code != tt.want {
				t.Fatalf("status: got %d, want %d", w.Code, tt.want)
			}
			if got := w.Header().Get("WWW-Authenticate"); got != tt.challenge {
				t.Errorf("WWW-Authenticate: got %q, want %q", got, tt.challenge)
			}
			if tt.want != http.StatusUnauthorized {
				return
			}
			if resp := decodeAsk(t, w); resp.Error == "" || resp.Answer != "" {
				t.Errorf("body: %+v", resp)
			}
			if got := counterValue(t, reg, "pdfchat_ask_requests_total", "outcome", outcomeUnauthorized); got != 1 {
				t.Errorf("unauthorized counter: got %v, want 1", got)
			}
		})
	}
}

func TestAskGuard_NoKeyAllowsAnonymous(t *testing.T) {
	t.Parallel()

	g, _, _ := newTestGuard("", 100, 100)
	w := httptest.NewRecorder()
	g.wrap(okHandler).ServeHTTP(w, askFrom("192.0.2.1:5000", ""))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 without a configured key, got %d", w.Code)
	}
}

func TestAskGuard_ThrottlesBeforeAuth(t *testing.T) {
	t.Parallel()

	g, reg, clock := newTestGuard("s3cret", 0.5, 2)
	h := g.wrap(okHandler)

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, askFrom("192.0.2.1:5000", "Bearer wrong"))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			if got := w.Header().Get("Retry-After"); got != "2" {
				t.Errorf("Retry-After: got %q, want %q", got, "2")
			}
		}
	}
	want := []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes: got %v, want %v", codes, want)
		}
	}
	if got := counterValue(t, reg, "pdfchat_ask_requests_total", "outcome", outcomeRateLimited); got != 1 {
		t.Errorf("rate_limited counter: got %v, want 1", got)
	}

	// One token refills after two seconds at 0.5/s.
	*clock = clock.Add(2 * time.Second)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, askFrom("192.0.2.1:6000", "Bearer s3cret"))
	if w.Code != http.StatusOK {
		t.Errorf("after refill: got %d, want 200", w.Code)
	}
}

func TestAskGuard_ClientsShareBucketsByBlock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		first  string
		second string
		shared bool
	}{
		{"same ipv4, different ports", "192.0.2.1:5000", "192.0.2.1:6000", true},
		{"different ipv4", "192.0.2.1:5000", "192.0.2.2:5000", false},
		{"same ipv6 /64", "[2001:db8:1:2::10]:5000", "[2001:db8:1:2:ffff::1]:5000", true},
		{"different ipv6 /64", "[2001:db8:1:2::10]:5000", "[2001:db8:1:3::10]:5000", false},
		{"ipv4-mapped ipv6", "[::ffff:192.0.2.1]:5000", "192.0.2.1:6000", true},
		{"zoned link-local", "[fe80::1%eth0]:5000", "[fe80::2%eth1]:5000", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g, _, _ := newTestGuard("", 0.001, 1)
			h := g.wrap(okHandler)

			w := httptest.NewRecorder()
			h.ServeHTTP(w, askFrom(tt.first, ""))
			if w.Code != http.StatusOK {
				t.Fatalf("first request: got %d", w.Code)
			}

			w = httptest.NewRecorder()
			h.ServeHTTP(w, askFrom(tt.second, ""))
			throttled := w.Code == http.StatusTooManyRequests
			if throttled != tt.shared {
				t.Errorf("second request throttled=%v, want %v", throttled, tt.shared)
			}
		})
	}
}

func TestAskGuard_SweepsIdleClients(t *testing.T) {
	t.Parallel()

	g, _, clock := newTestGuard("", 1, 1)
	if _, ok := g.take(clientKey("192.0.2.1:1")); !ok {
		t.Fatal("first take should pass")
	}

	*clock = clock.Add(clientIdleTTL + sweepInterval)
	if _, ok := g.take(clientKey("192.0.2.2:1")); !ok {
		t.Fatal("take for a new client should pass")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.buckets[clientKey("192.0.2.1:1")]; ok {
		t.Error("idle client bucket was not swept")
	}
	if len(g.buckets) != 1 {
		t.Errorf("buckets: got %d, want 1", len(g.buckets))
	}
}

func TestClientKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:5000", "192.0.2.1/32"},
		{"192.0.2.1", "192.0.2.1/32"},
		{"[2001:db8::1]:443", "2001:db8::/64"},
		{"[::ffff:10.0.0.1]:80", "10.0.0.1/32"},
		{"@", "::/0"},
	}
	for _, tt := range tests {
		if got := clientKey(tt.remote); got != netip.MustParsePrefix(tt.want) {
			t.Errorf("clientKey(%q) = %s, want %s", tt.remote, got, tt.want)
		}
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header  string
		token   string
		present bool
	}{
		{"Bearer abc", "abc", true},
		{"BEARER  abc ", "abc", true},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
		{"Token abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, present := bearerToken(tt.header)
		if token != tt.token || present != tt.present {
			t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", tt.header, token, present, tt.token, tt.present)
		}
	}
}
