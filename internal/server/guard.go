package server

import (
	"crypto/subtle"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/54b3r/pdfchat-go/internal/logging"
)

const (
	// defaultRateLimit is the sustained questions per second allowed per client.
	defaultRateLimit = 10
	// defaultRateBurst is the number of questions a client may send at once.
	defaultRateBurst = 20
	// clientIdleTTL is how long an idle client's bucket is kept.
	clientIdleTTL = 10 * time.Minute
	// sweepInterval is the minimum time between idle-bucket sweeps.
	sweepInterval = time.Minute
	// ipv6ClientBits groups IPv6 clients by their /64, the smallest block an
	// ISP hands a single subscriber.
	ipv6ClientBits = 64
)

// Outcomes recorded for questions the guard turns away.
const (
	outcomeUnauthorized = "unauthorized"
	outcomeRateLimited  = "rate_limited"
)

// bucket is one client's token bucket.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// askGuard admits POST /api/ask requests: it throttles each client to a
// token bucket, then checks the bearer token. Rejections are answered in
// the askResponse shape and counted in pdfchat_ask_requests_total.
type askGuard struct {
	apiKey  string
	rps     rate.Limit
	burst   int
	metrics *serverMetrics
	now     func() time.Time

	mu        sync.Mutex
	buckets   map[netip.Prefix]*bucket
	lastSweep time.Time
}

func newAskGuard(apiKey string, rps float64, burst int, metrics *serverMetrics) *askGuard {
	return &askGuard{
		apiKey:  apiKey,
		rps:     rate.Limit(rps),
		burst:   burst,
		metrics: metrics,
		now:     time.Now,
		buckets: make(map[netip.Prefix]*bucket),
	}
}

// wrap returns next behind the rate limit and, when an API key is set,
// bearer authentication. Throttling runs first so a client guessing keys is
// slowed down too.
func (g *askGuard) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())
		client := clientKey(r.RemoteAddr)

		if wait, ok := g.take(client); !ok {
			log.Warn("ask throttled", slog.String("client", client.String()), slog.Duration("retry_after", wait))
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			g.reject(w, http.StatusTooManyRequests, outcomeRateLimited, "too many questions; retry later", log)
			return
		}

		if g.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, present := bearerToken(r.Header.Get("Authorization"))
		switch {
		case !present:
			log.Warn("ask rejected: no bearer token")
			w.Header().Set("WWW-Authenticate", `Bearer realm="pdfchat"`)
			g.reject(w, http.StatusUnauthorized, outcomeUnauthorized, "authorization required", log)
		case subtle.ConstantTimeCompare([]byte(token), []byte(g.apiKey)) != 1:
			log.Warn("ask rejected: invalid bearer token")
			w.Header().Set("WWW-Authenticate", `Bearer realm="pdfchat", error="invalid_token"`)
			g.reject(w, http.StatusUnauthorized, outcomeUnauthorized, "invalid token", log)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (g *askGuard) reject(w http.ResponseWriter, status int, outcome, msg string, log *slog.Logger) {
	g.metrics.askRequestsTotal.WithLabelValues(outcome).Inc()
	writeJSON(w, status, askResponse{Error: msg}, log)
}

// take spends one token from client's bucket. When the bucket is empty it
// returns the wait until the next token and false.
func (g *askGuard) take(client netip.Prefix) (time.Duration, bool) {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if now.Sub(g.lastSweep) >= sweepInterval {
		for k, b := range g.buckets {
			if now.Sub(b.lastSeen) > clientIdleTTL {
				delete(g.buckets, k)
			}
		}
		g.lastSweep = now
	}

	b, ok := g.buckets[client]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(g.rps, g.burst)}
		g.buckets[client] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return time.Second, false
	}
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		return wait, false
	}
	return 0, true
}

// clientKey maps a RemoteAddr to the address block that is throttled as one
// client: the exact IPv4 address, or the /64 of an IPv6 address. IPv4-mapped
// IPv6 addresses count as their IPv4 form. X-Forwarded-For is ignored.
func clientKey(remoteAddr string) netip.Prefix {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		// Not an IP (e.g. a unix socket path): throttle everything of that
		// kind together under the unspecified address.
		return netip.PrefixFrom(netip.IPv6Unspecified(), 0)
	}
	addr = addr.Unmap().WithZone("")
	if addr.Is4() {
		return netip.PrefixFrom(addr, 32)
	}
	p, _ := addr.Prefix(ipv6ClientBits)
	return p
}

// bearerToken parses "Bearer <token>". present is false when the header is
// missing, uses another scheme, or carries an empty token.
func bearerToken(header string) (token string, present bool) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(rest)
	return token, token != ""
}
