// Package httputil provides the shared HTTP plumbing for outbound calls:
// pooled transports, tiered timeout clients and bounded response reading.
// Remote classifier and event delivery code goes through here instead of
// constructing its own http.Client per request.
package httputil

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize caps how much of a response body is read. Upstream model
// APIs return small JSON payloads; anything larger is a misbehaving peer.
const MaxResponseSize = 10 * 1024 * 1024

// One transport for the whole process so TCP connections are reused across
// classifier calls and event deliveries.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// TimeoutTier buckets outbound operations by how long they are allowed to
// take.
type TimeoutTier int

const (
	// TierFast for health checks and webhook pings (5s).
	TierFast TimeoutTier = iota
	// TierMedium for standard API calls (30s).
	TierMedium
	// TierSlow for model inference calls that may queue upstream (60s).
	TierSlow
)

var timeoutDurations = map[TimeoutTier]time.Duration{
	TierFast:   5 * time.Second,
	TierMedium: 30 * time.Second,
	TierSlow:   60 * time.Second,
}

var (
	clients    map[TimeoutTier]*http.Client
	clientOnce sync.Once
)

// Client returns the shared HTTP client for a timeout tier. All tiers share
// the same connection pool.
func Client(tier TimeoutTier) *http.Client {
	clientOnce.Do(func() {
		clients = make(map[TimeoutTier]*http.Client, len(timeoutDurations))
		for t, d := range timeoutDurations {
			clients[t] = &http.Client{Timeout: d, Transport: sharedTransport}
		}
	})
	if c, ok := clients[tier]; ok {
		return c
	}
	return clients[TierMedium]
}

// ReadResponseBody reads a response body with a size cap. Pass maxSize <= 0
// for the default cap.
func ReadResponseBody(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = MaxResponseSize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// DrainAndClose drains and closes a response body so the underlying
// connection returns to the pool.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}
