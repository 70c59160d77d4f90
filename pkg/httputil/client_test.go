package httputil

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"
)

func TestClientSharedPerTier(t *testing.T) {
	if Client(TierMedium) != Client(TierMedium) {
		t.Error("same tier returned different clients")
	}
	if Client(TierFast) == Client(TierSlow) {
		t.Error("different tiers returned the same client")
	}
}

func TestClientTimeouts(t *testing.T) {
	cases := []struct {
		tier TimeoutTier
		want time.Duration
	}{
		{TierFast, 5 * time.Second},
		{TierMedium, 30 * time.Second},
		{TierSlow, 60 * time.Second},
	}
	for _, tc := range cases {
		if got := Client(tc.tier).Timeout; got != tc.want {
			t.Errorf("tier %d timeout = %v, want %v", tc.tier, got, tc.want)
		}
	}
}

func TestClientUnknownTierFallsBack(t *testing.T) {
	c := Client(TimeoutTier(99))
	if c == nil || c.Timeout != 30*time.Second {
		t.Errorf("unknown tier should return the medium client, got %+v", c)
	}
}

func TestReadResponseBody(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		maxSize int64
		wantLen int
	}{
		{"normal read", "hello world", 1024, 11},
		{"truncated read", strings.Repeat("x", 1000), 100, 100},
		{"default cap", "test", 0, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ReadResponseBody(strings.NewReader(tc.input), tc.maxSize)
			if err != nil {
				t.Fatalf("ReadResponseBody: %v", err)
			}
			if len(got) != tc.wantLen {
				t.Errorf("len = %d, want %d", len(got), tc.wantLen)
			}
		})
	}
}

func TestDrainAndClose(t *testing.T) {
	r := &trackingReader{Reader: bytes.NewReader([]byte("test data"))}
	DrainAndClose(io.NopCloser(r))
	if !r.fullyRead {
		t.Error("body not fully drained")
	}

	DrainAndClose(nil) // must not panic
}

type trackingReader struct {
	io.Reader
	fullyRead bool
}

func (r *trackingReader) Read(p []byte) (n int, err error) {
	n, err = r.Reader.Read(p)
	if err == io.EOF {
		r.fullyRead = true
	}
	return
}
