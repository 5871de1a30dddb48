package gateway

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name        string
		serverToken string
		header      string
		query       string
		wantOK      bool
		wantMethod  string
		wantReason  string
	}{
		{name: "auth disabled", wantOK: true, wantMethod: "none"},
		{name: "bearer ok", serverToken: "s3cret", header: "Bearer s3cret", wantOK: true, wantMethod: "bearer"},
		{name: "query ok", serverToken: "s3cret", query: "s3cret", wantOK: true, wantMethod: "query"},
		{name: "missing", serverToken: "s3cret", wantReason: "token required"},
		{name: "mismatch", serverToken: "s3cret", header: "Bearer nope", wantReason: "token_mismatch"},
		{name: "wrong scheme", serverToken: "s3cret", header: "Basic s3cret", wantReason: "token required"},
		{name: "prefix only", serverToken: "s3cret", header: "Bearer s3c", wantReason: "token_mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/v1/chat"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			r := httptest.NewRequest("GET", target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			res := Authorize(tt.serverToken, r)
			assert.Equal(t, tt.wantOK, res.OK)
			assert.Equal(t, tt.wantMethod, res.Method)
			assert.Equal(t, tt.wantReason, res.Reason)
		})
	}
}

func TestSafeEqual(t *testing.T) {
	assert.True(t, safeEqual("abc", "abc"))
	assert.False(t, safeEqual("abc", "abd"))
	assert.False(t, safeEqual("abc", "abcd"))
	assert.False(t, safeEqual("", "a"))
	assert.True(t, safeEqual("", ""))
}

func TestAuthRateLimiterWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newAuthRateLimiter()
	l.now = func() time.Time { return now }

	addr := "192.0.2.7:5555"
	for range authRateMaxFails {
		assert.True(t, l.allow(addr))
		l.recordFailure(addr)
	}
	assert.False(t, l.allow(addr))
	assert.False(t, l.allow("192.0.2.7:6666"), "limit is per host, not per port")
	assert.True(t, l.allow("192.0.2.8:5555"))

	now = now.Add(authRateWindow + time.Second)
	assert.True(t, l.allow(addr))
	assert.Empty(t, l.failures)
}

func TestAuthRateLimiterCapsTrackedHosts(t *testing.T) {
	l := newAuthRateLimiter()
	for i := range authRateMaxIPs {
		l.failures[string(rune('a'+i%26))+time.Duration(i).String()] = []time.Time{time.Now()}
	}
	l.recordFailure("198.51.100.1:1")
	assert.Len(t, l.failures, authRateMaxIPs)
	assert.Contains(t, l.failures, "198.51.100.1")
}
