// Package catalog talks to the Wallhaven API: searching, downloading
// wallpapers into the local library, and fetching video wallpapers.
package catalog

import (
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Network timeouts. A stalled CDN connection should fail fast instead of
// wedging a download worker.
const (
	httpRequestTimeout        = 60 * time.Second
	httpDialerTimeout         = 15 * time.Second
	httpKeepAlive             = 30 * time.Second
	httpTLSHandshakeTimeout   = 10 * time.Second
	httpResponseHeaderTimeout = 15 * time.Second
)

// Wallhaven limits API clients to 45 requests per minute.
const apiRequestInterval = 1400 * time.Millisecond

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: httpRequestTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   httpDialerTimeout,
				KeepAlive: httpKeepAlive,
			}).DialContext,
			ResponseHeaderTimeout: httpResponseHeaderTimeout,
			TLSHandshakeTimeout:   httpTLSHandshakeTimeout,
		},
	}
}

// newDownloadClient has no overall request timeout: a large file on a slow
// link is legitimate, stalls are still caught by the transport timeouts and
// context cancellation.
func newDownloadClient() *http.Client {
	c := newHTTPClient()
	c.Timeout = 0
	return c
}

func newAPILimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(apiRequestInterval), 1)
}
