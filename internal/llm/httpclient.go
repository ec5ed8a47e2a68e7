package llm

import (
	"net"
	"net/http"
	"time"
)

// newModelHTTPClient creates an HTTP client for model API calls. Deadlines
// are carried by the request context, so the client itself only bounds
// connection setup.
func newModelHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		MaxConnsPerHost:     10,
		ForceAttemptHTTP2:   true,
	}

	return &http.Client{Transport: transport}
}
