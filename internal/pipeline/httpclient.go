package pipeline

import (
	"net/http"
	"time"
)

// NewPooledHTTPClient creates an http.Client for agent traffic with a shared
// connection pool. timeout bounds the whole exchange, including the wait for
// response headers, which for an agent invocation only arrive once the agent
// has finished. Zero means no limit.
func NewPooledHTTPClient(poolSize int, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          poolSize,
			MaxIdleConnsPerHost:   poolSize,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
			ForceAttemptHTTP2:     true,
		},
	}
}
