package httpx

import (
	"log"
	"net/http"
	"time"
)

const defaultExternalHTTPTimeout = 30 * time.Second

// ExternalHTTPClient is shared by all provider calls (LLM and embeddings) so a
// hung upstream can never suspend a request handler indefinitely.
var ExternalHTTPClient = &http.Client{
	Timeout: defaultExternalHTTPTimeout,
}

// ConfigureExternalHTTPClient applies the configured timeout and returns the
// value actually in effect.
func ConfigureExternalHTTPClient(timeoutSeconds int) time.Duration {
	timeout := defaultExternalHTTPTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	} else if timeoutSeconds != 0 {
		log.Printf("httpx invalid timeout_seconds=%d, keeping default %s", timeoutSeconds, defaultExternalHTTPTimeout)
	}
	ExternalHTTPClient.Timeout = timeout
	return timeout
}
