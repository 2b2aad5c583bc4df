package httpx

import (
	"testing"
	"time"
)

func TestExternalHTTPClientTimeout(t *testing.T) {
	if ExternalHTTPClient == nil {
		t.Fatal("ExternalHTTPClient must not be nil")
	}
	if ExternalHTTPClient.Timeout <= 0 {
		t.Fatalf("ExternalHTTPClient timeout must be set, got %s", ExternalHTTPClient.Timeout)
	}
}

func TestConfigureExternalHTTPClient(t *testing.T) {
	original := ExternalHTTPClient.Timeout
	t.Cleanup(func() {
		ExternalHTTPClient.Timeout = original
	})

	got := ConfigureExternalHTTPClient(0)
	if got != defaultExternalHTTPTimeout {
		t.Fatalf("ConfigureExternalHTTPClient(0) = %s, want %s", got, defaultExternalHTTPTimeout)
	}

	got = ConfigureExternalHTTPClient(120)
	if got != 120*time.Second {
		t.Fatalf("ConfigureExternalHTTPClient(120) = %s, want %s", got, 120*time.Second)
	}
	if ExternalHTTPClient.Timeout != 120*time.Second {
		t.Fatalf("configured timeout = %s, want %s", ExternalHTTPClient.Timeout, 120*time.Second)
	}
}
