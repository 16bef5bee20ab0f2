package openrouter

import (
	"errors"
	"slices"
	"testing"
)

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name         string
		baseURL      string
		allowedHosts []string
		wantReason   string
	}{
		{name: "empty uses default", baseURL: "  "},
		{name: "default host", baseURL: "https://openrouter.ai/"},
		{name: "default api host", baseURL: "https://API.openrouter.ai"},
		{name: "configured host with port", baseURL: "https://proxy.internal:8443", allowedHosts: []string{"https://proxy.internal:8443/"}},
		{name: "relative", baseURL: "openrouter.ai", wantReason: "absolute URL with host is required"},
		{name: "plain http", baseURL: "http://openrouter.ai", wantReason: "https is required"},
		{name: "unknown host", baseURL: "https://evil.example", wantReason: `host "evil.example" is not in OPENROUTER_ALLOWED_HOSTS`},
		{name: "default host not implied by custom list", baseURL: "https://openrouter.ai", allowedHosts: []string{"proxy.internal"}, wantReason: `host "openrouter.ai" is not in OPENROUTER_ALLOWED_HOSTS`},
		{name: "userinfo", baseURL: "https://k:s@openrouter.ai", wantReason: "userinfo is not allowed"},
		{name: "query", baseURL: "https://openrouter.ai?x=1", wantReason: "query and fragment are not allowed"},
		{name: "fragment", baseURL: "https://openrouter.ai#x", wantReason: "query and fragment are not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBaseURL(tt.baseURL, tt.allowedHosts)
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var be *BaseURLError
			if !errors.As(err, &be) {
				t.Fatalf("expected *BaseURLError, got %v", err)
			}
			if be.Reason != tt.wantReason {
				t.Fatalf("reason = %q, want %q", be.Reason, tt.wantReason)
			}
		})
	}
}

func TestAllowedHostList(t *testing.T) {
	if got := allowedHostList([]string{" ", "https://", "http://"}); !slices.Equal(got, defaultAllowedHosts) {
		t.Fatalf("expected defaults for blank entries, got %v", got)
	}
	got := allowedHostList([]string{"Proxy.Internal", "https://proxy.internal/", "edge:443"})
	if !slices.Equal(got, []string{"proxy.internal", "edge"}) {
		t.Fatalf("unexpected hosts: %v", got)
	}
}
