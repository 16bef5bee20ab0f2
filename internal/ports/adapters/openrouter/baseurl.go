package openrouter

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
)

const defaultBaseURL = "https://openrouter.ai"

var defaultAllowedHosts = []string{"openrouter.ai", "api.openrouter.ai"}

// BaseURLError explains why a configured base URL was refused. The API key is
// sent to that host, so anything other than a plain https origin on an
// allowed host is rejected.
type BaseURLError struct {
	URL    string
	Reason string
}

func (e *BaseURLError) Error() string {
	return fmt.Sprintf("invalid OPENROUTER_BASE_URL %q: %s", e.URL, e.Reason)
}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// ValidateBaseURL checks baseURL against allowedHosts, falling back to the
// public OpenRouter hosts when the list is empty.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)
	refuse := func(reason string) error { return &BaseURLError{URL: baseURL, Reason: reason} }

	u, err := url.Parse(baseURL)
	switch {
	case err != nil:
		return refuse(err.Error())
	case !u.IsAbs() || u.Host == "":
		return refuse("absolute URL with host is required")
	case u.User != nil:
		return refuse("userinfo is not allowed")
	case u.RawQuery != "" || u.Fragment != "":
		return refuse("query and fragment are not allowed")
	case u.Hostname() == "":
		return refuse("host is required")
	case !strings.EqualFold(u.Scheme, "https"):
		return refuse("https is required")
	}

	host := strings.ToLower(u.Hostname())
	if !slices.Contains(allowedHostList(allowedHosts), host) {
		return refuse(fmt.Sprintf("host %q is not in OPENROUTER_ALLOWED_HOSTS", host))
	}
	return nil
}

// allowedHostList reduces entries like "https://proxy:8443/" to bare host names.
func allowedHostList(entries []string) []string {
	var out []string
	for _, e := range entries {
		h := strings.ToLower(strings.TrimSpace(e))
		h = strings.TrimPrefix(h, "http://")
		h = strings.TrimPrefix(h, "https://")
		h = strings.Trim(h, "/")
		if host, _, err := net.SplitHostPort(h); err == nil {
			h = host
		}
		if h != "" && !slices.Contains(out, h) {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		return defaultAllowedHosts
	}
	return out
}
