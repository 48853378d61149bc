package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidBaseURL = errors.New("invalid base url")

// Canonicalize maps equivalent spellings of a URL to one form: lowercase
// scheme and host, no default port, no trailing slash past the root, no
// query and no fragment. It is pure and idempotent; the input is not
// modified.
func Canonicalize(u url.URL) url.URL {
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}

	for len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = u.Path[:len(u.Path)-1]
	}
	if u.RawPath != "" {
		u.RawPath = ""
	}

	u.Fragment, u.RawFragment = "", ""
	u.RawQuery, u.ForceQuery = "", false
	return u
}

// ParseBaseURL validates a site root such as https://www.imdb.com and
// returns its canonical string without a trailing slash, ready for paths
// to be appended.
func ParseBaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidBaseURL, err.Error())
	}
	canonical := Canonicalize(*u)
	if canonical.Scheme != "http" && canonical.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBaseURL, u.Scheme)
	}
	if canonical.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidBaseURL, raw)
	}
	canonical.User = nil
	return strings.TrimSuffix(canonical.String(), "/"), nil
}
