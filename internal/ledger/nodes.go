package ledger

import (
	"fmt"
	"net/url"
	"strings"
)

// parseAuthority extracts host:port from a URL such as http://10.0.0.5:5000.
// Bare authorities like 10.0.0.5:5000 are accepted as well.
func parseAuthority(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	raw := address
	if !strings.Contains(address, "://") {
		raw = "http://" + address
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidAddress, address, err)
	}
	if u.Hostname() == "" || strings.HasSuffix(u.Host, ":") {
		return "", fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}
	return u.Host, nil
}
