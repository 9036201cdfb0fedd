// Package security checks dataset endpoints before they are fetched.
package security

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// ErrBlocked is wrapped by every rejection that concerns the target
// address rather than the URL syntax.
var ErrBlocked = errors.New("address not allowed")

// CheckRemoteURL accepts http and https URLs whose host is not local.
// Literal loopback, private, link-local and unspecified addresses are
// rejected, as is localhost. Hostnames are not resolved.
func CheckRemoteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return errors.New("url has no host")
	}
	switch strings.ToLower(host) {
	case "localhost", "localhost.localdomain":
		return fmt.Errorf("%w: localhost", ErrBlocked)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	return CheckAddr(addr)
}

// CheckAddr rejects addresses that point inside the host or its network.
func CheckAddr(addr netip.Addr) error {
	addr = addr.Unmap()
	var kind string
	switch {
	case addr.IsLoopback():
		kind = "loopback"
	case addr.IsPrivate():
		kind = "private network"
	case addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		kind = "link-local"
	case addr.IsUnspecified():
		kind = "unspecified"
	default:
		return nil
	}
	return fmt.Errorf("%w: %s is a %s address", ErrBlocked, addr, kind)
}
