package watchdog

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// CheckWebhookURL rejects webhook targets the watchdog must never post to:
// non-HTTP schemes, missing hosts, 0.0.0.0 and link-local addresses (which
// include cloud metadata endpoints such as 169.254.169.254). Hostnames are
// resolved first so a name that points at a blocked address is caught too.
// Loopback and private ranges are allowed.
func CheckWebhookURL(ctx context.Context, raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("webhook %q: invalid URL: %w", raw, err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("webhook %q: scheme %q not allowed (use http or https)", raw, parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("webhook %q: no host", raw)
	}

	if ip := net.ParseIP(host); ip != nil {
		return checkIP(raw, ip)
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("webhook %q: cannot resolve %s: %w", raw, host, err)
	}
	for _, addr := range addrs {
		if err := checkIP(raw, addr.IP); err != nil {
			return err
		}
	}
	return nil
}

func checkIP(raw string, ip net.IP) error {
	switch {
	case ip.IsUnspecified():
		return fmt.Errorf("webhook %q: unspecified address %s", raw, ip)
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return fmt.Errorf("webhook %q: link-local/metadata address %s", raw, ip)
	}
	return nil
}
