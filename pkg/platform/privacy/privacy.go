// Package privacy provides helpers for keeping personal data out of logs.
package privacy

import (
	"net"
	"strings"
)

// AnonymizeIP truncates an IP address so logs carry enough to correlate abuse
// without storing a full client address. IPv4 keeps the /24 prefix, IPv6 the
// first two hextets.
func AnonymizeIP(ip string) string {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "invalid"
	}
	if v4 := parsed.To4(); v4 != nil {
		return net.IPv4(v4[0], v4[1], v4[2], 0).String() + "/24"
	}
	parts := strings.Split(parsed.String(), ":")
	if len(parts) < 2 {
		return "invalid"
	}
	return parts[0] + ":" + parts[1] + "::/32"
}
