// Package privacy anonymizes URLs and addresses in messages that leave the
// process through error telemetry.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
)

var (
	urlPattern  = regexp.MustCompile(`\bhttps?://[^\s"'<>]+`)
	ipv4Pattern = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// pathWords are archive and API path segments kept verbatim
var pathWords = map[string]bool{
	"api": true, "lightcurve": true, "lightcurves": true, "search": true,
	"predict": true, "kepler": true, "tess": true, "mast": true,
}

// ScrubMessage replaces every URL in message with an anonymized token and
// masks standalone IPv4 addresses.
func ScrubMessage(message string) string {
	scrubbed := urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	return ipv4Pattern.ReplaceAllStringFunc(scrubbed, func(ip string) string {
		if _, err := netip.ParseAddr(ip); err != nil {
			return ip
		}
		return "[" + categorizeHost(ip) + "]"
	})
}

// AnonymizeURL maps a URL to a stable token. Equal scheme, host category,
// port and path shape give equal tokens, so repeated failures group together
// without exposing the host, credentials or query.
func AnonymizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		sum := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", sum[:8])
	}

	parts := make([]string, 0, 4)
	if u.Scheme != "" {
		parts = append(parts, u.Scheme)
	}
	if host := u.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if port := u.Port(); port != "" {
		parts = append(parts, "port-"+port)
	}
	if u.Path != "" && u.Path != "/" {
		parts = append(parts, anonymizePath(u.Path))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("url-%x", sum[:12])
}

// categorizeHost keeps only the kind of host
func categorizeHost(host string) string {
	if host == "localhost" {
		return "localhost"
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		switch {
		case addr.IsLoopback():
			return "localhost"
		case addr.IsPrivate(), addr.IsLinkLocalUnicast():
			return "private-ip"
		default:
			return "public-ip"
		}
	}
	if i := strings.LastIndexByte(host, '.'); i > 0 && i < len(host)-1 {
		return "domain-" + strings.ToLower(host[i+1:])
	}
	return "unknown-host"
}

// anonymizePath keeps the path depth and known segments and hashes the rest
func anonymizePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}

	segments := strings.Split(path, "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch {
		case seg == "":
			continue
		case pathWords[strings.ToLower(seg)]:
			out = append(out, strings.ToLower(seg))
		case isNumeric(seg):
			out = append(out, "numeric")
		default:
			sum := sha256.Sum256([]byte(seg))
			out = append(out, fmt.Sprintf("seg-%x", sum[:4]))
		}
	}
	return strings.Join(out, "/")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
