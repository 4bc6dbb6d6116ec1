// Package security provides input validation for page sessions and scroll targets.
package security

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// URL validation errors.
var (
	ErrInvalidURL       = errors.New("invalid URL")
	ErrBlockedScheme    = errors.New("URL scheme not allowed")
	ErrPrivateIPBlocked = errors.New("private/internal IP addresses are not allowed")
	ErrLocalhostBlocked = errors.New("localhost URLs are not allowed")
	ErrMetadataBlocked  = errors.New("cloud metadata URLs are not allowed")
)

// allowedSchemes lists the schemes a page session may open.
// about: and data: never leave the browser.
var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"about": true,
	"data":  true,
}

// metadataHosts are never reachable, even when private URLs are allowed.
var metadataHosts = map[string]bool{
	"metadata.google.internal": true,
	"metadata":                 true,
	"instance-data":            true,
}

var cloudMetadataIPs = []net.IP{
	net.ParseIP("169.254.169.254"), // AWS, GCP, Azure, DigitalOcean, OpenStack
	net.ParseIP("169.254.170.2"),   // AWS ECS task metadata
	net.ParseIP("100.100.100.200"), // Alibaba Cloud
	net.ParseIP("192.0.0.192"),     // Oracle Cloud
	net.ParseIP("fd00:ec2::254"),   // AWS IPv6
}

// lookupIP is replaced in tests.
var lookupIP = net.LookupIP

// ValidateURL checks that a page session may navigate to rawURL.
// Cloud metadata endpoints are always blocked. Loopback and private
// addresses are blocked unless allowPrivate is set.
func ValidateURL(rawURL string, allowPrivate bool) error {
	if rawURL == "" {
		return ErrInvalidURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURL
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !allowedSchemes[scheme] {
		return ErrBlockedScheme
	}
	if scheme == "about" || scheme == "data" {
		return nil
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return ErrInvalidURL
	}
	if metadataHosts[hostname] {
		return ErrMetadataBlocked
	}
	if !allowPrivate && isLocalhostHostname(hostname) {
		return ErrLocalhostBlocked
	}

	if ip := parseIPWithNormalization(hostname); ip != nil {
		return validateIP(normalizeIPv4Mapped(ip), allowPrivate)
	}

	// Unresolvable hosts are left to the browser.
	ips, err := lookupIP(hostname)
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if err := validateIP(normalizeIPv4Mapped(ip), allowPrivate); err != nil {
			return err
		}
	}
	return nil
}

// parseIPWithNormalization parses dotted, decimal, octal, hex and shortened
// IPv4 forms as well as IPv6.
func parseIPWithNormalization(hostname string) net.IP {
	if ip := net.ParseIP(hostname); ip != nil {
		return ip
	}

	if num, err := strconv.ParseUint(hostname, 10, 32); err == nil {
		return net.IPv4(byte(num>>24), byte(num>>16), byte(num>>8), byte(num))
	}

	parts := strings.Split(hostname, ".")
	switch len(parts) {
	case 4:
		var octets [4]byte
		for i, part := range parts {
			val, err := parseIntWithBase(part)
			if err != nil || val > 255 {
				return nil
			}
			octets[i] = byte(val)
		}
		return net.IPv4(octets[0], octets[1], octets[2], octets[3])
	case 2:
		first, err1 := parseIntWithBase(parts[0])
		second, err2 := parseIntWithBase(parts[1])
		if err1 == nil && err2 == nil && first <= 255 && second <= 0xFFFFFF {
			return net.IPv4(byte(first), byte(second>>16), byte(second>>8), byte(second))
		}
	}
	return nil
}

func parseIntWithBase(s string) (uint64, error) {
	if s == "" {
		return 0, errors.New("empty string")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	if strings.HasPrefix(s, "0") && len(s) > 1 {
		return strconv.ParseUint(s[1:], 8, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

func normalizeIPv4Mapped(ip net.IP) net.IP {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4
	}
	return ip
}

func isLocalhostHostname(hostname string) bool {
	switch hostname {
	case "localhost", "localhost.localdomain", "ip6-localhost", "ip6-loopback":
		return true
	}
	return strings.HasSuffix(hostname, ".localhost")
}

func validateIP(ip net.IP, allowPrivate bool) error {
	if isCloudMetadataIP(ip) {
		return ErrMetadataBlocked
	}
	if allowPrivate {
		return nil
	}
	if ip.IsLoopback() {
		return ErrLocalhostBlocked
	}
	if ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return ErrPrivateIPBlocked
	}
	return nil
}

func isCloudMetadataIP(ip net.IP) bool {
	for _, metadataIP := range cloudMetadataIPs {
		if ip.Equal(metadataIP) {
			return true
		}
	}
	return false
}
