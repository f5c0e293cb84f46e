package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

var (
	octet     = `(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)`
	ipv4Regex = regexp.MustCompile(`^` + octet + `\.` + octet + `\.` + octet + `\.` + octet + `$`)

	// One alternative per separator so "aa:bb-cc:dd:ee:ff" is rejected.
	macRegex = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$|^([0-9A-Fa-f]{2}-){5}[0-9A-Fa-f]{2}$`)

	timeRegex      = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)
	portRegex      = regexp.MustCompile(`^[0-9]{1,5}$`)
	prefixRegex    = regexp.MustCompile(`^[0-9]{1,2}$`)
	portRangeRegex = regexp.MustCompile(`^([0-9]{1,5})(-([0-9]{1,5}))?$`)

	domainRegex = regexp.MustCompile(`^(https?://)?([a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}(/[^\s]*)?$`)
)

// ValidateIPv4 validates a dotted-quad IPv4 address.
func ValidateIPv4(s string) error {
	if !ipv4Regex.MatchString(s) {
		return fmt.Errorf("invalid IPv4 address: %q (example: 192.168.1.10)", s)
	}
	return nil
}

// ValidateIPv4OrCIDR validates an IPv4 address with an optional /0-/32 prefix.
func ValidateIPv4OrCIDR(s string) error {
	addr, prefix, hasPrefix := strings.Cut(s, "/")
	if err := ValidateIPv4(addr); err != nil {
		return fmt.Errorf("invalid IPv4 address or CIDR: %q (example: 192.168.1.0/24)", s)
	}
	if !hasPrefix {
		return nil
	}
	if !prefixRegex.MatchString(prefix) {
		return fmt.Errorf("invalid CIDR prefix: %q (must be /0 to /32)", "/"+prefix)
	}
	if n, _ := strconv.Atoi(prefix); n > 32 {
		return fmt.Errorf("invalid CIDR prefix: %q (must be /0 to /32)", "/"+prefix)
	}
	return nil
}

// ValidateMAC validates a MAC address written with a single separator style.
func ValidateMAC(s string) error {
	if !macRegex.MatchString(s) {
		return fmt.Errorf("invalid MAC address: %q (example: 00:1A:2B:3C:4D:5E)", s)
	}
	return nil
}

// ValidateTimeOfDay validates H:MM or HH:MM on a 24-hour clock.
func ValidateTimeOfDay(s string) error {
	if !timeRegex.MatchString(s) {
		return fmt.Errorf("time must be in HH:MM format: %q (example: 08:00)", s)
	}
	return nil
}

// ValidatePort validates a single port number up to 65535.
func ValidatePort(s string) error {
	if !portRegex.MatchString(s) {
		return fmt.Errorf("invalid port: %q (example: 443)", s)
	}
	if n, _ := strconv.Atoi(s); n > 65535 {
		return fmt.Errorf("port out of range: %s (max 65535)", s)
	}
	return nil
}

// ValidatePortRange validates "port" or "low-high". Each side is checked
// against the port limit; ordering of the two sides is not enforced.
func ValidatePortRange(s string) error {
	m := portRangeRegex.FindStringSubmatch(s)
	if m == nil {
		return fmt.Errorf("invalid port range: %q (example: 80 or 80-443)", s)
	}
	for _, p := range []string{m[1], m[3]} {
		if p == "" {
			continue
		}
		if n, _ := strconv.Atoi(p); n > 65535 {
			return fmt.Errorf("port out of range in %q: %s (max 65535)", s, p)
		}
	}
	return nil
}

// ValidateDomainOrURL accepts a bare domain or an http(s) URL with an
// optional path. Internationalised hosts are converted to punycode first.
func ValidateDomainOrURL(s string) error {
	bad := fmt.Errorf("invalid domain or URL: %q (example: google.com or https://example.com)", s)

	scheme, rest := "", s
	for _, p := range []string{"http://", "https://"} {
		if strings.HasPrefix(strings.ToLower(s), p) {
			scheme, rest = p, s[len(p):]
			break
		}
	}
	host, path, hasPath := strings.Cut(rest, "/")

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return bad
	}

	candidate := scheme + ascii
	if hasPath {
		candidate += "/" + path
	}
	if !domainRegex.MatchString(candidate) {
		return bad
	}
	if _, ok := dns.IsDomainName(ascii); !ok {
		return bad
	}
	return nil
}

// ValidateOneOf checks that value is one of the allowed options.
func ValidateOneOf(value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid value: %q (must be one of: %s)", value, strings.Join(allowed, ", "))
}
