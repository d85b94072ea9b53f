// The identifier package defines the types of Subject Alternative Name that
// certreq can place in a request, and the syntactic checks used to tell them
// apart.
package identifier

import (
	"net/netip"
	"regexp"
	"strings"
)

// IdentifierType is a named string type for SAN identifier types.
type IdentifierType string

const (
	// IP is an IPv4 or IPv6 address literal.
	IP = IdentifierType("ip")
	// DNS is a hostname made of LDH labels.
	DNS = IdentifierType("dns")
	// UPN is a Microsoft User Principal Name, which looks like an email
	// address and is encoded as an otherName.
	UPN = IdentifierType("upn")
	// Invalid marks a token that matched none of the above.
	Invalid = IdentifierType("invalid")
)

// Identifier is a raw SAN token together with the type it was classified as.
type Identifier struct {
	Type  IdentifierType `json:"type"`
	Value string         `json:"value"`
}

// NewIP is a convenience function for creating an Identifier with Type IP.
func NewIP(ip string) Identifier {
	return Identifier{Type: IP, Value: ip}
}

// NewDNS is a convenience function for creating an Identifier with Type DNS.
func NewDNS(domain string) Identifier {
	return Identifier{Type: DNS, Value: domain}
}

// NewUPN is a convenience function for creating an Identifier with Type UPN.
func NewUPN(upn string) Identifier {
	return Identifier{Type: UPN, Value: upn}
}

const maxLabelLength = 63

// dnsLabelRegexp matches a single LDH label: letters, digits and hyphens,
// not starting or ending with a hyphen.
var dnsLabelRegexp = regexp.MustCompile(`(?i)^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)

// upnRegexp matches "local@domain" where each part is word characters
// optionally joined by single dots or hyphens, and the domain ends in one or
// more dot-separated segments of at least two word characters.
var upnRegexp = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,})+$`)

// ValidIP reports whether s is an IPv4 or IPv6 address literal.
func ValidIP(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

// ValidDNSName reports whether every dot-separated label of s is 1 to 63
// characters of letters, digits and hyphens without a leading or trailing
// hyphen. Matching is case-insensitive. It does not exclude IP literals;
// Classify checks for those first.
func ValidDNSName(s string) bool {
	for _, label := range strings.Split(s, ".") {
		if len(label) < 1 || len(label) > maxLabelLength {
			return false
		}
		if !dnsLabelRegexp.MatchString(label) {
			return false
		}
	}
	return true
}

// ValidUPN reports whether s has the shape of a User Principal Name.
func ValidUPN(s string) bool {
	return upnRegexp.MatchString(s)
}

// Classify determines the type of a single SAN token. The checks run in a
// fixed order (IP, then DNS, then UPN) so that a dotted-quad, which is also a
// syntactically valid hostname, always comes out as an IP.
func Classify(token string) Identifier {
	switch {
	case ValidIP(token):
		return NewIP(token)
	case ValidDNSName(token):
		return NewDNS(token)
	case ValidUPN(token):
		return NewUPN(token)
	default:
		return Identifier{Type: Invalid, Value: token}
	}
}
