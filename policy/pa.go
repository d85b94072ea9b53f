// Package policy lints classified SAN entries. Lints never change how an
// entry was classified and never stop a request; they only produce warnings
// an operator may want to act on before submitting the CSR to a CA.
package policy

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"github.com/miekg/dns"
	"github.com/weppos/publicsuffix-go/publicsuffix"
	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"

	"github.com/letsencrypt/certreq/identifier"
)

// maxDNSNameLength is the longest presentation-format name that fits in the
// 255 octet wire format.
const maxDNSNameLength = 253

var punycodeRegexp = regexp.MustCompile("^xn--")
var idnReservedRegexp = regexp.MustCompile("^[a-z0-9]{2}--")

// Warning is a non-fatal finding about a single SAN entry.
type Warning struct {
	Identifier identifier.Identifier
	Reason     string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s SAN %q %s", w.Identifier.Type, w.Identifier.Value, w.Reason)
}

// Linter selects which lints run.
type Linter struct {
	// PublicSuffix warns about DNS names and UPN domains that do not end in
	// an ICANN public suffix, or are one.
	PublicSuffix bool
	// ReservedIP warns about IP addresses in special-purpose ranges.
	ReservedIP bool
	// IDN warns about malformed punycode and reserved LDH labels.
	IDN bool
}

// Lint returns warnings for entries, in entry order. Entries classified as
// Invalid are skipped; they are reported elsewhere.
func (l Linter) Lint(entries []identifier.Identifier) []Warning {
	var warnings []Warning
	for _, id := range entries {
		var reasons []string
		switch id.Type {
		case identifier.IP:
			if l.ReservedIP {
				reasons = append(reasons, lintIP(id.Value)...)
			}
		case identifier.DNS:
			reasons = append(reasons, l.lintDNSName(id.Value)...)
		case identifier.UPN:
			if l.PublicSuffix {
				_, domain, _ := strings.Cut(id.Value, "@")
				reasons = append(reasons, lintSuffix(strings.ToLower(domain))...)
			}
		}
		for _, r := range reasons {
			warnings = append(warnings, Warning{Identifier: id, Reason: r})
		}
	}
	return warnings
}

func lintIP(value string) []string {
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return nil
	}
	if reserved, name := IsReservedIP(addr); reserved {
		return []string{fmt.Sprintf("is in a reserved range (%s)", name)}
	}
	return nil
}

func (l Linter) lintDNSName(name string) []string {
	var reasons []string
	domain := strings.ToLower(name)

	if _, ok := dns.IsDomainName(domain); !ok || len(domain) > maxDNSNameLength {
		reasons = append(reasons, "is too long to be a DNS name")
	}

	if l.IDN {
		for _, label := range strings.Split(domain, ".") {
			if punycodeRegexp.MatchString(label) {
				// We don't care about script usage here. As long as it was
				// properly encoded that is enough.
				ulabel, err := idna.ToUnicode(label)
				if err != nil || !norm.NFKC.IsNormalString(ulabel) {
					reasons = append(reasons, fmt.Sprintf("contains malformed punycode label %q", label))
				}
			} else if idnReservedRegexp.MatchString(label) {
				reasons = append(reasons, fmt.Sprintf("contains reserved LDH label %q", label))
			}
		}
	}

	if l.PublicSuffix {
		reasons = append(reasons, lintSuffix(domain)...)
	}
	return reasons
}

func lintSuffix(domain string) []string {
	icannTLD, err := extractDomainIANASuffix(domain)
	if err != nil {
		return []string{"does not end in a public suffix"}
	}
	if icannTLD == domain {
		return []string{"is a public suffix"}
	}
	return nil
}

// extractDomainIANASuffix returns the public suffix of the domain using only
// the "ICANN" section of the Public Suffix List database. If the domain does
// not end in a suffix that belongs to an IANA-assigned domain, it returns an
// error.
func extractDomainIANASuffix(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("blank name argument passed to extractDomainIANASuffix")
	}

	rule := publicsuffix.DefaultList.Find(name, &publicsuffix.FindOptions{IgnorePrivate: true, DefaultRule: nil})
	if rule == nil {
		return "", fmt.Errorf("domain %s has no IANA TLD", name)
	}

	suffix := rule.Decompose(name)[1]

	// If the TLD is empty, it means name is actually a suffix.
	// In fact, decompose returns an array of empty strings in this case.
	if suffix == "" {
		suffix = name
	}

	return suffix, nil
}
