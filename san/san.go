// Package san sorts a comma separated Subject Alternative Name list into
// typed buckets.
package san

import (
	"strings"

	berrors "github.com/letsencrypt/certreq/errors"
	"github.com/letsencrypt/certreq/identifier"
)

// Buckets holds classified SAN tokens. Each bucket preserves the order in
// which its tokens appeared in the input.
type Buckets struct {
	IPs      []string
	DNSNames []string
	UPNs     []string
	// Invalid tokens are reported but never rendered.
	Invalid []string
	// Entries lists every token with its classification, in input order.
	Entries []identifier.Identifier
}

// Classify splits raw on commas and classifies each token with
// identifier.Classify. Tokens are not trimmed. An empty raw string means no
// SAN was requested and yields empty buckets.
func Classify(raw string) *Buckets {
	b := &Buckets{}
	if raw == "" {
		return b
	}
	for _, token := range strings.Split(raw, ",") {
		id := identifier.Classify(token)
		b.Entries = append(b.Entries, id)
		switch id.Type {
		case identifier.IP:
			b.IPs = append(b.IPs, token)
		case identifier.DNS:
			b.DNSNames = append(b.DNSNames, token)
		case identifier.UPN:
			b.UPNs = append(b.UPNs, token)
		default:
			b.Invalid = append(b.Invalid, token)
		}
	}
	return b
}

// Empty reports whether no token was classified as IP, DNS or UPN.
func (b *Buckets) Empty() bool {
	return len(b.IPs)+len(b.DNSNames)+len(b.UPNs) == 0
}

// Err returns a BadSAN error with one sub-error per invalid token, or nil if
// every token was classified. The error is informational: invalid tokens
// have already been left out of the buckets.
func (b *Buckets) Err() error {
	if len(b.Invalid) == 0 {
		return nil
	}
	var subErrs []berrors.SubRequestError
	for _, token := range b.Invalid {
		subErrs = append(subErrs, berrors.SubRequestError{
			Token:        token,
			RequestError: berrors.BadSANError("not an IP address, DNS name or UPN"),
		})
	}
	return berrors.BadSANError("%d SAN entries could not be classified", len(b.Invalid)).WithSubErrors(subErrs)
}
