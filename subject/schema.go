// Package subject builds the Distinguished Name of a certificate request from
// exactly one input source: a full DN string, individual command line flags,
// or interactive prompts.
package subject

import "strings"

// Attribute describes one recognized DN attribute (or the reserved SAN entry).
type Attribute struct {
	// Key is the short, case-insensitive name used on the command line and in
	// full DN strings, e.g. "cn".
	Key string
	// CanonicalName is the name openssl expects in a config file, e.g.
	// "commonName".
	CanonicalName string
	// Prompt is the human readable label shown to an operator.
	Prompt string
	// MultiValued attributes may appear more than once in a subject.
	MultiValued bool
}

// SANKey is the reserved key for Subject Alternative Names. It is part of the
// command line surface but never part of a DN.
const SANKey = "san"

// schema is in the order attributes are prompted for and rendered. Nothing
// may modify it after initialization; callers get copies.
var schema = []Attribute{
	{Key: "cn", CanonicalName: "commonName", Prompt: "Common Name (CN)"},
	{Key: "e", CanonicalName: "emailAddress", Prompt: "Email (E)"},
	{Key: "ou", CanonicalName: "organizationalUnitName", Prompt: "Organizational Unit (OU)", MultiValued: true},
	{Key: "dc", CanonicalName: "domainComponent", Prompt: "Domain Component (DC)", MultiValued: true},
	{Key: "o", CanonicalName: "organizationName", Prompt: "Organization (O)"},
	{Key: "l", CanonicalName: "localityName", Prompt: "Locality (L)"},
	{Key: "s", CanonicalName: "stateOrProvinceName", Prompt: "State (ST)"},
	{Key: "c", CanonicalName: "countryName", Prompt: "Country (C)"},
	{Key: SANKey, CanonicalName: "subjectAltName", Prompt: "Subject Alt Name (FQDN, IP or UPN). Comma Separated"},
}

// DNAttributes returns the attributes that make up a subject, in schema
// order, excluding SAN.
func DNAttributes() []Attribute {
	out := make([]Attribute, 0, len(schema)-1)
	for _, a := range schema {
		if a.Key == SANKey {
			continue
		}
		out = append(out, a)
	}
	return out
}

// AllAttributes returns every schema entry, including SAN, in schema order.
// This is the command line surface and the interactive prompt order.
func AllAttributes() []Attribute {
	out := make([]Attribute, len(schema))
	copy(out, schema)
	return out
}

// Lookup finds a DN attribute by key, ignoring case. SAN is never returned.
func Lookup(key string) (Attribute, bool) {
	for _, a := range schema {
		if a.Key == SANKey {
			continue
		}
		if strings.EqualFold(a.Key, key) {
			return a, true
		}
	}
	return Attribute{}, false
}
