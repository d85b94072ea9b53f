// Package csrconf renders a request subject and its classified SANs into the
// configuration file format read by "openssl req".
package csrconf

import (
	"fmt"
	"strings"

	"github.com/letsencrypt/certreq/san"
	"github.com/letsencrypt/certreq/subject"
)

// UPNOID is the Microsoft User Principal Name otherName type.
const UPNOID = "1.3.6.1.4.1.311.20.2.3"

const (
	reqSection       = "req"
	subjectSection   = "req_distinguished_name"
	extensionSection = "v3_req"
	altNamesSection  = "alt_names"
)

// Section is a named block of ordered configuration lines.
type Section struct {
	Name  string
	Lines []string
}

// Config is an ordered list of sections. Rendering the same Config always
// produces the same bytes.
type Config struct {
	Sections []Section
}

// Build lays out the configuration for attrs and the SAN buckets b. The
// subject follows schema order. Each SAN type is numbered from 1 in bucket
// order. When b holds no valid entries the subjectAltName extension and its
// section are left out, because openssl refuses to load an empty one.
func Build(attrs *subject.Attributes, b *san.Buckets) *Config {
	extensions := []string{
		"basicConstraints = CA:FALSE",
		"keyUsage = nonRepudiation, digitalSignature, keyEncipherment",
	}
	if !b.Empty() {
		extensions = append(extensions, "subjectAltName = @"+altNamesSection)
	}
	extensions = append(extensions, "extendedKeyUsage=serverAuth,clientAuth")

	cfg := &Config{Sections: []Section{
		{
			Name: reqSection,
			Lines: []string{
				"distinguished_name\t= " + subjectSection,
				"string_mask = utf8only",
				"prompt=no",
				"req_extensions = " + extensionSection,
			},
		},
		{Name: subjectSection, Lines: subjectLines(attrs)},
		{Name: extensionSection, Lines: extensions},
	}}
	if !b.Empty() {
		cfg.Sections = append(cfg.Sections, Section{Name: altNamesSection, Lines: altNameLines(b)})
	}
	return cfg
}

func subjectLines(attrs *subject.Attributes) []string {
	var lines []string
	for _, p := range attrs.Pairs() {
		if p.Attribute.MultiValued {
			lines = append(lines, fmt.Sprintf("%d.%s=%s", p.Index, p.Attribute.CanonicalName, p.Value))
		} else {
			lines = append(lines, fmt.Sprintf("%s=%s", p.Attribute.CanonicalName, p.Value))
		}
	}
	return lines
}

func altNameLines(b *san.Buckets) []string {
	var lines []string
	for i, name := range b.DNSNames {
		lines = append(lines, fmt.Sprintf("DNS.%d=%s", i+1, name))
	}
	for i, ip := range b.IPs {
		lines = append(lines, fmt.Sprintf("IP.%d=%s", i+1, ip))
	}
	for i, upn := range b.UPNs {
		lines = append(lines, fmt.Sprintf("otherName.%d=%s;UTF8:%s", i+1, UPNOID, upn))
	}
	return lines
}

// String renders the configuration text. Sections are separated by a blank
// line and every line, including the last, ends in a newline.
func (c *Config) String() string {
	var sb strings.Builder
	for i, s := range c.Sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[ %s ]\n", s.Name)
		for _, l := range s.Lines {
			sb.WriteString(l)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Render is shorthand for Build(attrs, b).String().
func Render(attrs *subject.Attributes, b *san.Buckets) string {
	return Build(attrs, b).String()
}

// SubjectLine renders attrs as a single "key=value,key=value" line in schema
// order, suitable for logging or for passing back to subject.ParseDN.
func SubjectLine(attrs *subject.Attributes) string {
	var parts []string
	for _, p := range attrs.Pairs() {
		parts = append(parts, p.Attribute.Key+"="+p.Value)
	}
	return strings.Join(parts, ",")
}
