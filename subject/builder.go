package subject

import (
	"fmt"
	"strings"

	berrors "github.com/letsencrypt/certreq/errors"
)

// Source identifies where the attributes of a request came from. Exactly one
// source is used per run.
type Source int

const (
	// SourceFullDN means the attributes were parsed from a full subject
	// string. Individual attribute flags are ignored entirely.
	SourceFullDN Source = iota + 1
	// SourceFlags means the attributes were supplied one flag at a time.
	SourceFlags
	// SourceInteractive means the operator is prompted for each attribute.
	SourceInteractive
)

func (s Source) String() string {
	switch s {
	case SourceFullDN:
		return "full-dn"
	case SourceFlags:
		return "flags"
	case SourceInteractive:
		return "interactive"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Input is everything the command line provides towards a subject.
type Input struct {
	// DN is a full subject string such as "cn=example.com,ou=Eng,ou=Ops".
	DN string
	// Flags holds attributes given one flag at a time. May be nil.
	Flags *Attributes
	// SAN is the raw, comma separated Subject Alternative Name list.
	SAN string
}

// Request is the result of building a subject.
type Request struct {
	Source     Source
	Attributes *Attributes
	// SAN is the raw SAN string, either from the command line or entered
	// interactively. It is classified separately.
	SAN string
}

// ParseDN parses a comma separated list of attr=value pairs. Each pair is
// trimmed of surrounding whitespace and split on its first "=". Attribute
// names are matched case-insensitively against the schema. A pair without a
// separator is a Malformed error; an unknown attribute, or the SAN key, is an
// UnknownAttribute error. Repeated multi-valued attributes accumulate in
// order; a repeated single-valued attribute keeps the last value.
func ParseDN(dn string) (*Attributes, error) {
	attrs := NewAttributes()
	for _, rdn := range strings.Split(dn, ",") {
		rdn = strings.TrimSpace(rdn)
		name, value, ok := strings.Cut(rdn, "=")
		if !ok {
			return nil, berrors.MalformedError("invalid RDN %q: missing '=' separator", rdn)
		}
		name = strings.TrimSpace(name)
		if strings.EqualFold(name, SANKey) {
			return nil, berrors.UnknownAttributeError("invalid RDN %q: subjectAltName cannot be part of a subject", rdn)
		}
		attr, ok := Lookup(name)
		if !ok {
			return nil, berrors.UnknownAttributeError("invalid RDN %q: unknown attribute %q", rdn, name)
		}
		err := attrs.Add(attr, value)
		if err != nil {
			return nil, err
		}
	}
	return attrs, nil
}

// Resolve decides, once, which source a run will use. A non-empty DN always
// wins and flags are not consulted. Flags are used when at least one of them
// carries a value. Otherwise the subject must be collected interactively, in
// which case the returned attributes are empty.
func Resolve(in Input) (Source, *Attributes, error) {
	if in.DN != "" {
		attrs, err := ParseDN(in.DN)
		if err != nil {
			return 0, nil, err
		}
		if attrs.Populated() {
			return SourceFullDN, attrs, nil
		}
		return SourceInteractive, NewAttributes(), nil
	}
	if in.Flags != nil && in.Flags.Populated() {
		return SourceFlags, in.Flags.Clone(), nil
	}
	return SourceInteractive, NewAttributes(), nil
}

// Builder turns an Input into a Request, prompting when required.
type Builder struct {
	prompter Prompter
}

// NewBuilder returns a Builder which uses p for interactive input. p may be
// nil if interactive mode is never needed; Build then fails instead of
// prompting.
func NewBuilder(p Prompter) *Builder {
	return &Builder{prompter: p}
}

// Build resolves the input source and returns the populated request.
func (b *Builder) Build(in Input) (*Request, error) {
	src, attrs, err := Resolve(in)
	if err != nil {
		return nil, err
	}
	req := &Request{Source: src, Attributes: attrs, SAN: in.SAN}
	if src != SourceInteractive {
		return req, nil
	}
	if b.prompter == nil {
		return nil, berrors.ConfigError("no subject supplied and interactive input is unavailable")
	}

	for !req.Attributes.Populated() {
		err := b.promptOnce(req)
		if err != nil {
			return nil, err
		}
	}
	return req, nil
}

// promptOnce asks for every schema entry once, in schema order. Values left
// empty keep whatever an earlier pass recorded.
func (b *Builder) promptOnce(req *Request) error {
	b.prompter.Notice("Please enter information about the request.")
	b.prompter.Notice("Empty string to skip the value")
	for _, attr := range AllAttributes() {
		label := attr.Prompt
		if attr.MultiValued {
			label += ". Multiple values comma separated"
		}
		label += ": "

		line, err := b.prompter.Prompt(label)
		if err != nil {
			return fmt.Errorf("reading %s: %w", attr.CanonicalName, err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case attr.Key == SANKey:
			req.SAN = line
		case attr.MultiValued:
			req.Attributes.Reset(attr)
			for _, v := range strings.Split(line, ",") {
				err = req.Attributes.Add(attr, strings.TrimSpace(v))
				if err != nil {
					return err
				}
			}
		default:
			err = req.Attributes.Add(attr, line)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
