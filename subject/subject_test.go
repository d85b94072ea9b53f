package subject

import (
	"errors"
	"io"
	"strings"
	"testing"

	berrors "github.com/letsencrypt/certreq/errors"
	"github.com/letsencrypt/certreq/test"
)

func mustLookup(t *testing.T, key string) Attribute {
	t.Helper()
	attr, ok := Lookup(key)
	test.Assert(t, ok, "missing schema attribute "+key)
	return attr
}

func TestSchemaOrder(t *testing.T) {
	var keys []string
	for _, a := range DNAttributes() {
		keys = append(keys, a.Key)
	}
	test.AssertDeepEquals(t, keys, []string{"cn", "e", "ou", "dc", "o", "l", "s", "c"})

	all := AllAttributes()
	test.AssertEquals(t, len(all), 9)
	test.AssertEquals(t, all[len(all)-1].Key, SANKey)

	// Callers must not be able to change the schema through the copies.
	all[0].CanonicalName = "mutated"
	test.AssertEquals(t, AllAttributes()[0].CanonicalName, "commonName")
}

func TestLookup(t *testing.T) {
	attr, ok := Lookup("OU")
	test.Assert(t, ok, "OU should match ou")
	test.AssertEquals(t, attr.CanonicalName, "organizationalUnitName")
	test.Assert(t, attr.MultiValued, "ou is multi-valued")

	_, ok = Lookup("san")
	test.Assert(t, !ok, "SAN is not a DN attribute")
	_, ok = Lookup("zz")
	test.Assert(t, !ok, "zz is not an attribute")
}

func TestAttributes(t *testing.T) {
	attrs := NewAttributes()
	test.Assert(t, !attrs.Populated(), "new attributes are empty")

	cn := mustLookup(t, "cn")
	ou := mustLookup(t, "ou")
	attrs.Add(cn, "first")
	attrs.Add(cn, "second")
	attrs.Add(ou, "Eng")
	attrs.Add(ou, "")
	attrs.Add(ou, "Sales")

	for _, v := range []string{"x\nDNS.9=evil.example", "x\r", "\n"} {
		err := attrs.Add(ou, v)
		test.Assert(t, berrors.Is(err, berrors.Malformed), "expected Malformed error for "+v)
	}

	test.AssertDeepEquals(t, attrs.Values("cn"), []string{"second"})
	test.AssertDeepEquals(t, attrs.Values("OU"), []string{"Eng", "Sales"})
	test.Assert(t, attrs.Populated(), "attributes are populated")

	clone := attrs.Clone()
	test.Assert(t, clone.Equal(attrs), "clone should be equal")
	clone.Add(ou, "HR")
	test.Assert(t, !clone.Equal(attrs), "clone should be independent")

	pairs := attrs.Pairs()
	test.AssertEquals(t, len(pairs), 3)
	test.AssertEquals(t, pairs[2].Attribute.Key, "ou")
	test.AssertEquals(t, pairs[2].Index, 1)
	test.AssertEquals(t, pairs[2].Value, "Sales")
}

func TestParseDN(t *testing.T) {
	attrs, err := ParseDN(" CN=example.com , ou=Eng,ou=Sales,ou=HR,c=US,C=DE")
	test.AssertNotError(t, err, "valid DN")
	test.AssertDeepEquals(t, attrs.Values("cn"), []string{"example.com"})
	test.AssertDeepEquals(t, attrs.Values("ou"), []string{"Eng", "Sales", "HR"})
	test.AssertDeepEquals(t, attrs.Values("c"), []string{"DE"})

	attrs, err = ParseDN("cn=a=b")
	test.AssertNotError(t, err, "value containing '='")
	test.AssertDeepEquals(t, attrs.Values("cn"), []string{"a=b"})
}

func TestParseDNErrors(t *testing.T) {
	cases := []struct {
		dn      string
		errType berrors.ErrorType
		detail  string
	}{
		{"cnexample", berrors.Malformed, `invalid RDN "cnexample": missing '=' separator`},
		{"cn=example.com,", berrors.Malformed, `invalid RDN "": missing '=' separator`},
		{"zz=foo", berrors.UnknownAttribute, `invalid RDN "zz=foo": unknown attribute "zz"`},
		{"cn=x,SAN=example.com", berrors.UnknownAttribute, `invalid RDN "SAN=example.com": subjectAltName cannot be part of a subject`},
		{"cn=x\nDNS.9=evil.example", berrors.Malformed, `value for commonName contains a line break: "x\nDNS.9=evil.example"`},
	}
	for _, tc := range cases {
		t.Run(tc.dn, func(t *testing.T) {
			attrs, err := ParseDN(tc.dn)
			test.AssertError(t, err, "expected fatal RDN error")
			test.Assert(t, attrs == nil, "no attributes on error")
			test.Assert(t, berrors.Is(err, tc.errType), "wrong error type: "+err.Error())
			test.AssertEquals(t, err.Error(), tc.detail)
		})
	}
}

func TestResolve(t *testing.T) {
	flags := NewAttributes()
	flags.Add(mustLookup(t, "cn"), "from-flag")

	src, attrs, err := Resolve(Input{DN: "cn=from-dn", Flags: flags})
	test.AssertNotError(t, err, "full DN")
	test.AssertEquals(t, src, SourceFullDN)
	test.AssertDeepEquals(t, attrs.Values("cn"), []string{"from-dn"})

	// Flags are not merged into a full DN.
	flags.Add(mustLookup(t, "o"), "Org")
	_, attrs, err = Resolve(Input{DN: "cn=from-dn", Flags: flags})
	test.AssertNotError(t, err, "full DN")
	test.AssertEquals(t, len(attrs.Values("o")), 0)

	src, attrs, err = Resolve(Input{Flags: flags})
	test.AssertNotError(t, err, "flags")
	test.AssertEquals(t, src, SourceFlags)
	test.Assert(t, attrs.Equal(flags), "flags are used as-is")

	src, attrs, err = Resolve(Input{Flags: NewAttributes()})
	test.AssertNotError(t, err, "nothing supplied")
	test.AssertEquals(t, src, SourceInteractive)
	test.Assert(t, !attrs.Populated(), "interactive starts empty")

	src, _, err = Resolve(Input{DN: "cn="})
	test.AssertNotError(t, err, "DN without values")
	test.AssertEquals(t, src, SourceInteractive)

	_, _, err = Resolve(Input{DN: "cnexample", Flags: flags})
	test.Assert(t, berrors.Is(err, berrors.Malformed), "bad DN is fatal even with flags")
}

// scriptedPrompter answers prompts from a fixed list and records labels.
type scriptedPrompter struct {
	answers []string
	labels  []string
	notices int
}

func (p *scriptedPrompter) Notice(string) { p.notices++ }

func (p *scriptedPrompter) Prompt(label string) (string, error) {
	p.labels = append(p.labels, label)
	if len(p.answers) == 0 {
		return "", io.EOF
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func TestBuildInteractiveReprompts(t *testing.T) {
	// First pass: only a SAN, which does not count as a subject.
	// Second pass: a common name and two OUs.
	p := &scriptedPrompter{answers: []string{
		"", "", "", "", "", "", "", "", " example.com,10.0.0.1 ",
		" example.com ", "", " Eng , Sales ", "", "", "", "", "", "",
	}}
	req, err := NewBuilder(p).Build(Input{})
	test.AssertNotError(t, err, "interactive build")
	test.AssertEquals(t, req.Source, SourceInteractive)
	test.AssertEquals(t, len(p.labels), 18)
	test.AssertEquals(t, p.notices, 4)
	test.AssertEquals(t, p.labels[0], "Common Name (CN): ")
	test.AssertEquals(t, p.labels[2], "Organizational Unit (OU). Multiple values comma separated: ")
	test.AssertDeepEquals(t, req.Attributes.Values("cn"), []string{"example.com"})
	test.AssertDeepEquals(t, req.Attributes.Values("ou"), []string{"Eng", "Sales"})
	// The SAN from the first pass survives; empty answers keep earlier values.
	test.AssertEquals(t, req.SAN, "example.com,10.0.0.1")
}

func TestBuildInteractiveEOF(t *testing.T) {
	p := &scriptedPrompter{}
	_, err := NewBuilder(p).Build(Input{})
	test.AssertError(t, err, "EOF should abort interactive mode")
	test.Assert(t, errors.Is(err, io.EOF), "error should wrap io.EOF")
}

func TestBuildWithoutPrompter(t *testing.T) {
	_, err := NewBuilder(nil).Build(Input{})
	test.Assert(t, berrors.Is(err, berrors.Config), "no prompter is a config error")

	req, err := NewBuilder(nil).Build(Input{DN: "cn=x", SAN: "example.com"})
	test.AssertNotError(t, err, "full DN needs no prompter")
	test.AssertEquals(t, req.SAN, "example.com")
}

func TestLinePrompter(t *testing.T) {
	var out strings.Builder
	p := NewLinePrompter(strings.NewReader("first\r\nlast"), &out)

	line, err := p.Prompt("One: ")
	test.AssertNotError(t, err, "first line")
	test.AssertEquals(t, line, "first")
	line, err = p.Prompt("Two: ")
	test.AssertNotError(t, err, "unterminated last line")
	test.AssertEquals(t, line, "last")
	_, err = p.Prompt("Three: ")
	test.AssertErrorIs(t, err, io.EOF)

	p.Notice("hello")
	test.AssertEquals(t, out.String(), "One: Two: Three: hello\n")
}
