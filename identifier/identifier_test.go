package identifier

import (
	"strings"
	"testing"

	"github.com/letsencrypt/certreq/test"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		token    string
		expected IdentifierType
	}{
		// IP literals always win, even when they also look like hostnames.
		{"10.0.0.1", IP},
		{"192.168.1.254", IP},
		{"::1", IP},
		{"2001:db8::8a2e:370:7334", IP},
		{"::ffff:10.0.0.1", IP},
		// Dotted numbers that are not valid IPs fall through to DNS.
		{"10.0.0.256", DNS},
		{"1.2.3", DNS},
		{"example.com", DNS},
		{"EXAMPLE.com", DNS},
		{"localhost", DNS},
		{"a-b.example", DNS},
		{"xn--bcher-kva.example", DNS},
		{strings.Repeat("a", 63) + ".example", DNS},
		// UPNs fail the DNS check on the '@'.
		{"user@corp.local", UPN},
		{"user@corp.com", UPN},
		{"first.last@sub-domain.example.co.uk", UPN},
		{"first-last@example.org", UPN},
		// Nothing matches.
		{"bad_token!", Invalid},
		{"", Invalid},
		{"-leading.example.com", Invalid},
		{"trailing-.example.com", Invalid},
		{"example.com.", Invalid},
		{"under_score.example.com", Invalid},
		{strings.Repeat("a", 64) + ".example", Invalid},
		{"user@localhost", Invalid},
		{"user@@corp.com", Invalid},
		{"user..name@corp.com", Invalid},
		{" example.com", Invalid},
	}
	for _, tc := range cases {
		t.Run(tc.token, func(t *testing.T) {
			id := Classify(tc.token)
			test.AssertEquals(t, id.Type, tc.expected)
			test.AssertEquals(t, id.Value, tc.token)
		})
	}
}

func TestValidIPNeverDNSOrUPN(t *testing.T) {
	for _, ip := range []string{"0.0.0.0", "255.255.255.255", "127.0.0.1", "fe80::1", "::"} {
		test.Assert(t, ValidIP(ip), ip+" should be a valid IP")
		test.AssertEquals(t, Classify(ip), NewIP(ip))
	}
}

func TestValidDNSName(t *testing.T) {
	test.Assert(t, ValidDNSName("a"), "single character label")
	test.Assert(t, ValidDNSName("1.2.3.4"), "numeric labels are LDH")
	test.Assert(t, !ValidDNSName("a..b"), "empty label")
	test.Assert(t, !ValidDNSName("*.example.com"), "wildcard")
}

func TestValidUPN(t *testing.T) {
	test.Assert(t, ValidUPN("a.b@x.co.uk"), "multi-segment domain")
	test.Assert(t, !ValidUPN("a@b.c"), "single character top segment")
	test.Assert(t, !ValidUPN("user.@corp.com"), "trailing separator in local part")
}
