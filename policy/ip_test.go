package policy

import (
	"net/netip"
	"testing"

	"github.com/letsencrypt/certreq/test"
)

func TestIsReservedIP(t *testing.T) {
	cases := []struct {
		addr string
		name string
	}{
		{"8.8.8.8", ""},
		{"128.0.0.1", ""},
		{"172.32.0.1", ""},
		{"192.169.0.1", ""},
		{"10.255.0.3", "RFC 1918: Private-Use"},
		{"172.31.255.255", "RFC 1918: Private-Use"},
		{"192.168.1.1", "RFC 1918: Private-Use"},
		{"127.0.0.53", "RFC 1122, Section 3.2.1.3: Loopback"},
		{"100.64.1.1", "RFC 6598: Shared Address Space"},
		{"239.1.1.1", "RFC 3171: Multicast Addresses"},
		{"255.255.255.255", "RFC 8190 & RFC 919, Section 7: Limited Broadcast"},

		{"2606:4700::1111", ""},
		{"fec0::1", ""},
		{"::", "RFC 4291: Unspecified Address"},
		{"::1", "RFC 4291: Loopback Address"},
		{"fe80::1", "RFC 4291: Link-Local Unicast"},
		{"fe80::1%eth0", "RFC 4291: Link-Local Unicast"},
		{"fd12:3456::1", "RFC 4193 & RFC 8190: Unique-Local"},
		{"ff02::1", "RFC 4291: Multicast Addresses"},
		{"2001:db8::1", "RFC 3849: Documentation"},
		{"2002::1", "RFC 3056: 6to4"},
		{"100::ffff", "RFC 6666: Discard-Only Address Block"},
		{"100:0:0:1::", ""},

		// Mapped addresses are judged by their IPv4 form.
		{"::ffff:10.0.0.1", "RFC 1918: Private-Use"},
		{"::ffff:8.8.8.8", ""},
	}
	for _, tc := range cases {
		t.Run(tc.addr, func(t *testing.T) {
			t.Parallel()
			reserved, name := IsReservedIP(netip.MustParseAddr(tc.addr))
			test.AssertEquals(t, reserved, tc.name != "")
			test.AssertEquals(t, name, tc.name)
		})
	}
}

func TestIsReservedIPMostSpecific(t *testing.T) {
	_, name := IsReservedIP(netip.MustParseAddr("0.0.0.0"))
	test.AssertEquals(t, name, "RFC 1122, Section 3.2.1.3: This host on this network")
	_, name = IsReservedIP(netip.MustParseAddr("0.1.2.3"))
	test.AssertEquals(t, name, "RFC 791, Section 3.2: This network")
	_, name = IsReservedIP(netip.MustParseAddr("2001:1::1"))
	test.AssertEquals(t, name, "RFC 7723: Port Control Protocol Anycast")
	_, name = IsReservedIP(netip.MustParseAddr("2001:0:4136::1"))
	test.AssertEquals(t, name, "RFC 4380 & RFC 8190: TEREDO")
}
