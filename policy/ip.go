package policy

import (
	"net/netip"
)

// reservedRange is one entry of the IANA special-purpose address registries.
type reservedRange struct {
	prefix netip.Prefix
	name   string
}

func mustParseRanges(entries [][2]string) []reservedRange {
	ranges := make([]reservedRange, 0, len(entries))
	for _, e := range entries {
		ranges = append(ranges, reservedRange{prefix: netip.MustParsePrefix(e[0]), name: e[1]})
	}
	return ranges
}

// https://www.iana.org/assignments/iana-ipv4-special-registry/iana-ipv4-special-registry.xhtml
var reservedV4 = mustParseRanges([][2]string{
	{"0.0.0.0/8", "RFC 791, Section 3.2: This network"},
	{"0.0.0.0/32", "RFC 1122, Section 3.2.1.3: This host on this network"},
	{"10.0.0.0/8", "RFC 1918: Private-Use"},
	{"100.64.0.0/10", "RFC 6598: Shared Address Space"},
	{"127.0.0.0/8", "RFC 1122, Section 3.2.1.3: Loopback"},
	{"169.254.0.0/16", "RFC 3927: Link Local"},
	{"172.16.0.0/12", "RFC 1918: Private-Use"},
	{"192.0.0.0/24", "RFC 6890, Section 2.1: IETF Protocol Assignments"},
	{"192.0.0.0/29", "RFC 7335: IPv4 Service Continuity Prefix"},
	{"192.0.0.8/32", "RFC 7600: IPv4 dummy address"},
	{"192.0.0.9/32", "RFC 7723: Port Control Protocol Anycast"},
	{"192.0.0.10/32", "RFC 8155: Traversal Using Relays around NAT Anycast"},
	{"192.0.0.170/32", "RFC 8880 & RFC 7050, Section 2.2: NAT64/DNS64 Discovery"},
	{"192.0.0.171/32", "RFC 8880 & RFC 7050, Section 2.2: NAT64/DNS64 Discovery"},
	{"192.0.2.0/24", "RFC 5737: Documentation (TEST-NET-1)"},
	{"192.31.196.0/24", "RFC 7535: AS112-v4"},
	{"192.52.193.0/24", "RFC 7450: AMT"},
	{"192.88.99.0/24", "RFC 7526: Deprecated (6to4 Relay Anycast)"},
	{"192.168.0.0/16", "RFC 1918: Private-Use"},
	{"192.175.48.0/24", "RFC 7534: Direct Delegation AS112 Service"},
	{"198.18.0.0/15", "RFC 2544: Benchmarking"},
	{"198.51.100.0/24", "RFC 5737: Documentation (TEST-NET-2)"},
	{"203.0.113.0/24", "RFC 5737: Documentation (TEST-NET-3)"},
	// Multicast is not in the registry.
	{"224.0.0.0/4", "RFC 3171: Multicast Addresses"},
	{"240.0.0.0/4", "RFC1112, Section 4: Reserved"},
	{"255.255.255.255/32", "RFC 8190 & RFC 919, Section 7: Limited Broadcast"},
})

// https://www.iana.org/assignments/iana-ipv6-special-registry/iana-ipv6-special-registry.xhtml
var reservedV6 = mustParseRanges([][2]string{
	{"::/128", "RFC 4291: Unspecified Address"},
	{"::1/128", "RFC 4291: Loopback Address"},
	{"::ffff:0:0/96", "RFC 4291: IPv4-mapped Address"},
	{"64:ff9b::/96", "RFC 6052: IPv4-IPv6 Translat."},
	{"64:ff9b:1::/48", "RFC 8215: IPv4-IPv6 Translat."},
	{"100::/64", "RFC 6666: Discard-Only Address Block"},
	{"2001::/23", "RFC 2928: IETF Protocol Assignments"},
	{"2001::/32", "RFC 4380 & RFC 8190: TEREDO"},
	{"2001:1::1/128", "RFC 7723: Port Control Protocol Anycast"},
	{"2001:1::2/128", "RFC 8155: Traversal Using Relays around NAT Anycast"},
	{"2001:1::3/128", "RFC-ietf-dnssd-srp-25: DNS-SD Service Registration Protocol Anycast"},
	{"2001:2::/48", "RFC 5180 & RFC Errata 1752: Benchmarking"},
	{"2001:3::/32", "RFC 7450: AMT"},
	{"2001:4:112::/48", "RFC 7535: AS112-v6"},
	{"2001:10::/28", "RFC 4843: Deprecated (previously ORCHID)"},
	{"2001:20::/28", "RFC 7343: ORCHIDv2"},
	{"2001:30::/28", "RFC 9374: Drone Remote ID Protocol Entity Tags (DETs) Prefix"},
	{"2001:db8::/32", "RFC 3849: Documentation"},
	{"2002::/16", "RFC 3056: 6to4"},
	{"2620:4f:8000::/48", "RFC 7534: Direct Delegation AS112 Service"},
	{"3fff::/20", "RFC 9637: Documentation"},
	{"5f00::/16", "RFC 9602: Segment Routing (SRv6) SIDs"},
	{"fc00::/7", "RFC 4193 & RFC 8190: Unique-Local"},
	{"fe80::/10", "RFC 4291: Link-Local Unicast"},
	// Multicast is not in the registry.
	{"ff00::/8", "RFC 4291: Multicast Addresses"},
})

// IsReservedIP reports whether addr falls in a special-purpose range from the
// IANA registries, and if so the name of the most specific such range. Ties
// go to the range listed first. IPv4-mapped IPv6 addresses are checked as
// IPv4, and zones are ignored.
func IsReservedIP(addr netip.Addr) (bool, string) {
	addr = addr.WithZone("").Unmap()

	ranges := reservedV6
	if addr.Is4() {
		ranges = reservedV4
	}

	best := -1
	var name string
	for _, r := range ranges {
		if r.prefix.Contains(addr) && r.prefix.Bits() > best {
			best = r.prefix.Bits()
			name = r.name
		}
	}
	return best >= 0, name
}
