package san

import (
	"errors"
	"testing"

	berrors "github.com/letsencrypt/certreq/errors"
	"github.com/letsencrypt/certreq/identifier"
	"github.com/letsencrypt/certreq/test"
)

func TestClassifyMixed(t *testing.T) {
	b := Classify("10.0.0.1,example.com,user@corp.local,bad_token!")

	test.AssertDeepEquals(t, b.IPs, []string{"10.0.0.1"})
	test.AssertDeepEquals(t, b.DNSNames, []string{"example.com"})
	test.AssertDeepEquals(t, b.UPNs, []string{"user@corp.local"})
	test.AssertDeepEquals(t, b.Invalid, []string{"bad_token!"})
	test.AssertEquals(t, len(b.Entries), 4)
	test.AssertEquals(t, b.Entries[3].Type, identifier.Invalid)
	test.Assert(t, !b.Empty(), "buckets hold valid entries")
}

func TestClassifyPreservesOrder(t *testing.T) {
	b := Classify("b.example,::1,a.example,10.0.0.2,c.example,10.0.0.1")
	test.AssertDeepEquals(t, b.DNSNames, []string{"b.example", "a.example", "c.example"})
	test.AssertDeepEquals(t, b.IPs, []string{"::1", "10.0.0.2", "10.0.0.1"})
}

func TestClassifyDoesNotTrim(t *testing.T) {
	b := Classify("example.com, www.example.com")
	test.AssertDeepEquals(t, b.DNSNames, []string{"example.com"})
	test.AssertDeepEquals(t, b.Invalid, []string{" www.example.com"})
}

func TestClassifyEmpty(t *testing.T) {
	b := Classify("")
	test.Assert(t, b.Empty(), "no SAN requested")
	test.AssertEquals(t, len(b.Entries), 0)
	test.AssertNil(t, b.Err(), "no SAN means no error")

	b = Classify("a.example,,b.example")
	test.AssertDeepEquals(t, b.Invalid, []string{""})
}

func TestErr(t *testing.T) {
	test.AssertNil(t, Classify("example.com").Err(), "all valid")

	err := Classify("bad_token!,example.com,also bad").Err()
	test.Assert(t, berrors.Is(err, berrors.BadSAN), "expected BadSAN")
	var rErr *berrors.RequestError
	test.Assert(t, errors.As(err, &rErr), "expected *RequestError")
	test.AssertEquals(t, rErr.Detail, "2 SAN entries could not be classified")
	test.AssertEquals(t, len(rErr.SubErrors), 2)
	test.AssertEquals(t, rErr.SubErrors[1].Token, "also bad")
}
